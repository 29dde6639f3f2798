package main

import (
	"context"
	"log"

	"github.com/comdesk/sessiond/internal/client/cli"
	"github.com/comdesk/sessiond/internal/client/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
