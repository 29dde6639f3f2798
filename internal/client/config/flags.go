package config

import (
	"flag"
	"os"

	"github.com/comdesk/sessiond/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the sessiond server (default from Config)
//
// os.Args is filtered to only the flags handled here, using flagx.FilterArgs,
// to avoid interference with the JSON config flags.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "base URL of the sessiond server")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
