// Package cli implements the interactive sessiond client: a small REPL for
// registering, logging in, inspecting the current session and logging out.
// Expired access tokens are renewed transparently via the refresh endpoint.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/comdesk/sessiond/internal/client"
	"github.com/comdesk/sessiond/internal/client/config"
)

// sessionAPI defines the server surface the CLI needs. client.Client
// satisfies it; tests can provide a stub.
type sessionAPI interface {
	Register(ctx context.Context, username, password, displayName, role string) (*client.User, *client.TokenPair, error)
	Login(ctx context.Context, username, password string) (*client.User, *client.TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*client.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	Session(ctx context.Context, accessToken string) (*client.Session, error)
}

type App struct {
	config   *config.Config
	api      sessionAPI
	reader   *bufio.Reader
	out      io.Writer
	userName string
	pair     *client.TokenPair
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		api:    client.New(c.ServerAddr),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.pair != nil
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}
