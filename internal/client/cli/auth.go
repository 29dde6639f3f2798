package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/comdesk/sessiond/internal/client"
	"github.com/comdesk/sessiond/internal/common"
)

// Seams for tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Register prompts for account details, creates the account and starts a
// session with the returned pair.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	displayName, err := getSimpleText(a.reader, "Enter display name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, pair, err := a.api.Register(ctx, username, string(password), displayName, "")
	if err != nil {
		fmt.Fprintln(a.out, "Registration failed:", err)
		return err
	}

	a.userName = user.Username
	a.pair = pair
	fmt.Fprintln(a.out, "Registered and logged in as", user.Username)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, pair, err := a.api.Login(ctx, username, string(password))
	if err != nil {
		fmt.Fprintln(a.out, "Login failed:", err)
		return err
	}

	a.userName = user.Username
	a.pair = pair
	fmt.Fprintln(a.out, "Logged in as", user.Username)
	return nil
}

// Whoami shows the current session. An expired access token is renewed once
// and the lookup retried; if renewal also fails, the local session is dropped
// and the user must log in again.
func (a *App) Whoami(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	sess, err := a.api.Session(ctx, a.pair.AccessToken)
	if isTokenExpired(err) {
		if err = a.renew(ctx); err != nil {
			return err
		}
		sess, err = a.api.Session(ctx, a.pair.AccessToken)
	}
	if err != nil {
		fmt.Fprintln(a.out, "Session lookup failed:", err)
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s (%s), session valid until %s\n",
		sess.Username, sess.DisplayName, sess.ExpiresAt)
	return nil
}

// Logout revokes the session server-side and forgets the local pair.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	if err := a.api.Logout(ctx, a.pair.AccessToken); err != nil {
		fmt.Fprintln(a.out, "Logout failed:", err)
		return err
	}

	a.clearSession()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// renew rotates the pair. Any failure is terminal for the session: the old
// refresh token is single-use, so there is nothing to retry with.
func (a *App) renew(ctx context.Context) error {
	pair, err := a.api.Refresh(ctx, a.pair.AccessToken, a.pair.RefreshToken)
	if err != nil {
		a.clearSession()
		fmt.Fprintln(a.out, "Session expired, please log in again")
		return err
	}
	a.pair = pair
	return nil
}

func (a *App) clearSession() {
	a.userName = ""
	a.pair = nil
}

func isTokenExpired(err error) bool {
	apiErr := &client.APIError{}
	return errors.As(err, &apiErr) && apiErr.Code == "TOKEN_EXPIRED"
}
