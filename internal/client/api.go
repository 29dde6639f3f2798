// Package client implements the HTTP client for the sessiond API. It mirrors
// the server's JSON contract and surfaces its error envelope as APIError
// values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// APIError is the error envelope returned by the server on failures.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

// User describes the account an issued pair belongs to.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Session describes the identity carried by a valid access token.
type Session struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}

// Client talks to a sessiond server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client for the server at baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Register creates an account and returns the user with its first token pair.
func (c *Client) Register(ctx context.Context, username, password, displayName, role string) (*User, *TokenPair, error) {
	var out struct {
		User User `json:"user"`
		TokenPair
	}
	err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"username":    username,
		"password":    password,
		"displayName": displayName,
		"role":        role,
	}, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out.User, &out.TokenPair, nil
}

// Login authenticates and returns the user with a fresh token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*User, *TokenPair, error) {
	var out struct {
		User User `json:"user"`
		TokenPair
	}
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out.User, &out.TokenPair, nil
}

// Refresh exchanges an expired access token and its refresh token for a new
// pair. The old refresh token is consumed server-side whether or not the
// response arrives.
func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	err := c.do(ctx, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the session behind the access token.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/api/logout", map[string]string{
		"accessToken": accessToken,
	}, nil)
}

// Session returns the identity carried by a still-valid access token.
func (c *Client) Session(ctx context.Context, accessToken string) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/session", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var out Session
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
