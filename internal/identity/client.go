package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const sessionHeader = "X-Session"

// Client talks to the identity service over its REST API.
type Client struct {
	endpoint  string
	projectID string
	http      *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Client for the given endpoint and project.
func NewClient(endpoint, projectID string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:  strings.TrimRight(endpoint, "/"),
		projectID: projectID,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountPayload struct {
	ID            string    `json:"$id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerification"`
	CreatedAt     time.Time `json:"$createdAt"`
}

func (p accountPayload) user() User {
	return User{
		ID:            p.ID,
		Email:         p.Email,
		Name:          p.Name,
		EmailVerified: p.EmailVerified,
		CreatedAt:     p.CreatedAt,
	}
}

type sessionPayload struct {
	ID        string    `json:"$id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expire"`
	Secret    string    `json:"secret"`
}

func (c *Client) CreateAccount(ctx context.Context, email, password, name string) (User, error) {
	body := map[string]string{
		"userId":   "unique()",
		"email":    email,
		"password": password,
		"name":     name,
	}
	var out accountPayload
	if err := c.do(ctx, http.MethodPost, "/v1/account", "", body, &out); err != nil {
		return User{}, err
	}
	return out.user(), nil
}

func (c *Client) CreateSession(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	var out sessionPayload
	if err := c.do(ctx, http.MethodPost, "/v1/account/sessions/email", "", body, &out); err != nil {
		return Session{}, err
	}
	token := out.Secret
	if token == "" {
		token = out.ID
	}
	return Session{Token: token, UserID: out.UserID, ExpiresAt: out.ExpiresAt}, nil
}

func (c *Client) CurrentUser(ctx context.Context, session string) (User, error) {
	if session == "" {
		return User{}, ErrNoSession
	}
	var out accountPayload
	if err := c.do(ctx, http.MethodGet, "/v1/account", session, nil, &out); err != nil {
		if KindOf(err) == KindInvalidCredentials {
			return User{}, ErrNoSession
		}
		return User{}, err
	}
	return out.user(), nil
}

func (c *Client) DeleteSession(ctx context.Context, session string) error {
	return c.do(ctx, http.MethodDelete, "/v1/account/sessions/current", session, nil, nil)
}

func (c *Client) RequestRecovery(ctx context.Context, email, redirectURL string) error {
	body := map[string]string{"email": email, "url": redirectURL}
	return c.do(ctx, http.MethodPost, "/v1/account/recovery", "", body, nil)
}

func (c *Client) CompleteRecovery(ctx context.Context, userID, secret, newPassword, confirmPassword string) error {
	if err := checkRecoveryInput(newPassword, confirmPassword); err != nil {
		return err
	}
	body := map[string]string{
		"userId":   userID,
		"secret":   secret,
		"password": newPassword,
	}
	return c.do(ctx, http.MethodPut, "/v1/account/recovery", "", body, nil)
}

func (c *Client) RequestVerification(ctx context.Context, session, redirectURL string) error {
	body := map[string]string{"url": redirectURL}
	return c.do(ctx, http.MethodPost, "/v1/account/verification", session, body, nil)
}

func (c *Client) do(ctx context.Context, method, path, session string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, rd)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project-Id", c.projectID)
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = string(raw)
		}
		return normalize(resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("identity: decode response: %w", err)
	}
	return nil
}
