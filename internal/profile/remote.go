package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	databaseID   = "cvowf_main_db"
	collectionID = "profiles"
)

var _ Store = (*Remote)(nil)

// Remote implements Store against the hosted document store, keyed by the
// identity-service user id. Any compatible document API satisfies the
// contract.
type Remote struct {
	baseURL   string
	projectID string
	apiKey    string
	httpc     *http.Client
}

// RemoteOption configures a Remote store.
type RemoteOption func(*Remote)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.httpc = c
		}
	}
}

// WithAPIKey sets the server key sent on document writes.
func WithAPIKey(key string) RemoteOption {
	return func(r *Remote) { r.apiKey = key }
}

// NewRemote constructs a Remote document store client.
func NewRemote(endpoint, projectID string, opts ...RemoteOption) (*Remote, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("profile: endpoint is required")
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("profile: project id is required")
	}
	r := &Remote{
		baseURL:   endpoint,
		projectID: projectID,
		httpc:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Remote) documentPath(userID string) string {
	return fmt.Sprintf("%s/v1/databases/%s/collections/%s/documents/%s",
		r.baseURL, databaseID, collectionID, userID)
}

func (r *Remote) Create(ctx context.Context, p *Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.documentPath(p.UserID), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	r.setHeaders(req)
	resp, err := r.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("profile: create document: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrAlreadyExists
	default:
		return remoteStatusError("create", resp)
	}
}

func (r *Remote) Get(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.documentPath(userID), nil)
	if err != nil {
		return nil, err
	}
	r.setHeaders(req)
	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile: get document: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		var p Profile
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, fmt.Errorf("profile: decode document: %w", err)
		}
		return &p, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, remoteStatusError("get", resp)
	}
}

func (r *Remote) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project-Id", r.projectID)
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}
}

func remoteStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("profile: %s document: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}
