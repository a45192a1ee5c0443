// Package client talks to the LinkVault JSON API. Client satisfies
// thread.Source so a thread view can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkvault/internal/thread"

	"github.com/Jeffail/gabs/v2"
)

// Client is an authenticated API client. The zero value is not usable; use New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token.
func (c *Client) Token() string { return c.token }

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

// ListThread fetches the nested comment tree of an entity.
func (c *Client) ListThread(ctx context.Context, ref thread.Ref) ([]*thread.Comment, error) {
	var out []*thread.Comment
	path := fmt.Sprintf("/api/comments/%s/%d", ref.Kind, ref.ID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type createRequest struct {
	Content        string `json:"content"`
	BookmarkID     *uint  `json:"bookmarkId,omitempty"`
	AnnouncementID *uint  `json:"announcementId,omitempty"`
	ParentID       *uint  `json:"parentId,omitempty"`
}

// CreateComment posts a comment or, with ParentID set, a reply.
func (c *Client) CreateComment(ctx context.Context, in thread.CreateInput) (*thread.Comment, error) {
	req := createRequest{Content: in.Content, ParentID: in.ParentID}
	id := in.Ref.ID
	switch in.Ref.Kind {
	case thread.KindBookmark:
		req.BookmarkID = &id
	case thread.KindAnnouncement:
		req.AnnouncementID = &id
	default:
		return nil, fmt.Errorf("client: unknown thread kind %q", in.Ref.Kind)
	}

	var out thread.Comment
	if err := c.do(ctx, http.MethodPost, "/api/comments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditComment replaces a comment's content.
func (c *Client) EditComment(ctx context.Context, id uint, content string) (*thread.Comment, error) {
	var out thread.Comment
	path := fmt.Sprintf("/api/comments/%d", id)
	if err := c.do(ctx, http.MethodPut, path, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComment soft-deletes a comment.
func (c *Client) DeleteComment(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/comments/%d", id), nil, nil)
}

// VoteComment casts or toggles a vote.
func (c *Client) VoteComment(ctx context.Context, id uint, vote thread.VoteType) (*thread.VoteResult, error) {
	var out thread.VoteResult
	path := fmt.Sprintf("/api/comments/%d/vote", id)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"voteType": string(vote)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// responseError builds a ServiceError. Bodies may be {"code","message"} or
// the older {"error"} shape; server failures keep no message so the viewer
// sees a generic notice.
func responseError(status int, raw []byte) error {
	se := &thread.ServiceError{Status: status}
	if status >= http.StatusInternalServerError {
		return se
	}
	parsed, err := gabs.ParseJSON(raw)
	if err != nil {
		return se
	}
	for _, key := range []string{"message", "error"} {
		if msg, ok := parsed.Path(key).Data().(string); ok && msg != "" {
			se.Message = msg
			break
		}
	}
	return se
}
