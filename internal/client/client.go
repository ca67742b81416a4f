// Package client talks to a running taskboard server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nibzard/taskboard/internal/task"
)

const (
	tasksPath      = "/tasks"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// StatusError is returned for responses the client cannot map to a
// task error.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client is a JSON API client. It has the same method set as the task
// service, so callers can switch between local and remote access.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must use http or https", baseURL)
	}
	c := &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches every task.
func (c *Client) List(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, http.MethodGet, tasksPath, nil, "", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get fetches the full collection and returns the task with id.
func (c *Client) Get(ctx context.Context, id string) (task.Task, error) {
	if id == "" {
		return task.Task{}, &task.NotFoundError{ID: id}
	}
	tasks, err := c.List(ctx)
	if err != nil {
		return task.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return task.Task{}, &task.NotFoundError{ID: id}
}

// Create posts a new task.
func (c *Client) Create(ctx context.Context, draft task.Draft) (task.Task, error) {
	var created task.Task
	if err := c.do(ctx, http.MethodPost, tasksPath, draft, "", &created); err != nil {
		return task.Task{}, err
	}
	return created, nil
}

// Update sends patch for the task with id.
func (c *Client) Update(ctx context.Context, id string, patch task.Patch) (task.Task, error) {
	if id == "" {
		return task.Task{}, &task.NotFoundError{ID: id}
	}
	body, err := updateBody(id, patch)
	if err != nil {
		return task.Task{}, err
	}
	var updated task.Task
	if err := c.do(ctx, http.MethodPut, tasksPath, json.RawMessage(body), id, &updated); err != nil {
		return task.Task{}, err
	}
	return updated, nil
}

// Delete removes the task with id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &task.BadRequestError{Param: "id"}
	}
	path := tasksPath + "?" + url.Values{"id": {id}}.Encode()
	return c.do(ctx, http.MethodDelete, path, nil, id, nil)
}

// updateBody merges the id into the patch object.
func updateBody(id string, patch task.Patch) ([]byte, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	idJSON, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields["id"] = idJSON
	return json.Marshal(fields)
}

func (c *Client) do(ctx context.Context, method, path string, in any, id string, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, tasksPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, id)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError maps an error response to the matching task error.
func decodeError(resp *http.Response, id string) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		if id != "" {
			return &task.NotFoundError{ID: id}
		}
	case http.StatusBadRequest:
		return &task.ValidationError{Err: errors.New(payload.Error)}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
}
