package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TokenSource supplies the bearer token attached to outbound calls.
// The credential is passed in explicitly at construction; the client never
// reaches into ambient session state.
type TokenSource func(ctx context.Context) (string, error)

// Client handles HTTP communication with the tracking service REST API
type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
}

// NewClient creates an API client for the given base URL
func NewClient(baseURL string, token TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping probes the service health endpoint with a short timeout. Used by the
// scheduler to gate network-bound cycles.
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// doRequest performs an HTTP request with authentication.
// A non-empty idempotencyKey is sent as X-Idempotency-Key so the server can
// deduplicate a create retried after a lost acknowledgement.
func (c *Client) doRequest(ctx context.Context, op, method, endpoint string, body []byte, idempotencyKey string) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, NewError(op, KindTransport, "failed to create request").WithError(err)
	}

	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, NewError(op, KindUnauthorized, "no credential available").WithError(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewError(op, KindTransport, "request failed").WithError(err)
	}

	return resp, nil
}

// errorFromResponse maps an HTTP failure status to the engine's taxonomy.
// 5xx is treated as retryable alongside transport failures; remaining 4xx
// statuses are business rejections whose body is surfaced to the user.
func errorFromResponse(op string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := string(bytes.TrimSpace(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	kind := KindRejected
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = KindUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		kind = KindNotFound
	case resp.StatusCode >= 500:
		kind = KindTransport
	}

	return &Error{
		Op:         op,
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// codec maps between opaque local payloads and one resource's wire format
type codec interface {
	// fromWire converts a wire entity into its canonical form
	fromWire(data []byte) (*Canonical, error)
	// toWire converts a local payload into the wire request body
	toWire(payload []byte) ([]byte, error)
}

// resourceGateway implements Gateway for one REST resource path
type resourceGateway struct {
	client   *Client
	resource string // e.g. "tasks"
	codec    codec
}

// NewTasksGateway returns the gateway for the /tasks resource
func NewTasksGateway(c *Client) Gateway {
	return &resourceGateway{client: c, resource: "tasks", codec: taskCodec{}}
}

// NewProjectsGateway returns the gateway for the /projects resource
func NewProjectsGateway(c *Client) Gateway {
	return &resourceGateway{client: c, resource: "projects", codec: projectCodec{}}
}

// NewUsersGateway returns the gateway for the /users resource
func NewUsersGateway(c *Client) Gateway {
	return &resourceGateway{client: c, resource: "users", codec: userCodec{}}
}

// NewNotificationsGateway returns the gateway for the /notifications resource
func NewNotificationsGateway(c *Client) Gateway {
	return &resourceGateway{client: c, resource: "notifications", codec: notificationCodec{}}
}

func (g *resourceGateway) op(verb string) string {
	return verb + " /" + g.resource
}

func (g *resourceGateway) Create(ctx context.Context, idempotencyKey string, payload json.RawMessage) (*Canonical, error) {
	op := g.op("create")

	body, err := g.codec.toWire(payload)
	if err != nil {
		return nil, NewError(op, KindRejected, "failed to encode payload").WithError(err)
	}

	resp, err := g.client.doRequest(ctx, op, http.MethodPost, "/"+g.resource, body, idempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errorFromResponse(op, resp)
	}

	return g.decodeCanonical(op, resp.Body)
}

func (g *resourceGateway) Update(ctx context.Context, canonicalID string, payload json.RawMessage) (*Canonical, error) {
	op := g.op("update")

	body, err := g.codec.toWire(payload)
	if err != nil {
		return nil, NewError(op, KindRejected, "failed to encode payload").WithError(err)
	}

	resp, err := g.client.doRequest(ctx, op, http.MethodPut, "/"+g.resource+"/"+url.PathEscape(canonicalID), body, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(op, resp)
	}

	return g.decodeCanonical(op, resp.Body)
}

func (g *resourceGateway) List(ctx context.Context, filter ListFilter) ([]Canonical, error) {
	op := g.op("list")

	endpoint := "/" + g.resource
	query := url.Values{}
	if filter.ProjectID != "" {
		query.Set("project_id", filter.ProjectID)
	}
	if filter.UserID != "" {
		query.Set("user_id", filter.UserID)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := g.client.doRequest(ctx, op, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(op, resp)
	}

	raw, err := decodeWireList(resp.Body)
	if err != nil {
		return nil, NewError(op, KindTransport, "failed to decode response").WithError(err)
	}

	canons := make([]Canonical, 0, len(raw))
	for _, item := range raw {
		canon, err := g.codec.fromWire(item)
		if err != nil {
			return nil, NewError(op, KindTransport, "failed to decode entity").WithError(err)
		}
		canons = append(canons, *canon)
	}
	return canons, nil
}

func (g *resourceGateway) Delete(ctx context.Context, canonicalID string) error {
	op := g.op("delete")

	resp, err := g.client.doRequest(ctx, op, http.MethodDelete, "/"+g.resource+"/"+url.PathEscape(canonicalID), nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errorFromResponse(op, resp)
	}

	return nil
}

func (g *resourceGateway) decodeCanonical(op string, body io.Reader) (*Canonical, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, NewError(op, KindTransport, "failed to read response").WithError(err)
	}

	canon, err := g.codec.fromWire(data)
	if err != nil {
		return nil, NewError(op, KindTransport, "failed to decode entity").WithError(err)
	}
	if canon.ID == "" {
		return nil, NewError(op, KindTransport, "server returned entity without id")
	}
	return canon, nil
}

func decodeWireList(body io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid list response: %w", err)
	}

	out := make([][]byte, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out, nil
}
