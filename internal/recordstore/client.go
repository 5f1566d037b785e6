package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is the per-request timeout applied by the transport.
const DefaultTimeout = 15 * time.Second

// Client is an HTTP client for the record store. Construct one at startup
// and pass it to the services that need it.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a record store client. A zero timeout uses DefaultTimeout.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client that authenticates with token.
// The copy shares the underlying transport.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type tokenKey struct{}

// ContextWithToken returns a context whose store requests authenticate with
// token instead of the client's own.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token set by ContextWithToken, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// BaseURL returns the store URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Collection returns an accessor bound to the named collection.
func (c *Client) Collection(name string) *Collection {
	return NewCollection(c, name)
}

// List returns one page of records from a collection.
func (c *Client) List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error) {
	if page <= 0 {
		page = DefaultPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Expand != "" {
		q.Set("expand", opts.Expand)
	}
	if opts.Fields != "" {
		q.Set("fields", opts.Fields)
	}

	var res ListResult
	if err := c.do(ctx, http.MethodGet, recordsPath(collection), q, nil, &res); err != nil {
		return nil, err
	}
	if res.Items == nil {
		res.Items = []Record{}
	}
	return &res, nil
}

// GetOne returns a single record by id.
func (c *Client) GetOne(ctx context.Context, collection, id, expand string) (Record, error) {
	var q url.Values
	if expand != "" {
		q = url.Values{"expand": {expand}}
	}
	var rec Record
	if err := c.do(ctx, http.MethodGet, recordPath(collection, id), q, nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Create inserts a record.
func (c *Client) Create(ctx context.Context, collection string, data map[string]interface{}) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, recordsPath(collection), nil, data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update patches a record.
func (c *Client) Update(ctx context.Context, collection, id string, data map[string]interface{}) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPatch, recordPath(collection, id), nil, data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, recordPath(collection, id), nil, nil, nil)
}

// Health checks that the store is reachable and healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, nil)
}

// AuthResult is the response of a password authentication.
type AuthResult struct {
	Token  string `json:"token"`
	Record Record `json:"record"`
}

// AuthWithPassword authenticates a record of an auth collection.
func (c *Client) AuthWithPassword(ctx context.Context, collection, identity, password string) (*AuthResult, error) {
	body := map[string]string{
		"identity": identity,
		"password": password,
	}
	var res AuthResult
	path := "/api/collections/" + url.PathEscape(collection) + "/auth-with-password"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func recordsPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records"
}

func recordPath(collection, id string) string {
	return recordsPath(collection) + "/" + url.PathEscape(id)
}

// errorBody is the error envelope returned by the store.
type errorBody struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do executes a request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.token
	if t := TokenFromContext(ctx); t != "" {
		token = t
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "record store request failed",
			"method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "record store request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
		"request_id", requestID,
	)

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func decodeError(status int, body []byte) error {
	re := &ResponseError{Status: status}
	var eb errorBody
	if json.Unmarshal(body, &eb) != nil {
		return re
	}
	re.Message = eb.Message

	var fields map[string]FieldError
	if len(eb.Data) > 0 && json.Unmarshal(eb.Data, &fields) == nil && len(fields) > 0 {
		re.Data = fields
	}
	return re
}
