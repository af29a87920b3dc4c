package uservoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PerPage is the page size requested from paginated endpoints
const PerPage = 100

// ErrNoResult is wrapped by every error returned from Client.Page. Callers
// treat it as "this request produced no data".
var ErrNoResult = errors.New("uservoice: no result")

// Client is a UserVoice admin API client
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
	progress   func(resource string) Progress
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (30s timeout)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProgress sets a factory producing one progress reporter per paginated
// collection fetch.
func WithProgress(fn func(resource string) Progress) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// BaseURL returns the v2 API root for an account subdomain
func BaseURL(subdomain string) string {
	return fmt.Sprintf("https://%s.uservoice.com/api/v2", subdomain)
}

// NewClient creates a new UserVoice API client
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one resource fetch
type Request struct {
	Resource string // e.g. "suggestions"; also the key holding records in the response
	Body     any    // optional JSON request body
	Suffix   string // appended to the resource path, e.g. "/1,2,3"
	Paginate bool
}

// Page is a single decoded API response
type Page struct {
	Records    json.RawMessage
	Pagination *Pagination
}

// Page performs exactly one GET request for req at the given cursor.
// Failures are logged and returned wrapped in ErrNoResult.
func (c *Client) Page(ctx context.Context, req Request, cursor string) (*Page, error) {
	reqURL := c.pageURL(req, cursor)

	var body io.Reader = http.NoBody
	if req.Body != nil {
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			return nil, c.fail(reqURL, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, body)
	if err != nil {
		return nil, c.fail(reqURL, fmt.Errorf("create request: %w", err))
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("HTTP request starting", zap.String("url", reqURL))

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(reqURL, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP request completed",
		zap.String("url", reqURL),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(startTime)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(reqURL, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(reqURL, fmt.Errorf("read response: %w", err))
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, c.fail(reqURL, fmt.Errorf("unmarshal response: %w", err))
	}

	page := &Page{Records: payload[req.Resource]}
	if raw, ok := payload["pagination"]; ok && !isNull(raw) {
		var p Pagination
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, c.fail(reqURL, fmt.Errorf("unmarshal pagination: %w", err))
		}
		page.Pagination = &p
	}

	return page, nil
}

// pageURL builds {base}/admin/{resource}{suffix}[?cursor=X&per_page=100]
func (c *Client) pageURL(req Request, cursor string) string {
	u := c.baseURL + "/admin/" + req.Resource + req.Suffix
	if !req.Paginate {
		return u
	}

	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	q.Set("per_page", strconv.Itoa(PerPage))
	return u + "?" + q.Encode()
}

func (c *Client) fail(reqURL string, err error) error {
	c.logger.Warn("UserVoice request failed", zap.String("url", reqURL), zap.Error(err))
	return fmt.Errorf("%w: %w", ErrNoResult, err)
}

func (c *Client) progressFor(resource string) Progress {
	if c.progress == nil {
		return nopProgress{}
	}
	if p := c.progress(resource); p != nil {
		return p
	}
	return nopProgress{}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
