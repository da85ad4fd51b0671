// Package api is the HTTP gateway to the explorer backend. A single Client is
// built at start-up and shared by every service of the process.
package api

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

	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/logging"
)

// DefaultTimeout bounds a single request when no other timeout is set.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  logging.Logger
}

type Option func(*options)

type options struct {
	base         http.RoundTripper
	timeout      time.Duration
	logger       logging.Logger
	unauthorized func(ctx context.Context)
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// OnUnauthorized registers fn to run right after a 401 cleared the token
// store, before the navigation to the login view.
func OnUnauthorized(fn func(ctx context.Context)) Option {
	return func(o *options) { o.unauthorized = fn }
}

// New builds a Client for baseURL. Every request carries the token from
// tokens; a 401 clears tokens and moves nav to the login view.
func New(baseURL string, tokens TokenSource, nav Navigator, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}

	o := options{
		base:    http.DefaultTransport,
		timeout: DefaultTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger.With("component", "api")
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: o.timeout,
			Transport: &authTransport{
				base:   o.base,
				tokens: tokens,
				nav:    nav,
				exempt: map[string]bool{
					u.Path + "/auth/login":    true,
					u.Path + "/auth/register": true,
				},
				unauthorized: o.unauthorized,
				logger:       logger,
			},
		},
		logger: logger,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request. in is JSON-encoded when non-nil; a 2xx body is
// decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "request done",
		"method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrNetwork, method, path, err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) (models.TokenResponse, error) {
	var out models.TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, models.Credentials{Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, models.Credentials{Email: email, Password: password}, nil)
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, query string) (models.SearchResponse, error) {
	var out models.SearchResponse
	err := c.do(ctx, http.MethodPost, "/search", nil, models.SearchRequest{Query: query}, &out)
	return out, err
}

func (c *Client) GenerateImage(ctx context.Context, prompt string) (models.ImageResponse, error) {
	var out models.ImageResponse
	err := c.do(ctx, http.MethodPost, "/image", nil, models.ImageRequest{Prompt: prompt}, &out)
	return out, err
}

func (c *Client) SaveSearch(ctx context.Context, query string, results []models.SearchItem) (models.SaveResponse, error) {
	var out models.SaveResponse
	in := models.SaveSearchRequest{Type: models.EntryTypeSearch, Query: query, Results: results}
	err := c.do(ctx, http.MethodPost, "/dashboard", nil, in, &out)
	return out, err
}

func (c *Client) SaveImage(ctx context.Context, prompt string, images []models.Image) (models.SaveResponse, error) {
	var out models.SaveResponse
	in := models.SaveImageRequest{Type: models.EntryTypeImage, Prompt: prompt, Images: images}
	err := c.do(ctx, http.MethodPost, "/dashboard", nil, in, &out)
	return out, err
}

// ListDashboard passes type, page and q through unchanged; an empty q is
// omitted.
func (c *Client) ListDashboard(ctx context.Context, f models.DashboardFilter) (models.DashboardPage, error) {
	q := url.Values{}
	q.Set("type", string(f.Type))
	q.Set("page", strconv.Itoa(f.Page))
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	var out models.DashboardPage
	err := c.do(ctx, http.MethodGet, "/dashboard", q, nil, &out)
	return out, err
}

func (c *Client) GetEntry(ctx context.Context, t models.EntryType, id int64) (models.Detail, error) {
	var out models.Detail
	err := c.do(ctx, http.MethodGet, entryPath(id), url.Values{"type": {string(t)}}, nil, &out)
	return out, err
}

func (c *Client) DeleteEntry(ctx context.Context, t models.EntryType, id int64) error {
	return c.do(ctx, http.MethodDelete, entryPath(id), url.Values{"type": {string(t)}}, nil, nil)
}

func (c *Client) CleanupUntitled(ctx context.Context) (models.CleanupResult, error) {
	var out models.CleanupResult
	err := c.do(ctx, http.MethodDelete, "/dashboard/cleanup-all", nil, nil, &out)
	return out, err
}

// Ping probes the backend root. Only reachability matters, so any HTTP
// response counts as success.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/", nil, nil, nil)
	if err != nil && errors.Is(err, ErrNetwork) {
		return err
	}
	return nil
}

func entryPath(id int64) string {
	return "/dashboard/" + strconv.FormatInt(id, 10)
}
