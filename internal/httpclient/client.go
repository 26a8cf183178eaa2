// Package httpclient provides the HTTP session used against the upstream:
// a client with transparent decompression, a fixed synthetic User-Agent,
// per-request timeouts, and a retry policy that recovers from expired
// segment base URLs by refreshing the stream catalog and rewriting the
// failed request URL.
package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultRetryAttempts bounds base-URL refresh retries for a single
// request.
const DefaultRetryAttempts = 3

// UserAgent is the fixed synthetic User-Agent sent with every request.
const UserAgent = "Mozilla/5.0 (Android 14; Mobile; rv:68.0) Gecko/68.0 Firefox/120.0"

// segmentURLPattern matches the shape of segment URLs; only requests of
// this shape participate in the refresh-and-retry policy.
var segmentURLPattern = regexp.MustCompile(`https://.+/videoplayback/.+`)

// MaxRetryError is returned when the refresh-and-retry policy could not
// recover a request within the retry budget.
type MaxRetryError struct {
	Response *http.Response
}

func (e *MaxRetryError) Error() string {
	if e.Response != nil && e.Response.Request != nil {
		return fmt.Sprintf("maximum number of retries exceeded with URL: %s", e.Response.Request.URL)
	}
	return "maximum number of retries exceeded"
}

// ProtocolError indicates the upstream violated an expected protocol
// invariant, such as a missing head cursor header.
type ProtocolError struct {
	What string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("upstream protocol violation: %s", e.What)
}

// RefreshPolicy supplies the callbacks the retry policy needs to recover
// from expired base URLs. The refresh callback is expected to be
// idempotent: the first retrying request after a refresh benefits
// subsequent requests without further refreshes.
type RefreshPolicy interface {
	// Refresh re-fetches the stream info and publishes fresh base URLs.
	Refresh(ctx context.Context) error
	// ItagByURLPrefix identifies the representation whose base URL was
	// the prefix of the failed request URL.
	ItagByURLPrefix(url string) (itag string, baseURL string, ok bool)
	// BaseURLByItag returns the (refreshed) base URL for an itag.
	BaseURLByItag(itag string) (string, bool)
}

// Config holds the configuration for the HTTP session.
type Config struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RetryAttempts bounds refresh retries per request.
	RetryAttempts int

	// Refresh enables the expired-base-URL recovery policy when set.
	Refresh RefreshPolicy

	// Logger is the structured logger for request/response logging.
	Logger *slog.Logger

	// EnableDecompression enables automatic response decompression.
	EnableDecompression bool

	// BaseClient is the underlying http.Client. If nil, a default client
	// is created.
	BaseClient *http.Client
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		RetryAttempts:       DefaultRetryAttempts,
		Logger:              slog.Default(),
		EnableDecompression: true,
	}
}

// Client is the upstream HTTP session.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new session with the given configuration.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}

	baseClient := cfg.BaseClient
	if baseClient == nil {
		baseClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		config: cfg,
		client: baseClient,
		logger: cfg.Logger,
	}
}

// NewWithDefaults creates a new session with default configuration.
func NewWithDefaults() *Client {
	return New(DefaultConfig())
}

// SetRefreshPolicy installs the expired-base-URL recovery policy. Used to
// break the construction cycle between the session and the playback that
// owns the catalog.
func (c *Client) SetRefreshPolicy(policy RefreshPolicy) {
	c.config.Refresh = policy
}

// Do executes an HTTP request. A 403 response to a segment-shaped URL
// triggers the refresh-and-retry policy; retries are serialized with the
// failing request and bounded by the configured retry budget.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	if c.config.EnableDecompression && req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncodingHeader)
	}

	retries := 0
	for {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}

		if !c.shouldRefresh(resp) {
			if c.config.EnableDecompression {
				resp.Body = wrapDecompression(resp)
			}
			return resp, nil
		}

		if retries >= c.config.RetryAttempts {
			return nil, &MaxRetryError{Response: resp}
		}

		rewritten, err := c.refreshAndRewrite(req)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body.Close()
		req = rewritten
		retries++

		c.logger.Debug("received 403 for segment url, refreshed and retrying",
			slog.String("url", req.URL.String()),
			slog.Int("retries", retries),
		)
	}
}

func (c *Client) shouldRefresh(resp *http.Response) bool {
	if c.config.Refresh == nil || resp.StatusCode != http.StatusForbidden {
		return false
	}
	return segmentURLPattern.MatchString(resp.Request.URL.String())
}

// refreshAndRewrite invokes the catalog refresh and substitutes the stale
// base URL prefix of the request with the refreshed one.
func (c *Client) refreshAndRewrite(req *http.Request) (*http.Request, error) {
	policy := c.config.Refresh
	oldURL := req.URL.String()

	itag, oldBase, ok := policy.ItagByURLPrefix(oldURL)
	if !ok {
		return nil, fmt.Errorf("no representation matches failed URL %s", oldURL)
	}

	if err := policy.Refresh(req.Context()); err != nil {
		return nil, fmt.Errorf("refreshing stream info: %w", err)
	}

	newBase, ok := policy.BaseURLByItag(itag)
	if !ok {
		return nil, fmt.Errorf("representation with itag %q disappeared after refresh", itag)
	}

	newURL := strings.Replace(oldURL, oldBase, newBase, 1)
	rewritten, err := http.NewRequestWithContext(req.Context(), req.Method, newURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rewriting request URL: %w", err)
	}
	rewritten.Header = req.Header.Clone()
	return rewritten, nil
}

// Get performs a GET request to the specified URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// Head performs a HEAD request to the specified URL.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// HeadSequence probes the upstream head cursor: a HEAD of the base URL
// returns the current live segment number in the X-Head-Seqnum header.
// A missing or malformed header is a ProtocolError.
func (c *Client) HeadSequence(ctx context.Context, baseURL string) (int64, error) {
	resp, err := c.Head(ctx, baseURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw := resp.Header.Get("X-Head-Seqnum")
	if raw == "" {
		return 0, &ProtocolError{What: "'X-Head-Seqnum' header value is missing"}
	}
	head, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ProtocolError{What: fmt.Sprintf("malformed 'X-Head-Seqnum' header value %q", raw)}
	}
	return head, nil
}

// StandardClient returns a standard *http.Client that routes through this
// session, for code that accepts a plain client.
func (c *Client) StandardClient() *http.Client {
	return &http.Client{
		Transport: &sessionTransport{client: c},
		Timeout:   c.config.Timeout,
	}
}

type sessionTransport struct {
	client *Client
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}
