// Package client provides the EDGAR HTTP transport. Every outbound request
// acquires the shared request budget, carries the identity headers EDGAR
// requires and is retried with exponential backoff on transient failures.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/sec-edgar-client/internal/fsutil"
	"github.com/Sternrassler/sec-edgar-client/pkg/cache"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/Sternrassler/sec-edgar-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for EDGAR client operations.
var (
	edgarRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_requests_total",
		Help: "Total EDGAR requests by host and status",
	}, []string{"host", "status"})

	edgarRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edgar_request_duration_seconds",
		Help:    "EDGAR request duration in seconds by host",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"host"})

	edgarErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_errors_total",
		Help: "Total EDGAR request errors by class",
	}, []string{"class"})
)

const (
	// DefaultHost is the Host header for the data.sec.gov API family.
	DefaultHost = "data.sec.gov"

	// DefaultTimeout bounds the wait for response headers. Bodies are not
	// bounded so bulk archives can stream for as long as they need.
	DefaultTimeout = 30 * time.Second
)

// Client is the rate-limited EDGAR transport.
type Client struct {
	httpClient *http.Client
	budget     ratelimit.Budget
	cache      cache.Store
	baseHeader http.Header
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header (REQUIRED by EDGAR)
	// Format: "<entity name> <contact address>", e.g. "Sample Co admin@sample.com"
	UserAgent string

	// Budget is the shared request budget. When nil a private in-process
	// window of RequestsPerSecond is created.
	Budget ratelimit.Budget

	// RequestsPerSecond sizes the default budget.
	RequestsPerSecond int

	// Retry policy for transient failures
	Retry RetryConfig

	// Timeout for response headers
	Timeout time.Duration

	// Cache is an optional store consulted by GetJSON.
	Cache    cache.Store
	CacheTTL time.Duration // Used when a response has no Expires header

	// Host is the default Host header.
	Host string

	// HTTPClient overrides the underlying client (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration that stays within the EDGAR
// fair-access policy.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:         userAgent,
		RequestsPerSecond: ratelimit.DefaultRequestsPerSecond,
		Retry:             DefaultRetryConfig(),
		Timeout:           DefaultTimeout,
		CacheTTL:          cache.DefaultTTL,
		Host:              DefaultHost,
	}
}

// Request describes one outbound call. Header entries override the base
// headers of the client.
type Request struct {
	Method string
	URL    string
	Header http.Header
}

// Response is a fully read, decoded response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// New creates a new EDGAR client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Retry = cfg.Retry.withDefaults()

	budget := cfg.Budget
	if budget == nil {
		budget = ratelimit.NewWindow(cfg.RequestsPerSecond, ratelimit.DefaultWindow)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		}
	}

	baseHeader := http.Header{}
	// Set explicitly, so the transport leaves bodies encoded; see decodeBody.
	baseHeader.Set("Accept-Encoding", "gzip, deflate")
	baseHeader.Set("User-Agent", cfg.UserAgent)
	baseHeader.Set("Host", cfg.Host)

	return &Client{
		httpClient: httpClient,
		budget:     budget,
		cache:      cfg.Cache,
		baseHeader: baseHeader,
		config:     cfg,
		logger:     logging.NewLogger("edgar-client"),
	}, nil
}

// Do performs a request with rate limiting, retries and body decoding.
// Any status >= 400 is returned as a *TransportError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var out *Response
	err := c.do(ctx, req, func(resp *http.Response, body io.Reader) error {
		data, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		out = &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
			URL:        resp.Request.URL.String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get performs a GET request. host overrides the Host header when non-empty.
func (c *Client) Get(ctx context.Context, url, host string) (*Response, error) {
	return c.Do(ctx, newGet(url, host))
}

// GetJSON performs a GET request and decodes the JSON body into v. When a
// cache is configured, fresh entries are served without spending budget.
func (c *Client) GetJSON(ctx context.Context, url, host string, v any) error {
	key := cache.NewKey(url)

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("url", url).Dur("ttl", entry.TTL()).Msg("Cache hit")
			return decodeJSON(url, entry.Data, v)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", url).Msg("Cache get error")
		}
	}

	resp, err := c.Get(ctx, url, host)
	if err != nil {
		return err
	}
	if err := decodeJSON(url, resp.Body, v); err != nil {
		return err
	}

	if c.cache != nil {
		entry := cache.NewEntry(resp.Body, resp.Header, c.config.CacheTTL)
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("Failed to cache response")
		}
	}
	return nil
}

// Download streams the decoded body of url into dst and returns the number
// of bytes written. dst only appears once the body has been fully written.
func (c *Client) Download(ctx context.Context, url, host, dst string) (int64, error) {
	var written int64
	err := c.do(ctx, newGet(url, host), func(_ *http.Response, body io.Reader) error {
		return fsutil.WriteWith(dst, func(w io.Writer) error {
			n, err := io.Copy(w, body)
			written = n
			return err
		})
	})
	if err != nil {
		return 0, err
	}

	c.logger.Debug().Str("url", url).Str("path", dst).Int64("bytes", written).Msg("Downloaded")
	return written, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// UserAgent returns the identity string sent with every request.
func (c *Client) UserAgent() string {
	return c.config.UserAgent
}

func newGet(url, host string) Request {
	req := Request{Method: http.MethodGet, URL: url}
	if host != "" {
		req.Header = http.Header{"Host": []string{host}}
	}
	return req
}

// do runs one logical request. handle consumes the decoded body of a
// successful response and may be called once per attempt.
func (c *Client) do(ctx context.Context, req Request, handle func(*http.Response, io.Reader) error) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	header := c.mergeHeaders(req.Header)

	return retryWithBackoff(ctx, c.config.Retry, c.logger, func(attempt int) error {
		if err := c.budget.Acquire(ctx); err != nil {
			class := ErrorClassNetwork
			if ctx.Err() != nil {
				class = ErrorClassClient
			}
			return &TransportError{
				Method:     method,
				URL:        req.URL,
				ErrorClass: class,
				Err:        fmt.Errorf("acquire request budget: %w", err),
			}
		}
		return c.attempt(ctx, method, req.URL, header, attempt, handle)
	})
}

// mergeHeaders returns the base headers with override entries replacing
// any base entry of the same name.
func (c *Client) mergeHeaders(override http.Header) http.Header {
	merged := c.baseHeader.Clone()
	for name, values := range override {
		merged.Del(name)
		for _, v := range values {
			merged.Add(name, v)
		}
	}
	return merged
}

func (c *Client) attempt(ctx context.Context, method, url string, header http.Header, attempt int, handle func(*http.Response, io.Reader) error) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return &TransportError{Method: method, URL: url, ErrorClass: ErrorClassClient, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header = header.Clone()
	if host := header.Get("Host"); host != "" {
		// net/http ignores a Host entry in Header
		httpReq.Host = host
	}
	host := httpReq.Host
	if host == "" {
		host = httpReq.URL.Host
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("attempt", attempt).
		Msg("Executing EDGAR request")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	edgarRequestDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, url, ctxErr)
		}
		edgarRequestsTotal.WithLabelValues(host, "network_error").Inc()
		edgarErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return &TransportError{Method: method, URL: url, ErrorClass: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	edgarRequestsTotal.WithLabelValues(host, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		class := classifyStatus(resp.StatusCode)
		edgarErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Debug().
			Str("url", url).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("EDGAR request error")
		return &TransportError{Method: method, URL: url, StatusCode: resp.StatusCode, ErrorClass: class}
	}

	body, err := decodeBody(resp)
	if err != nil {
		class := ErrorClassNetwork
		if errors.Is(err, ErrUnsupportedEncoding) {
			class = ErrorClassClient
		}
		edgarErrorsTotal.WithLabelValues(string(class)).Inc()
		return &TransportError{Method: method, URL: url, StatusCode: resp.StatusCode, ErrorClass: class, Err: err}
	}
	defer body.Close()

	tracked := &trackingReader{r: body}
	if err := handle(resp, tracked); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, url, ctxErr)
		}
		if tracked.err != nil {
			// The body broke off mid-stream.
			edgarErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &TransportError{Method: method, URL: url, StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Err: err}
		}
		return fmt.Errorf("handle response from %s: %w", url, err)
	}
	return nil
}

// trackingReader remembers the first read error so body failures can be
// told apart from failures of the consumer.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

func decodeJSON(url string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
