// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// Client
// =============================================================================

// Client issues signed requests against the COS data plane. It is safe for
// concurrent use; every request is signed independently with a fresh window.
type Client struct {
	config  Config
	signer  *Signer
	http    *http.Client
	logger  zerolog.Logger
	metrics *Metrics

	// now is the clock used to choose signing windows. Overridable in tests.
	now func() time.Time
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "cos-client").Logger()
	}
}

// WithMetrics attaches request metrics.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to install a
// custom transport. The configured timeout still applies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient validates the configuration and creates a Client.
func NewClient(config Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		config: config,
		signer: NewSigner(config.Credentials),
		http:   &http.Client{Timeout: timeout},
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = timeout

	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// =============================================================================
// Request Execution
// =============================================================================

// Get issues a signed GET request.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, nil)
}

// Put issues a signed PUT request.
func (c *Client) Put(ctx context.Context, path string, params map[string]string, headers map[string]string, body io.Reader) (*http.Response, error) {
	return c.do(ctx, http.MethodPut, path, params, headers, body)
}

// Post issues a signed POST request.
func (c *Client) Post(ctx context.Context, path string, params map[string]string, headers map[string]string, body io.Reader) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, params, headers, body)
}

// Delete issues a signed DELETE request.
func (c *Client) Delete(ctx context.Context, path string, params map[string]string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path, params, nil, nil)
}

// Head issues a signed HEAD request.
func (c *Client) Head(ctx context.Context, path string, params map[string]string) (*http.Response, error) {
	return c.do(ctx, http.MethodHead, path, params, nil, nil)
}

// do signs and sends one request. Paths starting with "/" target the bucket
// endpoint; anything else targets the region service endpoint. Retries are
// deliberately absent: a retried request must be re-signed with a fresh
// window, which is the caller's decision.
func (c *Client) do(ctx context.Context, method, path string, params, headers map[string]string, body io.Reader) (*http.Response, error) {
	reqURL, host := c.buildURL(path, params)

	// Headers included in the signature.
	signedHeaders := make(map[string]string, len(headers)+3)
	for k, v := range headers {
		signedHeaders[k] = v
	}
	signedHeaders["Host"] = host
	signedHeaders["User-Agent"] = UserAgent
	if c.config.Credentials.SessionToken != "" {
		signedHeaders[SecurityTokenHeader] = c.config.Credentials.SessionToken
	}

	now := c.now().UTC()
	start := now.Add(-DefaultSignWindowLead)
	end := now.Add(DefaultSignWindowLifetime)

	authorization, err := c.signer.Sign(method, path, signedHeaders, params, start, end)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, newError(KindMalformedURI, "cannot build request", err)
	}
	for k, v := range signedHeaders {
		req.Header.Set(k, v)
	}
	req.Host = host
	req.Header.Set(AuthorizationHeader, authorization)

	// The transport derives ContentLength only for in-memory readers and
	// otherwise sends the body chunked without a Content-Length header. A
	// signed Content-Length must reach the wire, so set it explicitly.
	for k, v := range signedHeaders {
		if strings.EqualFold(k, "Content-Length") {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, newError(KindConfig, fmt.Sprintf("invalid Content-Length %q", v), err)
			}
			req.ContentLength = n
		}
	}

	began := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(began).Seconds()
	if err != nil {
		c.metrics.observe(method, 0, elapsed)
		return nil, classifyTransportError(err)
	}
	c.metrics.observe(method, resp.StatusCode, elapsed)

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeServerError(resp)
	}

	return resp, nil
}

// buildURL assembles the request URL and returns it with the target host.
// Every query value is percent-encoded here, at transport time.
func (c *Client) buildURL(path string, params map[string]string) (string, string) {
	base, host := c.config.ServiceURL(), c.config.ServiceHost()
	if strings.HasPrefix(path, "/") {
		base, host = c.config.BucketURL(), c.config.BucketHost()
	}

	u := base + path
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+encodeURIComponent(params[k]))
		}
		u += "?" + strings.Join(pairs, "&")
	}
	return u, host
}

// =============================================================================
// Error Classification
// =============================================================================

// serverErrorBody is the COS XML error document.
type serverErrorBody struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
}

// decodeServerError turns a non-2xx response into a server-kind error,
// preserving the COS error code and request ID when the body carries them.
func decodeServerError(resp *http.Response) *Error {
	e := &Error{
		Kind:       KindServer,
		StatusCode: resp.StatusCode,
		Message:    resp.Status,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return e
	}

	var parsed serverErrorBody
	if xml.Unmarshal(body, &parsed) == nil && parsed.Code != "" {
		e.Code = parsed.Code
		e.Message = parsed.Message
		e.RequestID = parsed.RequestID
	}
	return e
}

// classifyTransportError maps a failed round trip onto the error taxonomy.
// Timeouts are detected structurally via net.Error, never by inspecting the
// rendered message.
func classifyTransportError(err error) *Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, "request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, "request deadline exceeded", err)
	}
	return newError(KindTransport, fmt.Sprintf("request failed: %v", err), err)
}
