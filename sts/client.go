// Package sts obtains temporary COS credentials from the Tencent Cloud STS
// control-plane API.
package sts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// DefaultHost is the STS control-plane endpoint.
	DefaultHost = "sts.tencentcloudapi.com"

	// actionGetFederationToken requests temporary credentials.
	actionGetFederationToken = "GetFederationToken"

	// apiVersion is the STS API version date.
	apiVersion = "2018-08-13"

	// signatureParam is the query parameter carrying the signature. It is
	// always excluded from signing.
	signatureParam = "Signature"

	// DefaultDurationSeconds is the credential lifetime when none is given.
	DefaultDurationSeconds = 1800

	// DefaultTimeout bounds each control-plane request.
	DefaultTimeout = 30 * time.Second
)

// ErrNoCredentials indicates a successful response that carried no
// credential block.
var ErrNoCredentials = errors.New("sts: response carried no credentials")

// APIError is an error response from the STS service.
type APIError struct {
	// Code is the STS error code, e.g. "AuthFailure.SignatureFailure".
	Code string

	// Message describes the failure.
	Message string

	// RequestID identifies the failed request.
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("sts: %s: %s", e.Code, e.Message)
}

// =============================================================================
// Types
// =============================================================================

// TemporaryCredentials is a short-lived (id, secret, token) triple scoped by
// the policy it was requested with.
type TemporaryCredentials struct {
	// TmpSecretID is the temporary access key ID.
	TmpSecretID string `json:"TmpSecretId"`

	// TmpSecretKey is the temporary access key secret.
	TmpSecretKey string `json:"TmpSecretKey"`

	// Token is the security token to send with each data-plane request.
	Token string `json:"Token"`

	// ExpiredTime is the Unix expiry timestamp.
	ExpiredTime int64 `json:"ExpiredTime,omitempty"`
}

// GetCredentialsRequest asks for temporary credentials.
type GetCredentialsRequest struct {
	// Policy scopes what the issued credentials may do.
	Policy Policy

	// DurationSeconds is the credential lifetime. Zero means
	// DefaultDurationSeconds.
	DurationSeconds int

	// Name is the federation session name. Empty generates one.
	Name string
}

// response is the STS JSON envelope.
type response struct {
	Response struct {
		Credentials *TemporaryCredentials `json:"Credentials"`
		ExpiredTime int64                 `json:"ExpiredTime"`
		Expiration  string                `json:"Expiration"`
		RequestID   string                `json:"RequestId"`
		Error       *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
	} `json:"Response"`
}

// =============================================================================
// Client
// =============================================================================

// Client issues GetFederationToken requests. Safe for concurrent use.
type Client struct {
	secretID  string
	secretKey string
	region    string
	host      string
	insecure  bool
	http      *http.Client
	logger    zerolog.Logger

	// now and nonce are overridable in tests for deterministic requests.
	now   func() time.Time
	nonce func() uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "sts-client").Logger()
	}
}

// WithHost overrides the control-plane host.
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = host
	}
}

// WithInsecureHTTP switches the endpoint to plain HTTP. Only useful against
// local test endpoints.
func WithInsecureHTTP() Option {
	return func(c *Client) {
		c.insecure = true
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates an STS client for the given identity and region.
func NewClient(secretID, secretKey, region string, opts ...Option) (*Client, error) {
	if secretID == "" || secretKey == "" || region == "" {
		return nil, errors.New("sts: secret ID, secret key and region are required")
	}

	c := &Client{
		secretID:  secretID,
		secretKey: secretKey,
		region:    region,
		host:      DefaultHost,
		http:      &http.Client{Timeout: DefaultTimeout},
		logger:    zerolog.Nop(),
		now:       time.Now,
		nonce:     func() uint64 { return rand.Uint64() >> 1 },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetCredentials requests temporary credentials scoped by the policy.
func (c *Client) GetCredentials(ctx context.Context, req GetCredentialsRequest) (*TemporaryCredentials, error) {
	policyJSON, err := json.Marshal(req.Policy)
	if err != nil {
		return nil, fmt.Errorf("sts: cannot serialize policy: %w", err)
	}

	duration := req.DurationSeconds
	if duration <= 0 {
		duration = DefaultDurationSeconds
	}
	name := req.Name
	if name == "" {
		name = "tencos-" + uuid.NewString()
	}

	// The policy value is percent-encoded before signing; the server decodes
	// the transport layer once and verifies the signature over the encoded
	// value.
	params := map[string]string{
		"Action":          actionGetFederationToken,
		"Version":         apiVersion,
		"Region":          c.region,
		"SecretId":        c.secretID,
		"Timestamp":       strconv.FormatInt(c.now().Unix(), 10),
		"Nonce":           strconv.FormatUint(c.nonce(), 10),
		"Name":            name,
		"Policy":          encodeURIComponent(string(policyJSON)),
		"DurationSeconds": strconv.Itoa(duration),
	}

	params[signatureParam] = signRequest(http.MethodGet, c.host, params, c.secretKey)

	scheme := "https"
	if c.insecure {
		scheme = "http"
	}
	reqURL := scheme + "://" + c.host + "/?" + encodeQuery(params)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sts: cannot build request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sts: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sts: cannot read response: %w", err)
	}

	var envelope response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("sts: cannot parse response: %w", err)
	}

	if envelope.Response.Error != nil {
		return nil, &APIError{
			Code:      envelope.Response.Error.Code,
			Message:   envelope.Response.Error.Message,
			RequestID: envelope.Response.RequestID,
		}
	}

	creds := envelope.Response.Credentials
	if creds == nil {
		return nil, ErrNoCredentials
	}
	if creds.ExpiredTime == 0 {
		creds.ExpiredTime = envelope.Response.ExpiredTime
	}

	c.logger.Debug().
		Str("session", name).
		Int64("expired_time", creds.ExpiredTime).
		Msg("temporary credentials issued")

	return creds, nil
}

// encodeQuery percent-encodes every parameter, including the signature, for
// the final request URL. Encoding happens only here, never during signing.
func encodeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+encodeURIComponent(params[k]))
	}
	return strings.Join(pairs, "&")
}

// encodeURIComponent percent-encodes a value with RFC 3986 rules.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
