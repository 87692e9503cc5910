// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

import (
	"fmt"
	"time"
)

// Config holds client settings for one bucket in one region.
type Config struct {
	// Credentials is the signing identity.
	Credentials Credentials

	// Region is the COS region, e.g. "ap-beijing".
	Region string

	// Bucket is the bucket name including the numeric APPID suffix,
	// e.g. "assets-1250000000".
	Bucket string

	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration

	// UseHTTP switches endpoints to plain HTTP. HTTPS is the default.
	UseHTTP bool

	// Domain overrides the computed bucket endpoint with a custom domain.
	Domain string
}

// DefaultTimeout is the per-request timeout when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// NewConfig creates a Config with default timeout and HTTPS endpoints.
func NewConfig(secretID, secretKey, region, bucket string) Config {
	return Config{
		Credentials: NewCredentials(secretID, secretKey),
		Region:      region,
		Bucket:      bucket,
		Timeout:     DefaultTimeout,
	}
}

// WithCredentials replaces the signing identity, e.g. with temporary
// credentials issued by the STS control plane.
func (c Config) WithCredentials(creds Credentials) Config {
	c.Credentials = creds
	return c
}

// WithTimeout sets the per-request timeout.
func (c Config) WithTimeout(d time.Duration) Config {
	c.Timeout = d
	return c
}

// WithHTTP switches endpoints to plain HTTP.
func (c Config) WithHTTP() Config {
	c.UseHTTP = true
	return c
}

// WithDomain sets a custom domain for the bucket endpoint.
func (c Config) WithDomain(domain string) Config {
	c.Domain = domain
	return c
}

// Validate checks that every field the signer depends on is present.
// The client refuses to sign anything with an invalid configuration.
func (c Config) Validate() error {
	switch {
	case c.Credentials.SecretID == "":
		return newError(KindConfig, "secret ID cannot be empty", ErrConfig)
	case c.Credentials.SecretKey == "":
		return newError(KindConfig, "secret key cannot be empty", ErrConfig)
	case c.Region == "":
		return newError(KindConfig, "region cannot be empty", ErrConfig)
	case c.Bucket == "":
		return newError(KindConfig, "bucket cannot be empty", ErrConfig)
	}
	return nil
}

// scheme returns the URL scheme for the configured endpoints.
func (c Config) scheme() string {
	if c.UseHTTP {
		return "http"
	}
	return "https"
}

// BucketHost returns the host serving bucket-scoped requests.
func (c Config) BucketHost() string {
	if c.Domain != "" {
		return c.Domain
	}
	return fmt.Sprintf(bucketHostFormat, c.Bucket, c.Region)
}

// ServiceHost returns the host serving region-scoped (service) requests.
func (c Config) ServiceHost() string {
	return fmt.Sprintf(serviceHostFormat, c.Region)
}

// BucketURL returns the base URL for bucket-scoped requests.
func (c Config) BucketURL() string {
	return c.scheme() + "://" + c.BucketHost()
}

// ServiceURL returns the base URL for region-scoped (service) requests.
func (c Config) ServiceURL() string {
	return c.scheme() + "://" + c.ServiceHost()
}

// AppID returns the numeric account ID extracted from the bucket name suffix
// ("{name}-{appid}"), or "" when the bucket carries no numeric suffix.
func (c Config) AppID() string {
	_, appID := splitBucketName(c.Bucket)
	return appID
}

// splitBucketName splits "{name}-{appid}" on the last hyphen. When the
// trailing segment is not purely numeric the whole input is the base name and
// the appid is empty.
func splitBucketName(bucket string) (base, appID string) {
	for i := len(bucket) - 1; i >= 0; i-- {
		if bucket[i] == '-' {
			suffix := bucket[i+1:]
			if isDigits(suffix) {
				return bucket[:i], suffix
			}
			break
		}
	}
	return bucket, ""
}

// isDigits reports whether s is non-empty ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
