// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

import "time"

// =============================================================================
// Signing Constants
// =============================================================================

const (
	// SignAlgorithm is the algorithm tag embedded in every authorization value.
	SignAlgorithm = "sha1"

	// Authorization value parameter names, in the order they are emitted.
	paramSignAlgorithm = "q-sign-algorithm"
	paramAccessKey     = "q-ak"
	paramSignTime      = "q-sign-time"
	paramKeyTime       = "q-key-time"
	paramHeaderList    = "q-header-list"
	paramURLParamList  = "q-url-param-list"
	paramSignature     = "q-signature"

	// DefaultSignWindowLead is how far before "now" a signature window opens,
	// absorbing clock skew between client and server.
	DefaultSignWindowLead = 5 * time.Minute

	// DefaultSignWindowLifetime is how long past "now" a signature stays valid.
	DefaultSignWindowLifetime = 1 * time.Hour
)

// =============================================================================
// HTTP Constants
// =============================================================================

const (
	// AuthorizationHeader carries the signed authorization value.
	AuthorizationHeader = "Authorization"

	// SecurityTokenHeader carries the session token for temporary credentials.
	SecurityTokenHeader = "x-cos-security-token"

	// ACLHeader sets a canned ACL on bucket or object creation.
	ACLHeader = "x-cos-acl"

	// VersionIDHeader reports the version of an object in a versioned bucket.
	VersionIDHeader = "x-cos-version-id"

	// DeleteMarkerHeader reports whether a delete created a delete marker.
	DeleteMarkerHeader = "x-cos-delete-marker"

	// UserAgent identifies this client on every request.
	UserAgent = "tencos/" + Version
)

// Version is the client library version.
const Version = "0.3.0"

// =============================================================================
// Endpoint Templates
// =============================================================================

const (
	// bucketHostFormat is the virtual-hosted bucket endpoint: bucket, region.
	bucketHostFormat = "%s.cos.%s.myqcloud.com"

	// serviceHostFormat is the region service endpoint: region.
	serviceHostFormat = "cos.%s.myqcloud.com"
)
