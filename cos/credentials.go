// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

// Credentials holds a COS signing identity. Immutable once constructed; the
// signer and client only ever read it.
type Credentials struct {
	// SecretID is the access key ID.
	SecretID string

	// SecretKey is the access key secret.
	SecretKey string

	// SessionToken is the security token accompanying temporary credentials.
	// Empty for permanent credentials.
	SessionToken string
}

// NewCredentials creates a permanent signing identity.
func NewCredentials(secretID, secretKey string) Credentials {
	return Credentials{SecretID: secretID, SecretKey: secretKey}
}

// NewSessionCredentials creates a temporary signing identity with a session
// token, as issued by the STS control plane.
func NewSessionCredentials(secretID, secretKey, token string) Credentials {
	return Credentials{SecretID: secretID, SecretKey: secretKey, SessionToken: token}
}
