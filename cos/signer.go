// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Data-Plane Signer
// =============================================================================

// Signer computes q-sign-algorithm=sha1 authorization values for COS
// data-plane requests. It is stateless and safe for concurrent use; every
// call recomputes the signature from scratch.
type Signer struct {
	creds Credentials
}

// NewSigner creates a Signer for the given identity.
func NewSigner(creds Credentials) *Signer {
	return &Signer{creds: creds}
}

// Sign produces the authorization header value for a request. The signature
// is bound to the (start, end) validity window; the window is used verbatim,
// choosing one that brackets the request time is the caller's concern.
//
// The five steps below feed each other and must run in this order:
// KeyTime, SignKey, HttpString, StringToSign, Signature.
func (s *Signer) Sign(method, path string, headers, params map[string]string, start, end time.Time) (string, error) {
	// 1. KeyTime = "{start};{end}"
	keyTime := strconv.FormatInt(start.Unix(), 10) + ";" + strconv.FormatInt(end.Unix(), 10)

	// 2. SignKey = hex(HMAC-SHA1(secret, KeyTime))
	signKey := hmacSHA1Hex(s.creds.SecretKey, keyTime)

	// 3. HttpString: canonical request
	httpString, err := buildHTTPString(method, path, headers, params)
	if err != nil {
		return "", err
	}

	// 4. StringToSign = "sha1\n{KeyTime}\n{sha1hex(HttpString)}\n"
	stringToSign := SignAlgorithm + "\n" + keyTime + "\n" + sha1Hex(httpString) + "\n"

	// 5. Signature = hex(HMAC-SHA1(SignKey, StringToSign)), keyed with the
	// hex text of SignKey rather than its raw digest bytes.
	signature := hmacSHA1Hex(signKey, stringToSign)

	auth := strings.Join([]string{
		paramSignAlgorithm + "=" + SignAlgorithm,
		paramAccessKey + "=" + s.creds.SecretID,
		paramSignTime + "=" + keyTime,
		paramKeyTime + "=" + keyTime,
		paramHeaderList + "=" + sortedKeyList(headers),
		paramURLParamList + "=" + sortedKeyList(params),
		paramSignature + "=" + signature,
	}, "&")

	return auth, nil
}

// hmacSHA1Hex computes hex(HMAC-SHA1(key, message)).
func hmacSHA1Hex(key, message string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

// sha1Hex computes the lowercase hex SHA-1 digest of s.
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
