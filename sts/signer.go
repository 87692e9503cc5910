// Package sts obtains temporary COS credentials from the Tencent Cloud STS
// control-plane API.
package sts

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"strings"
)

// =============================================================================
// Control-Plane Request Signing
// =============================================================================

// canonicalQueryString flattens the parameter set for signing: any existing
// Signature entry is dropped, remaining keys sort case-sensitively byte-wise,
// and entries join as raw key=value pairs.
//
// Values are deliberately NOT percent-encoded here. The control-plane
// algorithm signs the unencoded joined string; encoding happens only when the
// final URL is assembled. This is the opposite of the data-plane scheme and
// the two must never share an encoder.
func canonicalQueryString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == signatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

// signRequest computes the base64 HMAC-SHA1 signature for a control-plane
// request over the fixed template "{METHOD}{host}/?{canonicalQueryString}".
func signRequest(method, host string, params map[string]string, secretKey string) string {
	stringToSign := strings.ToUpper(method) + host + "/?" + canonicalQueryString(params)

	mac := hmac.New(sha1.New, []byte(secretKey))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
