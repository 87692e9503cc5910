// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// =============================================================================
// Canonical Request Building
// =============================================================================

// buildHTTPString serializes a request into the canonical 4-line form the
// server reconstructs to verify the signature:
//
//	lowercased-method \n encoded-path \n sorted-params \n sorted-headers \n
//
// The trailing newline is significant. The result is byte-identical across
// invocations for identical inputs.
func buildHTTPString(method, path string, headers, params map[string]string) (string, error) {
	canonicalPath, err := encodeURIPath(path)
	if err != nil {
		return "", err
	}

	return strings.ToLower(method) + "\n" +
		canonicalPath + "\n" +
		sortedEncodedPairs(params) + "\n" +
		sortedEncodedPairs(headers) + "\n", nil
}

// encodeURIPath canonicalizes a request path: percent-decode, then re-encode
// per URL path rules, so arbitrary input never ends up double-encoded.
func encodeURIPath(path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", newError(KindMalformedURI, fmt.Sprintf("cannot parse path %q", path), ErrMalformedURI)
	}
	return u.EscapedPath(), nil
}

// sortedEncodedPairs builds the canonical key=value string for headers or
// query parameters: keys lower-cased, entries sorted by lower-cased key,
// values percent-encoded, joined with "&".
//
// Keys differing only in case sort by their original bytes, so the result
// stays deterministic even though map inputs carry no insertion order.
func sortedEncodedPairs(kv map[string]string) string {
	if len(kv) == 0 {
		return ""
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := strings.ToLower(keys[i]), strings.ToLower(keys[j])
		if li != lj {
			return li < lj
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, strings.ToLower(k)+"="+encodeURIComponent(kv[k]))
	}
	return strings.Join(pairs, "&")
}

// sortedKeyList builds the semicolon-joined, sorted, lower-cased key list
// required by the q-header-list and q-url-param-list authorization fields.
func sortedKeyList(kv map[string]string) string {
	if len(kv) == 0 {
		return ""
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

// encodeURIComponent percent-encodes a value with RFC 3986 rules. The COS
// server decodes strict percent-encoding, so space must become %20, never +.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
