package sts

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifyQuerySignature re-derives the control-plane signature from the
// received request, independently of the client's signer.
func verifyQuerySignature(t *testing.T, r *http.Request, secretKey string) {
	t.Helper()

	query := r.URL.Query()
	signature := query.Get("Signature")
	require.NotEmpty(t, signature, "missing Signature parameter")

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "Signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query.Get(k))
	}
	stringToSign := r.Method + r.Host + "/?" + strings.Join(pairs, "&")

	mac := hmac.New(sha1.New, []byte(secretKey))
	mac.Write([]byte(stringToSign))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	require.Equal(t, want, signature, "signature mismatch over %q", stringToSign)
}

func newFakeSTS(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	host := strings.TrimPrefix(server.URL, "http://")
	client, err := NewClient("test_secret_id", "test_secret_key", "ap-beijing",
		WithHost(host), WithInsecureHTTP())
	require.NoError(t, err)

	client.now = func() time.Time { return time.Unix(1234567890, 0) }
	client.nonce = func() uint64 { return 42 }
	return client
}

func TestClient_GetCredentials(t *testing.T) {
	var captured *http.Request
	client := newFakeSTS(t, func(w http.ResponseWriter, r *http.Request) {
		verifyQuerySignature(t, r, "test_secret_key")
		captured = r.Clone(context.Background())
		fmt.Fprint(w, `{"Response":{
			"Credentials":{"TmpSecretId":"tmp-id","TmpSecretKey":"tmp-key","Token":"tmp-token"},
			"ExpiredTime":1234569690,
			"Expiration":"2009-02-13T23:56:30Z",
			"RequestId":"req-sts-1"}}`)
	})

	creds, err := client.GetCredentials(context.Background(), GetCredentialsRequest{
		Policy: AllowPutObject("assets-1250000000", "uploads/"),
		Name:   "unit-test",
	})
	require.NoError(t, err)

	assert.Equal(t, "tmp-id", creds.TmpSecretID)
	assert.Equal(t, "tmp-key", creds.TmpSecretKey)
	assert.Equal(t, "tmp-token", creds.Token)
	assert.Equal(t, int64(1234569690), creds.ExpiredTime, "expiry backfilled from the envelope")

	require.NotNil(t, captured)
	query := captured.URL.Query()
	assert.Equal(t, "GetFederationToken", query.Get("Action"))
	assert.Equal(t, "2018-08-13", query.Get("Version"))
	assert.Equal(t, "ap-beijing", query.Get("Region"))
	assert.Equal(t, "test_secret_id", query.Get("SecretId"))
	assert.Equal(t, "1234567890", query.Get("Timestamp"))
	assert.Equal(t, "42", query.Get("Nonce"))
	assert.Equal(t, "unit-test", query.Get("Name"))
	assert.Equal(t, "1800", query.Get("DurationSeconds"), "zero duration falls back to the default")

	// The policy is percent-encoded before signing and again at transport
	// time, so the wire value decodes once to an encoded JSON document.
	policy := query.Get("Policy")
	assert.True(t, strings.HasPrefix(policy, "%7B"), "Policy = %q, want once-encoded JSON", policy)
	assert.Contains(t, captured.URL.RawQuery, "Policy=%257B")
}

func TestClient_GetCredentials_GeneratedSessionName(t *testing.T) {
	var name string
	client := newFakeSTS(t, func(w http.ResponseWriter, r *http.Request) {
		verifyQuerySignature(t, r, "test_secret_key")
		name = r.URL.Query().Get("Name")
		fmt.Fprint(w, `{"Response":{"Credentials":{"TmpSecretId":"a","TmpSecretKey":"b","Token":"c","ExpiredTime":1}}}`)
	})

	_, err := client.GetCredentials(context.Background(), GetCredentialsRequest{
		Policy: AllowGetObject("assets-1250000000", ""),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "tencos-"), "Name = %q, want generated session name", name)
}

func TestClient_GetCredentials_APIError(t *testing.T) {
	client := newFakeSTS(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Response":{
			"Error":{"Code":"AuthFailure.SignatureFailure","Message":"signature expired"},
			"RequestId":"req-sts-2"}}`)
	})

	_, err := client.GetCredentials(context.Background(), GetCredentialsRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "AuthFailure.SignatureFailure", apiErr.Code)
	assert.Equal(t, "signature expired", apiErr.Message)
	assert.Equal(t, "req-sts-2", apiErr.RequestID)
}

func TestClient_GetCredentials_NoCredentials(t *testing.T) {
	client := newFakeSTS(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Response":{"RequestId":"req-sts-3"}}`)
	})

	_, err := client.GetCredentials(context.Background(), GetCredentialsRequest{})
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name               string
		id, key, region    string
	}{
		{"missing secret id", "", "key", "region"},
		{"missing secret key", "id", "", "region"},
		{"missing region", "id", "key", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.id, tt.key, tt.region)
			assert.Error(t, err)
		})
	}
}
