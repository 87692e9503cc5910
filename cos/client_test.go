package cos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fakeSecretID  = "AKIDfake"
	fakeSecretKey = "fake_secret_key"
)

// verifyAuthorization re-derives the data-plane signature server-side from
// the received request, independently of the client's signer. A mismatch
// fails the test immediately.
func verifyAuthorization(t *testing.T, r *http.Request) {
	t.Helper()

	auth := r.Header.Get("Authorization")
	require.NotEmpty(t, auth, "missing Authorization header")

	fields := map[string]string{}
	for _, pair := range strings.Split(auth, "&") {
		k, v, ok := strings.Cut(pair, "=")
		require.True(t, ok, "malformed authorization field %q", pair)
		fields[k] = v
	}
	require.Equal(t, "sha1", fields["q-sign-algorithm"])
	require.Equal(t, fakeSecretID, fields["q-ak"])
	require.Equal(t, fields["q-sign-time"], fields["q-key-time"])

	keyTime := fields["q-sign-time"]

	// Reassemble the canonical request from what actually arrived.
	encode := func(s string) string {
		return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	}

	var headerPairs []string
	if fields["q-header-list"] != "" {
		keys := strings.Split(fields["q-header-list"], ";")
		require.True(t, sort.StringsAreSorted(keys), "header list not sorted")
		for _, k := range keys {
			value := r.Header.Get(k)
			if k == "host" {
				// Promoted off the header map by the server.
				value = r.Host
			} else {
				// Every other signed header must arrive on the wire; the
				// server has nothing else to reconstruct the value from.
				_, present := r.Header[http.CanonicalHeaderKey(k)]
				require.True(t, present, "signed header %q missing from wire request", k)
			}
			headerPairs = append(headerPairs, k+"="+encode(value))
		}
	}

	var paramPairs []string
	if fields["q-url-param-list"] != "" {
		keys := strings.Split(fields["q-url-param-list"], ";")
		require.True(t, sort.StringsAreSorted(keys), "param list not sorted")
		query := r.URL.Query()
		for _, k := range keys {
			paramPairs = append(paramPairs, k+"="+encode(query.Get(k)))
		}
	}

	httpString := strings.ToLower(r.Method) + "\n" +
		r.URL.EscapedPath() + "\n" +
		strings.Join(paramPairs, "&") + "\n" +
		strings.Join(headerPairs, "&") + "\n"

	mac := hmac.New(sha1.New, []byte(fakeSecretKey))
	mac.Write([]byte(keyTime))
	signKey := hex.EncodeToString(mac.Sum(nil))

	digest := sha1.Sum([]byte(httpString))
	stringToSign := "sha1\n" + keyTime + "\n" + hex.EncodeToString(digest[:]) + "\n"

	mac = hmac.New(sha1.New, []byte(signKey))
	mac.Write([]byte(stringToSign))
	want := hex.EncodeToString(mac.Sum(nil))

	require.Equal(t, want, fields["q-signature"],
		"signature mismatch for %s %s (canonical %q)", r.Method, r.URL.Path, httpString)
}

// newFakeServer starts an httptest COS endpoint backed by an in-memory
// object map. Every request's signature is verified before it is served.
func newFakeServer(t *testing.T) (*httptest.Server, map[string][]byte) {
	t.Helper()

	objects := map[string][]byte{}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verifyAuthorization(t, r)
			next.ServeHTTP(w, r)
		})
	})

	writeError := func(w http.ResponseWriter, status int, code string) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `<Error><Code>%s</Code><Message>%s</Message><RequestId>req-123</RequestId></Error>`, code, code)
	}

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Has("location") {
			fmt.Fprint(w, `<LocationConstraint>ap-beijing</LocationConstraint>`)
			return
		}

		var b strings.Builder
		b.WriteString(`<ListBucketResult><Name>assets-1250000000</Name><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>`)
		keys := make([]string, 0, len(objects))
		for k := range objects {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if p := query.Get("prefix"); p != "" && !strings.HasPrefix(k, p) {
				continue
			}
			fmt.Fprintf(&b, `<Contents><Key>%s</Key><Size>%d</Size><ETag>"etag-%s"</ETag></Contents>`, k, len(objects[k]), k)
		}
		b.WriteString(`</ListBucketResult>`)
		fmt.Fprint(w, b.String())
	})

	router.Post("/", func(w http.ResponseWriter, r *http.Request) {
		if !r.URL.Query().Has("delete") {
			writeError(w, http.StatusBadRequest, "InvalidRequest")
			return
		}
		var req struct {
			Objects []struct {
				Key string `xml:"Key"`
			} `xml:"Object"`
		}
		require.NoError(t, xmlDecode(r, &req))

		var b strings.Builder
		b.WriteString(`<DeleteResult>`)
		for _, o := range req.Objects {
			if _, ok := objects[o.Key]; ok {
				delete(objects, o.Key)
				fmt.Fprintf(&b, `<Deleted><Key>%s</Key></Deleted>`, o.Key)
			} else {
				fmt.Fprintf(&b, `<Error><Key>%s</Key><Code>NoSuchKey</Code><Message>missing</Message></Error>`, o.Key)
			}
		}
		b.WriteString(`</DeleteResult>`)
		fmt.Fprint(w, b.String())
	})

	router.Put("/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		body := new(bytes.Buffer)
		_, err := body.ReadFrom(r.Body)
		require.NoError(t, err)
		objects[key] = body.Bytes()
		w.Header().Set("Etag", `"etag-`+key+`"`)
		w.WriteHeader(http.StatusOK)
	})

	router.Get("/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		data, ok := objects[key]
		if !ok {
			writeError(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Etag", `"etag-`+key+`"`)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	})

	router.Head("/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		data, ok := objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Etag", `"etag-`+key+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
	})

	router.Delete("/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		delete(objects, key)
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, objects
}

func newTestClient(t *testing.T, server *httptest.Server, opts ...ClientOption) *Client {
	t.Helper()

	host := strings.TrimPrefix(server.URL, "http://")
	cfg := NewConfig(fakeSecretID, fakeSecretKey, "ap-beijing", "assets-1250000000").
		WithDomain(host).
		WithHTTP()

	client, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	return client
}

func TestClient_ObjectRoundTrip(t *testing.T) {
	server, objects := newFakeServer(t)
	client := newTestClient(t, server)
	ctx := context.Background()

	content := []byte("hello, object storage")
	put, err := client.PutObject(ctx, PutObjectInput{
		Key:           "greeting.txt",
		Body:          bytes.NewReader(content),
		ContentLength: int64(len(content)),
		ContentType:   "text/plain",
	})
	require.NoError(t, err)
	assert.Equal(t, `"etag-greeting.txt"`, put.ETag)
	assert.Equal(t, content, objects["greeting.txt"])

	got, err := client.GetObject(ctx, "greeting.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got.Body)
	assert.Equal(t, int64(len(content)), got.ContentLength)

	exists, err := client.ObjectExists(ctx, "greeting.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	head, err := client.HeadObject(ctx, "greeting.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), head.ContentLength)

	_, err = client.DeleteObject(ctx, "greeting.txt")
	require.NoError(t, err)
	assert.NotContains(t, objects, "greeting.txt")
}

func TestClient_PutObjectFromFile(t *testing.T) {
	var wireLength, wireType string
	var body []byte
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifyAuthorization(t, r)
		wireLength = r.Header.Get("Content-Length")
		wireType = r.Header.Get("Content-Type")
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = data
		w.Header().Set("Etag", `"etag-upload"`)
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := newTestClient(t, server)

	content := []byte("uploaded straight from the filesystem")
	path := filepath.Join(t.TempDir(), "upload.txt")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	out, err := client.PutObjectFromFile(context.Background(), "docs/upload.txt", path, "")
	require.NoError(t, err)
	assert.Equal(t, `"etag-upload"`, out.ETag)

	// A file body carries no implicit length; the signed Content-Length must
	// still arrive as a wire header with the real size.
	assert.Equal(t, strconv.Itoa(len(content)), wireLength)
	assert.Equal(t, "text/plain", wireType)
	assert.Equal(t, content, body)
}

func TestClient_ObjectExists_NotFound(t *testing.T) {
	server, _ := newFakeServer(t)
	client := newTestClient(t, server)

	exists, err := client.ObjectExists(context.Background(), "no-such-key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_ServerErrorDecoding(t *testing.T) {
	server, _ := newFakeServer(t)
	client := newTestClient(t, server)

	_, err := client.GetObject(context.Background(), "missing.bin")
	require.Error(t, err)

	assert.Equal(t, KindServer, KindOf(err))
	assert.True(t, IsNotFound(err))

	var cosErr *Error
	require.ErrorAs(t, err, &cosErr)
	assert.Equal(t, "NoSuchKey", cosErr.Code)
	assert.Equal(t, 404, cosErr.StatusCode)
	assert.Equal(t, "req-123", cosErr.RequestID)
}

func TestClient_ListObjects(t *testing.T) {
	server, objects := newFakeServer(t)
	client := newTestClient(t, server)
	ctx := context.Background()

	objects["logs/a.txt"] = []byte("a")
	objects["logs/b.txt"] = []byte("bb")
	objects["data/c.txt"] = []byte("ccc")

	out, err := client.ListObjects(ctx, ListObjectsOptions{Prefix: "logs/"})
	require.NoError(t, err)
	require.Len(t, out.Contents, 2)
	assert.Equal(t, "logs/a.txt", out.Contents[0].Key)
	assert.Equal(t, int64(2), out.Contents[1].Size)

	all, err := client.ListObjectsV2(ctx, ListObjectsV2Options{MaxKeys: 100})
	require.NoError(t, err)
	assert.Len(t, all.Contents, 3)
}

func TestClient_DeleteObjects(t *testing.T) {
	server, objects := newFakeServer(t)
	client := newTestClient(t, server)

	objects["a"] = []byte("1")
	objects["b"] = []byte("2")

	out, err := client.DeleteObjects(context.Background(), []string{"a", "b", "ghost"})
	require.NoError(t, err)
	assert.Len(t, out.Deleted, 2)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "ghost", out.Errors[0].Key)
	assert.Equal(t, "NoSuchKey", out.Errors[0].Code)
	assert.Empty(t, objects)
}

func TestClient_GetBucketLocation(t *testing.T) {
	server, _ := newFakeServer(t)
	client := newTestClient(t, server)

	location, err := client.GetBucketLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ap-beijing", location)
}

func TestClient_SessionTokenHeaderSigned(t *testing.T) {
	var sawToken string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifyAuthorization(t, r)
		sawToken = r.Header.Get(SecurityTokenHeader)
		list := r.Header.Get("Authorization")
		assert.Contains(t, list, SecurityTokenHeader, "token header must be in q-header-list")
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	host := strings.TrimPrefix(server.URL, "http://")
	cfg := NewConfig(fakeSecretID, fakeSecretKey, "ap-beijing", "assets-1250000000").
		WithDomain(host).
		WithHTTP().
		WithCredentials(NewSessionCredentials(fakeSecretID, fakeSecretKey, "tmp-token-xyz"))

	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.HeadObject(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "tmp-token-xyz", sawToken)
}

func TestClient_TimeoutClassification(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	host := strings.TrimPrefix(server.URL, "http://")
	cfg := NewConfig(fakeSecretID, fakeSecretKey, "ap-beijing", "assets-1250000000").
		WithDomain(host).
		WithHTTP().
		WithTimeout(20 * time.Millisecond)

	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.GetObject(context.Background(), "slow")
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestClient_RejectsInvalidConfig(t *testing.T) {
	_, err := NewClient(NewConfig("", "key", "r", "b"))
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}

// xmlDecode decodes a request body into v.
func xmlDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return xml.NewDecoder(r.Body).Decode(v)
}
