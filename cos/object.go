// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
)

// =============================================================================
// Input/Output Structs
// =============================================================================

// PutObjectInput contains the data needed to upload an object.
type PutObjectInput struct {
	// Key is the object key, without a leading slash.
	Key string

	// Body is the object content.
	Body io.Reader

	// ContentLength is the size of Body in bytes.
	ContentLength int64

	// ContentType is the MIME type. Empty means application/octet-stream.
	ContentType string
}

// PutObjectOutput contains the result of uploading an object.
type PutObjectOutput struct {
	ETag      string
	VersionID string
}

// GetObjectOutput contains a downloaded object and its metadata.
type GetObjectOutput struct {
	Body          []byte
	ContentLength int64
	ContentType   string
	ETag          string
	LastModified  string
}

// HeadObjectOutput contains object metadata.
type HeadObjectOutput struct {
	ContentLength int64
	ContentType   string
	ETag          string
	LastModified  string
}

// DeleteObjectOutput contains the result of deleting an object.
type DeleteObjectOutput struct {
	VersionID    string
	DeleteMarker bool
}

// =============================================================================
// Object Operations
// =============================================================================

// PutObject uploads an object.
func (c *Client) PutObject(ctx context.Context, input PutObjectInput) (*PutObjectOutput, error) {
	headers := map[string]string{
		"Content-Length": strconv.FormatInt(input.ContentLength, 10),
	}
	if input.ContentType != "" {
		headers["Content-Type"] = input.ContentType
	}

	resp, err := c.Put(ctx, "/"+input.Key, nil, headers, input.Body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return &PutObjectOutput{
		ETag:      resp.Header.Get("Etag"),
		VersionID: resp.Header.Get(VersionIDHeader),
	}, nil
}

// PutObjectFromFile uploads a local file, inferring the content type from the
// file extension when contentType is empty.
func (c *Client) PutObjectFromFile(ctx context.Context, key, path, contentType string) (*PutObjectOutput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindTransport, fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newError(KindTransport, fmt.Sprintf("cannot stat %s", path), err)
	}

	if contentType == "" {
		contentType = DetectContentType(path)
	}

	return c.PutObject(ctx, PutObjectInput{
		Key:           key,
		Body:          f,
		ContentLength: info.Size(),
		ContentType:   contentType,
	})
}

// GetObject downloads an object.
func (c *Client) GetObject(ctx context.Context, key string) (*GetObjectOutput, error) {
	resp, err := c.Get(ctx, "/"+key, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindTransport, "cannot read response body", err)
	}

	length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if length == 0 {
		length = int64(len(body))
	}

	return &GetObjectOutput{
		Body:          body,
		ContentLength: length,
		ContentType:   resp.Header.Get("Content-Type"),
		ETag:          resp.Header.Get("Etag"),
		LastModified:  resp.Header.Get("Last-Modified"),
	}, nil
}

// GetObjectToFile downloads an object into a local file.
func (c *Client) GetObjectToFile(ctx context.Context, key, path string) error {
	out, err := c.GetObject(ctx, key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out.Body, 0o644); err != nil {
		return newError(KindTransport, fmt.Sprintf("cannot write %s", path), err)
	}
	return nil
}

// HeadObject fetches object metadata.
func (c *Client) HeadObject(ctx context.Context, key string) (*HeadObjectOutput, error) {
	resp, err := c.Head(ctx, "/"+key, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)

	return &HeadObjectOutput{
		ContentLength: length,
		ContentType:   resp.Header.Get("Content-Type"),
		ETag:          resp.Header.Get("Etag"),
		LastModified:  resp.Header.Get("Last-Modified"),
	}, nil
}

// ObjectExists reports whether an object exists. A 404 from the server maps
// to false; every other failure propagates.
func (c *Client) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := c.HeadObject(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteObject deletes a single object.
func (c *Client) DeleteObject(ctx context.Context, key string) (*DeleteObjectOutput, error) {
	resp, err := c.Delete(ctx, "/"+key, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	marker, _ := strconv.ParseBool(resp.Header.Get(DeleteMarkerHeader))

	return &DeleteObjectOutput{
		VersionID:    resp.Header.Get(VersionIDHeader),
		DeleteMarker: marker,
	}, nil
}

// =============================================================================
// Batch Delete
// =============================================================================

// deleteRequest is the XML body of a batch delete.
type deleteRequest struct {
	XMLName xml.Name       `xml:"Delete"`
	Quiet   bool           `xml:"Quiet"`
	Objects []deleteTarget `xml:"Object"`
}

type deleteTarget struct {
	Key string `xml:"Key"`
}

// DeleteObjectsOutput lists per-key results of a batch delete.
type DeleteObjectsOutput struct {
	XMLName xml.Name        `xml:"DeleteResult"`
	Deleted []DeletedObject `xml:"Deleted"`
	Errors  []DeleteFailure `xml:"Error"`
}

// DeletedObject is one successfully deleted key.
type DeletedObject struct {
	Key          string `xml:"Key"`
	VersionID    string `xml:"VersionId"`
	DeleteMarker bool   `xml:"DeleteMarker"`
}

// DeleteFailure is one key the server failed to delete.
type DeleteFailure struct {
	Key     string `xml:"Key"`
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

// DeleteObjects deletes up to 1000 objects in one request.
func (c *Client) DeleteObjects(ctx context.Context, keys []string) (*DeleteObjectsOutput, error) {
	req := deleteRequest{Objects: make([]deleteTarget, 0, len(keys))}
	for _, k := range keys {
		req.Objects = append(req.Objects, deleteTarget{Key: k})
	}

	body, err := xml.Marshal(req)
	if err != nil {
		return nil, newError(KindDecode, "cannot serialize delete request", err)
	}

	params := map[string]string{"delete": ""}
	headers := map[string]string{
		"Content-Type":   "application/xml",
		"Content-Length": strconv.Itoa(len(body)),
	}

	resp, err := c.Post(ctx, "/", params, headers, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out DeleteObjectsOutput
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, newError(KindDecode, "cannot parse delete result", err)
	}
	return &out, nil
}
