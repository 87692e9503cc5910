// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

import (
	"context"
	"encoding/xml"
	"strconv"
)

// =============================================================================
// Bucket ACL
// =============================================================================

// BucketACL is a canned access control value.
type BucketACL string

const (
	ACLPrivate           BucketACL = "private"
	ACLPublicRead        BucketACL = "public-read"
	ACLPublicReadWrite   BucketACL = "public-read-write"
	ACLAuthenticatedRead BucketACL = "authenticated-read"
)

// =============================================================================
// Bucket Operations
// =============================================================================

// CreateBucket creates the configured bucket, optionally with a canned ACL.
func (c *Client) CreateBucket(ctx context.Context, acl BucketACL) error {
	var headers map[string]string
	if acl != "" {
		headers = map[string]string{ACLHeader: string(acl)}
	}

	resp, err := c.Put(ctx, "/", nil, headers, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// DeleteBucket deletes the configured bucket. The server rejects deletion of
// a non-empty bucket.
func (c *Client) DeleteBucket(ctx context.Context) error {
	resp, err := c.Delete(ctx, "/", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// BucketExists reports whether the configured bucket exists.
func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	resp, err := c.Head(ctx, "/", nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

// GetBucketLocation returns the region the bucket lives in.
func (c *Client) GetBucketLocation(ctx context.Context) (string, error) {
	var out struct {
		XMLName  xml.Name `xml:"LocationConstraint"`
		Location string   `xml:",chardata"`
	}
	if err := c.getXML(ctx, map[string]string{"location": ""}, &out); err != nil {
		return "", err
	}
	return out.Location, nil
}

// =============================================================================
// Object Listing
// =============================================================================

// ListObjectsOptions narrows a ListObjects call.
type ListObjectsOptions struct {
	Prefix    string
	Delimiter string
	Marker    string
	MaxKeys   int
}

// ListObjectsOutput is the result of listing objects.
type ListObjectsOutput struct {
	XMLName        xml.Name       `xml:"ListBucketResult"`
	Name           string         `xml:"Name"`
	Prefix         string         `xml:"Prefix"`
	Marker         string         `xml:"Marker"`
	NextMarker     string         `xml:"NextMarker"`
	MaxKeys        int            `xml:"MaxKeys"`
	IsTruncated    bool           `xml:"IsTruncated"`
	Contents       []ObjectInfo   `xml:"Contents"`
	CommonPrefixes []CommonPrefix `xml:"CommonPrefixes"`
}

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

// CommonPrefix is one collapsed prefix in a delimited listing.
type CommonPrefix struct {
	Prefix string `xml:"Prefix"`
}

// ListObjects lists objects in the configured bucket.
func (c *Client) ListObjects(ctx context.Context, opts ListObjectsOptions) (*ListObjectsOutput, error) {
	params := map[string]string{}
	if opts.Prefix != "" {
		params["prefix"] = opts.Prefix
	}
	if opts.Delimiter != "" {
		params["delimiter"] = opts.Delimiter
	}
	if opts.Marker != "" {
		params["marker"] = opts.Marker
	}
	if opts.MaxKeys > 0 {
		params["max-keys"] = strconv.Itoa(opts.MaxKeys)
	}

	var out ListObjectsOutput
	if err := c.getXML(ctx, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListObjectsV2Options narrows a ListObjectsV2 call.
type ListObjectsV2Options struct {
	Prefix            string
	Delimiter         string
	ContinuationToken string
	StartAfter        string
	MaxKeys           int
}

// ListObjectsV2Output is the result of a list-type=2 listing.
type ListObjectsV2Output struct {
	XMLName               xml.Name       `xml:"ListBucketResult"`
	Name                  string         `xml:"Name"`
	Prefix                string         `xml:"Prefix"`
	KeyCount              int            `xml:"KeyCount"`
	MaxKeys               int            `xml:"MaxKeys"`
	IsTruncated           bool           `xml:"IsTruncated"`
	ContinuationToken     string         `xml:"ContinuationToken"`
	NextContinuationToken string         `xml:"NextContinuationToken"`
	Contents              []ObjectInfo   `xml:"Contents"`
	CommonPrefixes        []CommonPrefix `xml:"CommonPrefixes"`
}

// ListObjectsV2 lists objects using the v2 listing API.
func (c *Client) ListObjectsV2(ctx context.Context, opts ListObjectsV2Options) (*ListObjectsV2Output, error) {
	params := map[string]string{"list-type": "2"}
	if opts.Prefix != "" {
		params["prefix"] = opts.Prefix
	}
	if opts.Delimiter != "" {
		params["delimiter"] = opts.Delimiter
	}
	if opts.ContinuationToken != "" {
		params["continuation-token"] = opts.ContinuationToken
	}
	if opts.StartAfter != "" {
		params["start-after"] = opts.StartAfter
	}
	if opts.MaxKeys > 0 {
		params["max-keys"] = strconv.Itoa(opts.MaxKeys)
	}

	var out ListObjectsV2Output
	if err := c.getXML(ctx, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// ACL and Versioning Pass-Through
// =============================================================================

// BucketACLOutput is the access control policy of a bucket.
type BucketACLOutput struct {
	XMLName xml.Name `xml:"AccessControlPolicy"`
	Owner   Owner    `xml:"Owner"`
	Grants  []Grant  `xml:"AccessControlList>Grant"`
}

// Owner identifies the bucket owner.
type Owner struct {
	ID          string `xml:"ID"`
	DisplayName string `xml:"DisplayName"`
}

// Grant is one ACL grant.
type Grant struct {
	Grantee    Grantee `xml:"Grantee"`
	Permission string  `xml:"Permission"`
}

// Grantee is the subject of a grant.
type Grantee struct {
	ID          string `xml:"ID"`
	DisplayName string `xml:"DisplayName"`
	URI         string `xml:"URI"`
}

// GetBucketACL fetches the bucket's access control policy.
func (c *Client) GetBucketACL(ctx context.Context) (*BucketACLOutput, error) {
	var out BucketACLOutput
	if err := c.getXML(ctx, map[string]string{"acl": ""}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutBucketACL sets a canned ACL on the bucket.
func (c *Client) PutBucketACL(ctx context.Context, acl BucketACL) error {
	params := map[string]string{"acl": ""}
	headers := map[string]string{ACLHeader: string(acl)}

	resp, err := c.Put(ctx, "/", params, headers, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// GetBucketVersioning returns the bucket's versioning status: "Enabled",
// "Suspended", or "" when versioning has never been configured.
func (c *Client) GetBucketVersioning(ctx context.Context) (string, error) {
	var out struct {
		XMLName xml.Name `xml:"VersioningConfiguration"`
		Status  string   `xml:"Status"`
	}
	if err := c.getXML(ctx, map[string]string{"versioning": ""}, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// getXML issues a bucket-scoped GET and decodes the XML response into v.
func (c *Client) getXML(ctx context.Context, params map[string]string, v any) error {
	resp, err := c.Get(ctx, "/", params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := xml.NewDecoder(resp.Body).Decode(v); err != nil {
		return newError(KindDecode, "cannot parse response", err)
	}
	return nil
}
