// Package sts obtains temporary COS credentials from the Tencent Cloud STS
// control-plane API (GetFederationToken), using its query-string signing
// scheme. It shares no signing code with package cos: the two algorithms
// canonicalize differently and must stay separate.
package sts

import "fmt"

// =============================================================================
// Permission Policy Model
// =============================================================================

// Policy is a CAM permission policy document, serialized to JSON and passed
// to GetFederationToken as an opaque parameter value.
type Policy struct {
	// Version is the policy syntax version, always "2.0".
	Version string `json:"version"`

	// Statement lists the permission statements.
	Statement []Statement `json:"statement"`
}

// Statement grants or denies a set of actions on a set of resources.
type Statement struct {
	// Effect is "allow" or "deny".
	Effect string `json:"effect"`

	// Action lists qualified action names, e.g. "name/cos:PutObject".
	Action []string `json:"action"`

	// Resource lists qcs resource strings.
	Resource []string `json:"resource"`

	// Condition optionally restricts the statement: key -> operator -> value.
	Condition map[string]map[string]any `json:"condition,omitempty"`
}

// NewPolicy creates an empty version-2.0 policy.
func NewPolicy() Policy {
	return Policy{Version: "2.0"}
}

// AddStatement appends a statement and returns the policy for chaining.
func (p Policy) AddStatement(s Statement) Policy {
	p.Statement = append(p.Statement, s)
	return p
}

// Action sets for the convenience builders.
var (
	uploadActions = []string{
		"name/cos:PutObject",
		"name/cos:PostObject",
		"name/cos:InitiateMultipartUpload",
		"name/cos:ListMultipartUploads",
		"name/cos:ListParts",
		"name/cos:UploadPart",
		"name/cos:CompleteMultipartUpload",
	}

	downloadActions = []string{
		"name/cos:GetObject",
		"name/cos:HeadObject",
	}

	deleteActions = []string{
		"name/cos:DeleteObject",
	}
)

// AllowPutObject builds a single-statement policy permitting uploads to the
// bucket, limited to keys under prefix when prefix is non-empty.
func AllowPutObject(bucket, prefix string) Policy {
	return allowActions(bucket, prefix, uploadActions)
}

// AllowGetObject builds a single-statement policy permitting downloads.
func AllowGetObject(bucket, prefix string) Policy {
	return allowActions(bucket, prefix, downloadActions)
}

// AllowDeleteObject builds a single-statement policy permitting deletes.
func AllowDeleteObject(bucket, prefix string) Policy {
	return allowActions(bucket, prefix, deleteActions)
}

// AllowReadWrite builds a single-statement policy permitting uploads,
// downloads and deletes.
func AllowReadWrite(bucket, prefix string) Policy {
	actions := make([]string, 0, len(uploadActions)+len(downloadActions)+len(deleteActions))
	actions = append(actions, uploadActions...)
	actions = append(actions, downloadActions...)
	actions = append(actions, deleteActions...)
	return allowActions(bucket, prefix, actions)
}

// allowActions assembles an allow statement scoped to one bucket resource.
func allowActions(bucket, prefix string, actions []string) Policy {
	return NewPolicy().AddStatement(Statement{
		Effect:   "allow",
		Action:   actions,
		Resource: []string{ResourceForBucket(bucket, prefix)},
	})
}

// ResourceForBucket derives the qcs resource string for a bucket and optional
// key prefix. The bucket name "{base}-{appid}" splits on its last hyphen; a
// missing or non-numeric appid suffix becomes the wildcard "*".
//
// Grammar: qcs::cos:*:uid/{appid}:prefix//{appid}/{base}/{prefix-or-*}
func ResourceForBucket(bucket, prefix string) string {
	base, appID := splitBucketName(bucket)
	if appID == "" {
		appID = "*"
	}

	if prefix != "" {
		return fmt.Sprintf("qcs::cos:*:uid/%s:prefix//%s/%s/%s*", appID, appID, base, prefix)
	}
	return fmt.Sprintf("qcs::cos:*:uid/%s:prefix//%s/%s/*", appID, appID, base)
}

// splitBucketName splits "{base}-{appid}" on the last hyphen, requiring a
// purely numeric appid.
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
