// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storagegrpc

import (
	"fmt"
	"time"
)

// CommonRequestOptions are the named parameters accepted by every request.
// The zero value of a field means the parameter is not set; unset parameters
// are omitted from the wire message rather than sent as zero values.
type CommonRequestOptions struct {
	// UserProject designates the project billed for the request.
	UserProject string

	// QuotaUser attributes the request's quota usage. If both QuotaUser
	// and UserIP are set, QuotaUser wins.
	QuotaUser string

	// UserIP is the legacy form of QuotaUser.
	UserIP string

	// EncryptionKey is a customer-supplied AES-256 key used to encrypt or
	// decrypt the object. The mapper derives the algorithm name and the
	// key's SHA-256 digest from it.
	EncryptionKey []byte
}

// Conditions constrain an operation to objects with specific generation and
// metageneration values. A zero field is "don't care"; DoesNotExist maps to
// an explicit generation-match of zero on the wire, which is why the wire
// fields use optional wrappers.
type Conditions struct {
	// GenerationMatch specifies that the object must have the given
	// generation.
	GenerationMatch int64

	// GenerationNotMatch specifies that the object must not have the
	// given generation.
	GenerationNotMatch int64

	// DoesNotExist specifies that the object must not exist.
	DoesNotExist bool

	// MetagenerationMatch specifies that the object must have the given
	// metageneration.
	MetagenerationMatch int64

	// MetagenerationNotMatch specifies that the object must not have the
	// given metageneration.
	MetagenerationNotMatch int64
}

func (c *Conditions) validate(method string) error {
	if *c == (Conditions{}) {
		return fmt.Errorf("storagegrpc: %s: empty conditions", method)
	}
	if c.GenerationMatch != 0 && c.GenerationNotMatch != 0 {
		return fmt.Errorf("storagegrpc: %s: multiple conditions specified for generation", method)
	}
	if (c.GenerationMatch != 0 || c.GenerationNotMatch != 0) && c.DoesNotExist {
		return fmt.Errorf("storagegrpc: %s: multiple conditions specified for generation", method)
	}
	if c.MetagenerationMatch != 0 && c.MetagenerationNotMatch != 0 {
		return fmt.Errorf("storagegrpc: %s: multiple conditions specified for metageneration", method)
	}
	return nil
}

// ProjectTeam is the project team associated with an ACL entity.
type ProjectTeam struct {
	ProjectNumber string
	Team          string
}

// ACLRule represents a grant for a role to an entity on an object.
type ACLRule struct {
	Entity      string
	EntityID    string
	Role        string
	Domain      string
	Email       string
	ProjectTeam *ProjectTeam
}

// CustomerEncryption contains the encryption parameters of a
// customer-encrypted object.
type CustomerEncryption struct {
	// EncryptionAlgorithm is the name of the encryption algorithm.
	EncryptionAlgorithm string
	// KeySHA256 is the base64-encoded SHA-256 digest of the encryption
	// key.
	KeySHA256 string
}

// ObjectAttrs represents the metadata of an object. On requests the zero
// value of a field leaves the corresponding resource field unset. Checksum
// fields use the textual encodings of the JSON API: CRC32C is the
// base64-encoding of the big-endian checksum, MD5 the base64-encoding of the
// digest.
type ObjectAttrs struct {
	Bucket             string
	Name               string
	ContentType        string
	ContentLanguage    string
	ContentEncoding    string
	ContentDisposition string
	CacheControl       string
	StorageClass       string
	KMSKeyName         string
	ACL                []ACLRule
	Metadata           map[string]string
	EventBasedHold     bool
	TemporaryHold      bool

	// The remaining fields are read-only; they are populated from
	// responses and ignored on requests.
	Size                    int64
	ComponentCount          int32
	Generation              int64
	Metageneration          int64
	Etag                    string
	ID                      string
	CRC32C                  string
	MD5                     string
	Owner                   string
	CustomerEncryption      *CustomerEncryption
	Created                 time.Time
	Updated                 time.Time
	Deleted                 time.Time
	RetentionExpirationTime time.Time
	StorageClassUpdated     time.Time
}

// InsertObjectMediaRequest is a request to upload an object in a single
// streaming call.
type InsertObjectMediaRequest struct {
	Bucket   string
	Object   string
	Contents []byte

	// Attrs optionally carries resource metadata for the new object
	// (content type, ACLs, custom metadata, ...).
	Attrs *ObjectAttrs

	// PredefinedACL applies a predefined set of access controls, named as
	// in the JSON API (for example "publicRead").
	PredefinedACL string

	// Projection selects the set of properties to return, "full" or
	// "noAcl".
	Projection string

	Conditions *Conditions

	// CRC32C is the expected checksum of Contents, base64-encoded
	// big-endian. If empty and checksums are not disabled, it is computed
	// from Contents.
	CRC32C        string
	DisableCRC32C bool

	// MD5 is the expected digest of Contents, base64-encoded. If empty
	// and digests are not disabled, it is computed from Contents.
	MD5        string
	DisableMD5 bool

	CommonRequestOptions
}

// ResumableUploadRequest is a request to start (or restore) a resumable
// upload session.
type ResumableUploadRequest struct {
	Bucket string
	Object string

	Attrs         *ObjectAttrs
	PredefinedACL string
	Projection    string
	Conditions    *Conditions

	// SessionID restores a previously started session instead of creating
	// a new one. The value must have been obtained from
	// ResumableUploadSession.SessionID.
	SessionID string

	CommonRequestOptions
}

// QueryResumableUploadRequest is a request for the committed state of a
// resumable upload. UploadID is the service-issued upload id, not the
// client-side session identifier.
type QueryResumableUploadRequest struct {
	UploadID string

	CommonRequestOptions
}

// ReadRange is a half-open byte range [Begin, End).
type ReadRange struct {
	Begin int64
	End   int64
}

// ReadObjectRangeRequest is a request to read all or part of an object.
type ReadObjectRangeRequest struct {
	Bucket     string
	Object     string
	Generation int64

	// Range reads the given byte range.
	Range *ReadRange

	// Offset starts the read at the given byte. When combined with Range
	// or ReadLast, Offset takes precedence and the read length is clipped;
	// it never extends past what the other option implied.
	Offset int64

	// ReadLast reads the final N bytes of the object. N must be positive:
	// zero is indistinguishable from "unset" on the wire and is rejected
	// before any call is issued.
	ReadLast *int64

	Conditions *Conditions

	CommonRequestOptions
}
