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
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"log"

	storagepb "google.golang.org/genproto/googleapis/storage/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// projectionToProto is a total map over the projections the JSON API names.
// Unknown values fall back to FULL with a diagnostic; they never propagate
// as a silent wrong value.
var projectionToProto = map[string]storagepb.CommonEnums_Projection{
	"noAcl": storagepb.CommonEnums_NO_ACL,
	"full":  storagepb.CommonEnums_FULL,
}

func toProtoProjection(p string) storagepb.CommonEnums_Projection {
	if v, ok := projectionToProto[p]; ok {
		return v
	}
	log.Printf("storagegrpc: unknown projection value %q, using \"full\"", p)
	return storagepb.CommonEnums_FULL
}

var predefinedACLToProto = map[string]storagepb.CommonEnums_PredefinedObjectAcl{
	"authenticatedRead":      storagepb.CommonEnums_OBJECT_ACL_AUTHENTICATED_READ,
	"bucketOwnerFullControl": storagepb.CommonEnums_OBJECT_ACL_BUCKET_OWNER_FULL_CONTROL,
	"bucketOwnerRead":        storagepb.CommonEnums_OBJECT_ACL_BUCKET_OWNER_READ,
	"private":                storagepb.CommonEnums_OBJECT_ACL_PRIVATE,
	"projectPrivate":         storagepb.CommonEnums_OBJECT_ACL_PROJECT_PRIVATE,
	"publicRead":             storagepb.CommonEnums_OBJECT_ACL_PUBLIC_READ,
}

func toProtoPredefinedObjectACL(acl string) storagepb.CommonEnums_PredefinedObjectAcl {
	if v, ok := predefinedACLToProto[acl]; ok {
		return v
	}
	// publicReadWrite exists for buckets but is invalid for objects.
	if acl == "publicReadWrite" {
		log.Printf("storagegrpc: invalid predefinedAcl value %q", acl)
	} else {
		log.Printf("storagegrpc: unknown predefinedAcl value %q", acl)
	}
	return storagepb.CommonEnums_PREDEFINED_OBJECT_ACL_UNSPECIFIED
}

// crc32cToProto converts a CRC32C checksum from the textual form of the JSON
// API (base64-encoded big-endian 32-bit value) to the plain 32-bit value the
// wire expects. The value comes from the application, so it is validated.
func crc32cToProto(v string) (uint32, error) {
	raw, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "storagegrpc: invalid CRC32C checksum %q: %v", v, err)
	}
	if len(raw) != 4 {
		return 0, status.Errorf(codes.InvalidArgument, "storagegrpc: invalid CRC32C checksum %q: decoded to %d bytes, want 4", v, len(raw))
	}
	return binary.BigEndian.Uint32(raw), nil
}

func crc32cFromProto(v *wrapperspb.UInt32Value) string {
	if v == nil {
		return ""
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v.GetValue())
	return base64.StdEncoding.EncodeToString(buf[:])
}

// md5ToProto converts an MD5 digest from the base64 encoding of the JSON API
// to the hex encoding of the wire. A format conversion, not a cryptographic
// operation.
func md5ToProto(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "storagegrpc: invalid MD5 hash %q: %v", v, err)
	}
	return hex.EncodeToString(raw), nil
}

func md5FromProto(v string) string {
	if v == "" {
		return ""
	}
	raw, err := hex.DecodeString(v)
	if err != nil {
		log.Printf("storagegrpc: service returned malformed MD5 hash %q", v)
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func computeMD5(p []byte) string {
	sum := md5.Sum(p)
	return hex.EncodeToString(sum[:])
}

func toProtoCommonRequestParams(opts CommonRequestOptions) *storagepb.CommonRequestParams {
	if opts.UserProject == "" && opts.UserIP == "" && opts.QuotaUser == "" {
		return nil
	}
	p := &storagepb.CommonRequestParams{
		UserProject: opts.UserProject,
	}
	// The wire has a single quota_user field while the JSON API has both
	// quotaUser and userIp, with quotaUser winning when both are present.
	// Apply user-ip first so that quota-user overwrites it.
	if opts.UserIP != "" {
		p.QuotaUser = opts.UserIP
	}
	if opts.QuotaUser != "" {
		p.QuotaUser = opts.QuotaUser
	}
	return p
}

func toProtoCommonObjectRequestParams(key []byte) *storagepb.CommonObjectRequestParams {
	if len(key) == 0 {
		return nil
	}
	sum := sha256.Sum256(key)
	return &storagepb.CommonObjectRequestParams{
		EncryptionAlgorithm: "AES256",
		EncryptionKey:       base64.StdEncoding.EncodeToString(key),
		EncryptionKeySha256: base64.StdEncoding.EncodeToString(sum[:]),
	}
}

// applyConds copies conds into the generation and metageneration fields of
// msg. The wire fields are optional wrappers so that an explicit zero (used
// by DoesNotExist) is distinguishable from "not set".
func applyConds(method string, conds *Conditions, msg interface{}) error {
	if conds == nil {
		return nil
	}
	if err := conds.validate(method); err != nil {
		return err
	}
	var gm, gnm, mm, mnm *wrapperspb.Int64Value
	if conds.GenerationMatch != 0 {
		gm = wrapperspb.Int64(conds.GenerationMatch)
	}
	if conds.DoesNotExist {
		gm = wrapperspb.Int64(0)
	}
	if conds.GenerationNotMatch != 0 {
		gnm = wrapperspb.Int64(conds.GenerationNotMatch)
	}
	if conds.MetagenerationMatch != 0 {
		mm = wrapperspb.Int64(conds.MetagenerationMatch)
	}
	if conds.MetagenerationNotMatch != 0 {
		mnm = wrapperspb.Int64(conds.MetagenerationNotMatch)
	}
	switch m := msg.(type) {
	case *storagepb.InsertObjectSpec:
		m.IfGenerationMatch = gm
		m.IfGenerationNotMatch = gnm
		m.IfMetagenerationMatch = mm
		m.IfMetagenerationNotMatch = mnm
	case *storagepb.GetObjectMediaRequest:
		m.IfGenerationMatch = gm
		m.IfGenerationNotMatch = gnm
		m.IfMetagenerationMatch = mm
		m.IfMetagenerationNotMatch = mnm
	default:
		return fmt.Errorf("storagegrpc: %s: conditions not supported for %T", method, msg)
	}
	return nil
}

func toProtoObjectACL(acl ACLRule) *storagepb.ObjectAccessControl {
	p := &storagepb.ObjectAccessControl{
		Entity:   acl.Entity,
		EntityId: acl.EntityID,
		Role:     acl.Role,
		Domain:   acl.Domain,
		Email:    acl.Email,
	}
	if acl.ProjectTeam != nil {
		p.ProjectTeam = &storagepb.ProjectTeam{
			ProjectNumber: acl.ProjectTeam.ProjectNumber,
			Team:          acl.ProjectTeam.Team,
		}
	}
	return p
}

// toProtoObjectResource builds the object resource for an upload. Only
// fields present on attrs are set; absent fields stay unset on the wire.
func toProtoObjectResource(bucket, object string, attrs *ObjectAttrs) *storagepb.Object {
	resource := &storagepb.Object{
		Bucket: bucket,
		Name:   object,
	}
	if attrs == nil {
		return resource
	}
	resource.ContentType = attrs.ContentType
	resource.ContentLanguage = attrs.ContentLanguage
	resource.ContentEncoding = attrs.ContentEncoding
	resource.ContentDisposition = attrs.ContentDisposition
	resource.CacheControl = attrs.CacheControl
	resource.StorageClass = attrs.StorageClass
	resource.KmsKeyName = attrs.KMSKeyName
	for _, acl := range attrs.ACL {
		resource.Acl = append(resource.Acl, toProtoObjectACL(acl))
	}
	if len(attrs.Metadata) > 0 {
		resource.Metadata = make(map[string]string, len(attrs.Metadata))
		for k, v := range attrs.Metadata {
			resource.Metadata[k] = v
		}
	}
	if attrs.EventBasedHold {
		resource.EventBasedHold = wrapperspb.Bool(true)
	}
	resource.TemporaryHold = attrs.TemporaryHold
	return resource
}

func toProtoInsertObjectSpec(method string, req *ResumableUploadRequest) (*storagepb.InsertObjectSpec, error) {
	spec := &storagepb.InsertObjectSpec{
		Resource: toProtoObjectResource(req.Bucket, req.Object, req.Attrs),
	}
	if req.PredefinedACL != "" {
		spec.PredefinedAcl = toProtoPredefinedObjectACL(req.PredefinedACL)
	}
	if req.Projection != "" {
		spec.Projection = toProtoProjection(req.Projection)
	}
	if err := applyConds(method, req.Conditions, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func toProtoInsertObjectMedia(req *InsertObjectMediaRequest) (*storagepb.InsertObjectRequest, error) {
	spec, err := toProtoInsertObjectSpec("InsertObjectMedia", &ResumableUploadRequest{
		Bucket:        req.Bucket,
		Object:        req.Object,
		Attrs:         req.Attrs,
		PredefinedACL: req.PredefinedACL,
		Projection:    req.Projection,
		Conditions:    req.Conditions,
	})
	if err != nil {
		return nil, err
	}
	r := &storagepb.InsertObjectRequest{
		FirstMessage:              &storagepb.InsertObjectRequest_InsertObjectSpec{InsertObjectSpec: spec},
		CommonObjectRequestParams: toProtoCommonObjectRequestParams(req.EncryptionKey),
		CommonRequestParams:       toProtoCommonRequestParams(req.CommonRequestOptions),
	}

	checksums := &storagepb.ObjectChecksums{}
	switch {
	case req.CRC32C != "":
		v, err := crc32cToProto(req.CRC32C)
		if err != nil {
			return nil, err
		}
		checksums.Crc32C = wrapperspb.UInt32(v)
	case req.DisableCRC32C:
		// Disabled, mostly useful in tests.
	default:
		checksums.Crc32C = wrapperspb.UInt32(crc32.Checksum(req.Contents, crc32cTable))
	}
	switch {
	case req.MD5 != "":
		v, err := md5ToProto(req.MD5)
		if err != nil {
			return nil, err
		}
		checksums.Md5Hash = v
	case req.DisableMD5:
		// Disabled, mostly useful in tests.
	default:
		checksums.Md5Hash = computeMD5(req.Contents)
	}
	if checksums.Crc32C != nil || checksums.Md5Hash != "" {
		r.ObjectChecksums = checksums
	}
	return r, nil
}

func toProtoStartResumableWrite(req *ResumableUploadRequest) (*storagepb.StartResumableWriteRequest, error) {
	spec, err := toProtoInsertObjectSpec("CreateResumableSession", req)
	if err != nil {
		return nil, err
	}
	return &storagepb.StartResumableWriteRequest{
		InsertObjectSpec:          spec,
		CommonObjectRequestParams: toProtoCommonObjectRequestParams(req.EncryptionKey),
		CommonRequestParams:       toProtoCommonRequestParams(req.CommonRequestOptions),
	}, nil
}

func toProtoQueryWriteStatus(req *QueryResumableUploadRequest) *storagepb.QueryWriteStatusRequest {
	return &storagepb.QueryWriteStatusRequest{
		UploadId:                  req.UploadID,
		CommonObjectRequestParams: toProtoCommonObjectRequestParams(req.EncryptionKey),
		CommonRequestParams:       toProtoCommonRequestParams(req.CommonRequestOptions),
	}
}

func toProtoGetObjectMedia(req *ReadObjectRangeRequest) (*storagepb.GetObjectMediaRequest, error) {
	r := &storagepb.GetObjectMediaRequest{
		Bucket:     req.Bucket,
		Object:     req.Object,
		Generation: req.Generation,
	}
	if req.Range != nil {
		r.ReadOffset = req.Range.Begin
		r.ReadLimit = req.Range.End - req.Range.Begin
	}
	if req.ReadLast != nil {
		// A negative read offset asks for the final bytes of the object.
		r.ReadOffset = -*req.ReadLast
	}
	if req.Offset > r.ReadOffset {
		// The absolute offset wins; the limit is clipped so the read
		// never extends past what the other options implied.
		if r.ReadLimit > 0 {
			r.ReadLimit = req.Offset - r.ReadOffset
		}
		r.ReadOffset = req.Offset
	}
	if err := applyConds("ReadObject", req.Conditions, r); err != nil {
		return nil, err
	}
	r.CommonObjectRequestParams = toProtoCommonObjectRequestParams(req.EncryptionKey)
	r.CommonRequestParams = toProtoCommonRequestParams(req.CommonRequestOptions)
	return r, nil
}
