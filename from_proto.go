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
	"time"

	storagepb "google.golang.org/genproto/googleapis/storage/v1"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func fromProtoTimestamp(ts *timestamppb.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.AsTime()
}

func fromProtoObjectACL(acl *storagepb.ObjectAccessControl) ACLRule {
	r := ACLRule{
		Entity:   acl.GetEntity(),
		EntityID: acl.GetEntityId(),
		Role:     acl.GetRole(),
		Domain:   acl.GetDomain(),
		Email:    acl.GetEmail(),
	}
	if pt := acl.GetProjectTeam(); pt != nil {
		r.ProjectTeam = &ProjectTeam{
			ProjectNumber: pt.GetProjectNumber(),
			Team:          pt.GetTeam(),
		}
	}
	return r
}

// fromProtoObject converts an object resource from the wire into ObjectAttrs.
// All accesses are through getters so a partially populated (or nil)
// resource converts without panicking.
func fromProtoObject(o *storagepb.Object) *ObjectAttrs {
	if o == nil {
		return nil
	}
	attrs := &ObjectAttrs{
		Bucket:                  o.GetBucket(),
		Name:                    o.GetName(),
		ContentType:             o.GetContentType(),
		ContentLanguage:         o.GetContentLanguage(),
		ContentEncoding:         o.GetContentEncoding(),
		ContentDisposition:      o.GetContentDisposition(),
		CacheControl:            o.GetCacheControl(),
		StorageClass:            o.GetStorageClass(),
		KMSKeyName:              o.GetKmsKeyName(),
		EventBasedHold:          o.GetEventBasedHold().GetValue(),
		TemporaryHold:           o.GetTemporaryHold(),
		Size:                    o.GetSize(),
		ComponentCount:          o.GetComponentCount(),
		Generation:              o.GetGeneration(),
		Metageneration:          o.GetMetageneration(),
		Etag:                    o.GetEtag(),
		ID:                      o.GetId(),
		CRC32C:                  crc32cFromProto(o.GetCrc32C()),
		MD5:                     md5FromProto(o.GetMd5Hash()),
		Owner:                   o.GetOwner().GetEntity(),
		Created:                 fromProtoTimestamp(o.GetTimeCreated()),
		Updated:                 fromProtoTimestamp(o.GetUpdated()),
		Deleted:                 fromProtoTimestamp(o.GetTimeDeleted()),
		RetentionExpirationTime: fromProtoTimestamp(o.GetRetentionExpirationTime()),
		StorageClassUpdated:     fromProtoTimestamp(o.GetTimeStorageClassUpdated()),
	}
	for _, acl := range o.GetAcl() {
		attrs.ACL = append(attrs.ACL, fromProtoObjectACL(acl))
	}
	if md := o.GetMetadata(); len(md) > 0 {
		attrs.Metadata = make(map[string]string, len(md))
		for k, v := range md {
			attrs.Metadata[k] = v
		}
	}
	if ce := o.GetCustomerEncryption(); ce != nil {
		attrs.CustomerEncryption = &CustomerEncryption{
			EncryptionAlgorithm: ce.GetEncryptionAlgorithm(),
			KeySHA256:           ce.GetKeySha256(),
		}
	}
	return attrs
}
