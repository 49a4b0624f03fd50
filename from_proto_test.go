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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	storagepb "google.golang.org/genproto/googleapis/storage/v1"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestFromProtoObject(t *testing.T) {
	created := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	in := &storagepb.Object{
		Bucket:         "bucket",
		Name:           "object",
		ContentType:    "text/plain",
		CacheControl:   "no-store",
		Size:           1024,
		Generation:     3,
		Metageneration: 2,
		Etag:           "etag",
		Crc32C:         wrapperspb.UInt32(0x5ca1ab1e),
		Md5Hash:        "9e107d9d372bb6826bd81d3542a419d6",
		Owner:          &storagepb.Owner{Entity: "user-test"},
		TimeCreated:    timestamppb.New(created),
		Metadata:       map[string]string{"k": "v"},
		Acl: []*storagepb.ObjectAccessControl{
			{Entity: "user-test", Role: "OWNER"},
		},
		CustomerEncryption: &storagepb.Object_CustomerEncryption{
			EncryptionAlgorithm: "AES256",
			KeySha256:           "digest",
		},
	}

	got := fromProtoObject(in)
	want := &ObjectAttrs{
		Bucket:         "bucket",
		Name:           "object",
		ContentType:    "text/plain",
		CacheControl:   "no-store",
		Size:           1024,
		Generation:     3,
		Metageneration: 2,
		Etag:           "etag",
		CRC32C:         "XKGrHg==",
		MD5:            "nhB9nTcrtoJr2B01QqQZ1g==",
		Owner:          "user-test",
		Created:        created,
		Metadata:       map[string]string{"k": "v"},
		ACL: []ACLRule{
			{Entity: "user-test", Role: "OWNER"},
		},
		CustomerEncryption: &CustomerEncryption{
			EncryptionAlgorithm: "AES256",
			KeySHA256:           "digest",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fromProtoObject: (-want, +got):\n%s", diff)
	}
}

func TestFromProtoObjectSparse(t *testing.T) {
	if got := fromProtoObject(nil); got != nil {
		t.Errorf("fromProtoObject(nil) = %v, want nil", got)
	}

	// A resource with almost nothing set converts without panicking.
	got := fromProtoObject(&storagepb.Object{Name: "o"})
	if got.Name != "o" {
		t.Errorf("Name = %q, want %q", got.Name, "o")
	}
	if got.CRC32C != "" || got.MD5 != "" {
		t.Errorf("checksums = (%q, %q), want empty", got.CRC32C, got.MD5)
	}
	if !got.Created.IsZero() {
		t.Errorf("Created = %v, want zero", got.Created)
	}
}
