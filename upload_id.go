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
	"encoding/base64"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// A resumable session id carries the bucket and object name along with the
// service-issued upload id, so a session can be restored from the id alone.
// The encoding is opaque to callers; only SessionID values produced by this
// package decode successfully.

func encodeResumableSessionID(bucket, object, uploadID string) string {
	plain := bucket + "\n" + object + "\n" + uploadID
	return base64.URLEncoding.EncodeToString([]byte(plain))
}

func decodeResumableSessionID(sessionID string) (bucket, object, uploadID string, err error) {
	raw, err := base64.URLEncoding.DecodeString(sessionID)
	if err != nil {
		return "", "", "", status.Errorf(codes.InvalidArgument, "storagegrpc: malformed session id %q: %v", sessionID, err)
	}
	parts := strings.SplitN(string(raw), "\n", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", status.Errorf(codes.InvalidArgument, "storagegrpc: malformed session id %q", sessionID)
	}
	return parts[0], parts[1], parts[2], nil
}
