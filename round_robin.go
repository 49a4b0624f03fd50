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
	"context"
	"sync/atomic"

	storagepb "google.golang.org/genproto/googleapis/storage/v1"
)

// storageRoundRobin dispatches each call to the next stub in rotation. It
// only distributes load: errors pass through unchanged, and per-call
// ordering across stubs is not guaranteed beyond eventual rotation through
// the whole set.
type storageRoundRobin struct {
	stubs []storageStub
	next  uint32
}

// newStorageRoundRobin wraps a non-empty set of stubs. The set is immutable
// after construction; the cursor is the only mutable state and is advanced
// atomically, so the multiplexer is safe for concurrent use.
func newStorageRoundRobin(stubs []storageStub) *storageRoundRobin {
	return &storageRoundRobin{stubs: stubs}
}

func (rr *storageRoundRobin) child() storageStub {
	n := atomic.AddUint32(&rr.next, 1)
	return rr.stubs[(n-1)%uint32(len(rr.stubs))]
}

func (rr *storageRoundRobin) InsertObject(ctx context.Context) (storagepb.Storage_InsertObjectClient, error) {
	return rr.child().InsertObject(ctx)
}

func (rr *storageRoundRobin) GetObjectMedia(ctx context.Context, req *storagepb.GetObjectMediaRequest) (storagepb.Storage_GetObjectMediaClient, error) {
	return rr.child().GetObjectMedia(ctx, req)
}

func (rr *storageRoundRobin) StartResumableWrite(ctx context.Context, req *storagepb.StartResumableWriteRequest) (*storagepb.StartResumableWriteResponse, error) {
	return rr.child().StartResumableWrite(ctx, req)
}

func (rr *storageRoundRobin) QueryWriteStatus(ctx context.Context, req *storagepb.QueryWriteStatusRequest) (*storagepb.QueryWriteStatusResponse, error) {
	return rr.child().QueryWriteStatus(ctx, req)
}

func (rr *storageRoundRobin) Close() error {
	var firstErr error
	for _, s := range rr.stubs {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
