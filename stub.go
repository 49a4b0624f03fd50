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

	storagepb "google.golang.org/genproto/googleapis/storage/v1"
	"google.golang.org/grpc"
)

// storageStub is the capability used by the client to reach the storage
// service: the subset of google.storage.v1.Storage that the gRPC transport
// implements. Concrete variants wrap one channel, a round-robin pool of
// stubs, or an authenticating decorator; they compose by wrapping one stub
// in another.
type storageStub interface {
	InsertObject(ctx context.Context) (storagepb.Storage_InsertObjectClient, error)
	GetObjectMedia(ctx context.Context, req *storagepb.GetObjectMediaRequest) (storagepb.Storage_GetObjectMediaClient, error)
	StartResumableWrite(ctx context.Context, req *storagepb.StartResumableWriteRequest) (*storagepb.StartResumableWriteResponse, error)
	QueryWriteStatus(ctx context.Context, req *storagepb.QueryWriteStatusRequest) (*storagepb.QueryWriteStatusResponse, error)
	Close() error
}

// grpcStorageStub implements storageStub over a single channel.
type grpcStorageStub struct {
	// channelID tags the channel this stub owns, 0..N-1 within its pool.
	// Ids are assigned at pool creation and never reused.
	channelID int
	conn      *grpc.ClientConn
	client    storagepb.StorageClient
}

func newStorageStub(conn *grpc.ClientConn, channelID int) *grpcStorageStub {
	return &grpcStorageStub{
		channelID: channelID,
		conn:      conn,
		client:    storagepb.NewStorageClient(conn),
	}
}

func (s *grpcStorageStub) InsertObject(ctx context.Context) (storagepb.Storage_InsertObjectClient, error) {
	return s.client.InsertObject(ctx)
}

func (s *grpcStorageStub) GetObjectMedia(ctx context.Context, req *storagepb.GetObjectMediaRequest) (storagepb.Storage_GetObjectMediaClient, error) {
	return s.client.GetObjectMedia(ctx, req)
}

func (s *grpcStorageStub) StartResumableWrite(ctx context.Context, req *storagepb.StartResumableWriteRequest) (*storagepb.StartResumableWriteResponse, error) {
	return s.client.StartResumableWrite(ctx, req)
}

func (s *grpcStorageStub) QueryWriteStatus(ctx context.Context, req *storagepb.QueryWriteStatusRequest) (*storagepb.QueryWriteStatusResponse, error) {
	return s.client.QueryWriteStatus(ctx, req)
}

func (s *grpcStorageStub) Close() error {
	return s.conn.Close()
}
