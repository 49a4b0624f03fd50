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
	"io"

	storagepb "google.golang.org/genproto/googleapis/storage/v1"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

// fakeInsertStream records the messages sent on an upload stream. Messages
// are cloned on Send because the client reuses and mutates its template
// message between sends.
type fakeInsertStream struct {
	grpc.ClientStream
	sent     []*storagepb.InsertObjectRequest
	sendErr  error
	resp     *storagepb.Object
	closeErr error
	closed   bool
}

func (s *fakeInsertStream) Send(req *storagepb.InsertObjectRequest) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, proto.Clone(req).(*storagepb.InsertObjectRequest))
	return nil
}

func (s *fakeInsertStream) CloseAndRecv() (*storagepb.Object, error) {
	s.closed = true
	if s.closeErr != nil {
		return nil, s.closeErr
	}
	if s.resp != nil {
		return s.resp, nil
	}
	return &storagepb.Object{}, nil
}

// fakeReadStream replays a fixed sequence of download messages, then
// recvErr if set, then io.EOF.
type fakeReadStream struct {
	grpc.ClientStream
	responses []*storagepb.GetObjectMediaResponse
	recvErr   error
}

func (s *fakeReadStream) Recv() (*storagepb.GetObjectMediaResponse, error) {
	if len(s.responses) == 0 {
		if s.recvErr != nil {
			err := s.recvErr
			s.recvErr = nil
			return nil, err
		}
		return nil, io.EOF
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

// fakeStub is an in-memory storageStub. Per-method call counters allow
// asserting that validation failures never reach the wire.
type fakeStub struct {
	insertStream *fakeInsertStream
	insertErr    error
	insertCalls  int

	readStream *fakeReadStream
	readErr    error
	readCalls  int
	lastRead   *storagepb.GetObjectMediaRequest

	startResp  *storagepb.StartResumableWriteResponse
	startErr   error
	startCalls int
	lastStart  *storagepb.StartResumableWriteRequest

	queryResps []*storagepb.QueryWriteStatusResponse
	queryErr   error
	queryCalls int
	lastQuery  *storagepb.QueryWriteStatusRequest

	closed bool
}

func (s *fakeStub) InsertObject(ctx context.Context) (storagepb.Storage_InsertObjectClient, error) {
	s.insertCalls++
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if s.insertStream == nil {
		s.insertStream = &fakeInsertStream{}
	}
	return s.insertStream, nil
}

func (s *fakeStub) GetObjectMedia(ctx context.Context, req *storagepb.GetObjectMediaRequest) (storagepb.Storage_GetObjectMediaClient, error) {
	s.readCalls++
	s.lastRead = proto.Clone(req).(*storagepb.GetObjectMediaRequest)
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.readStream == nil {
		s.readStream = &fakeReadStream{}
	}
	return s.readStream, nil
}

func (s *fakeStub) StartResumableWrite(ctx context.Context, req *storagepb.StartResumableWriteRequest) (*storagepb.StartResumableWriteResponse, error) {
	s.startCalls++
	s.lastStart = proto.Clone(req).(*storagepb.StartResumableWriteRequest)
	if s.startErr != nil {
		return nil, s.startErr
	}
	if s.startResp != nil {
		return s.startResp, nil
	}
	return &storagepb.StartResumableWriteResponse{UploadId: "test-upload-id"}, nil
}

func (s *fakeStub) QueryWriteStatus(ctx context.Context, req *storagepb.QueryWriteStatusRequest) (*storagepb.QueryWriteStatusResponse, error) {
	s.queryCalls++
	s.lastQuery = proto.Clone(req).(*storagepb.QueryWriteStatusRequest)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(s.queryResps) > 0 {
		r := s.queryResps[0]
		s.queryResps = s.queryResps[1:]
		return r, nil
	}
	return &storagepb.QueryWriteStatusResponse{}, nil
}

func (s *fakeStub) Close() error {
	s.closed = true
	return nil
}

func newTestClient(stub storageStub) *Client {
	return &Client{stub: stub, settings: &settings{}}
}
