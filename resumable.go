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
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ResumableUploadSession is a server-tracked upload that can continue from
// the last committed byte after an interruption. Obtain one from
// Client.CreateResumableSession or Client.RestoreResumableSession.
//
// A session is single-owner: it must not be used concurrently from multiple
// goroutines. The underlying upload stream is bound to the context of the
// call that opened it; cancelling that context aborts the upload.
type ResumableUploadSession struct {
	client    *Client
	bucket    string
	object    string
	uploadID  string
	sessionID string

	// stream is opened lazily by the first chunk and closed by the final
	// chunk or on error. sentFirst records whether the upload id has
	// already been sent; only the stream's first message may carry it.
	stream    storagepb.Storage_InsertObjectClient
	sentFirst bool

	committedSize int64
	done          bool
	attrs         *ObjectAttrs
}

func newResumableUploadSession(c *Client, bucket, object, uploadID string) *ResumableUploadSession {
	return &ResumableUploadSession{
		client:    c,
		bucket:    bucket,
		object:    object,
		uploadID:  uploadID,
		sessionID: encodeResumableSessionID(bucket, object, uploadID),
	}
}

// CreateResumableSession starts a resumable upload. If req.SessionID carries
// a previously issued session identifier the session is restored instead of
// started anew.
func (c *Client) CreateResumableSession(ctx context.Context, req *ResumableUploadRequest) (*ResumableUploadSession, error) {
	if req.SessionID != "" {
		return c.RestoreResumableSession(ctx, req.SessionID)
	}
	pb, err := toProtoStartResumableWrite(req)
	if err != nil {
		return nil, err
	}
	ctx = setClientHeader(ctx)
	var resp *storagepb.StartResumableWriteResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = c.stub.StartResumableWrite(ctx, pb)
		return err
	}
	if err := run(ctx, call, c.settings.retry, req.Conditions != nil); err != nil {
		return nil, err
	}
	return newResumableUploadSession(c, req.Bucket, req.Object, resp.GetUploadId()), nil
}

// RestoreResumableSession rebuilds a session from its identifier. The
// session's committed offset is re-synchronized with the service before it
// is returned, so the caller never receives possibly-stale state.
func (c *Client) RestoreResumableSession(ctx context.Context, sessionID string) (*ResumableUploadSession, error) {
	bucket, object, uploadID, err := decodeResumableSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	s := newResumableUploadSession(c, bucket, object, uploadID)
	if _, err := s.QueryStatus(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SessionID returns the opaque identifier the session can later be restored
// from.
func (s *ResumableUploadSession) SessionID() string { return s.sessionID }

// CommittedSize returns the number of bytes known to be committed.
func (s *ResumableUploadSession) CommittedSize() int64 { return s.committedSize }

// Done reports whether the upload has been finalized.
func (s *ResumableUploadSession) Done() bool { return s.done }

// Object returns the finalized object's metadata. It is nil until the
// upload is done.
func (s *ResumableUploadSession) Object() *ObjectAttrs { return s.attrs }

// QueryStatus asks the service how much of the upload is committed. The
// session's committed offset never moves backward, even if the service
// reports a smaller value than a chunk already acknowledged.
func (s *ResumableUploadSession) QueryStatus(ctx context.Context) (*ResumableUploadStatus, error) {
	st, err := s.client.QueryResumableUpload(ctx, &QueryResumableUploadRequest{UploadID: s.uploadID})
	if err != nil {
		return nil, err
	}
	if st.CommittedSize > s.committedSize {
		s.committedSize = st.CommittedSize
	}
	if st.Complete {
		s.done = true
	}
	return st, nil
}

func (s *ResumableUploadSession) openStream(ctx context.Context) error {
	if s.stream != nil {
		return nil
	}
	stream, err := s.client.stub.InsertObject(setClientHeader(ctx))
	if err != nil {
		return err
	}
	s.stream = stream
	s.sentFirst = false
	return nil
}

func (s *ResumableUploadSession) chunkTemplate() *storagepb.InsertObjectRequest {
	tmpl := &storagepb.InsertObjectRequest{}
	if !s.sentFirst {
		tmpl.FirstMessage = &storagepb.InsertObjectRequest_UploadId{UploadId: s.uploadID}
	}
	return tmpl
}

// UploadChunk sends p starting at the current committed offset without
// finalizing the upload.
func (s *ResumableUploadSession) UploadChunk(ctx context.Context, p []byte) error {
	if s.done {
		return status.Error(codes.FailedPrecondition, "storagegrpc: upload already finalized")
	}
	if err := s.openStream(ctx); err != nil {
		return err
	}
	if err := writeChunks(s.stream, s.chunkTemplate(), p, s.committedSize, false); err != nil {
		// The status behind a failed Send only surfaces on CloseAndRecv.
		_, cerr := s.stream.CloseAndRecv()
		s.stream = nil
		if cerr != nil {
			return cerr
		}
		return err
	}
	s.sentFirst = true
	s.committedSize += int64(len(p))
	return nil
}

// UploadFinalChunk sends p, marks the last chunk final and closes the
// stream, returning the finalized object's metadata. p may be empty.
func (s *ResumableUploadSession) UploadFinalChunk(ctx context.Context, p []byte) (*ObjectAttrs, error) {
	if s.done {
		return nil, status.Error(codes.FailedPrecondition, "storagegrpc: upload already finalized")
	}
	if err := s.openStream(ctx); err != nil {
		return nil, err
	}
	sendErr := writeChunks(s.stream, s.chunkTemplate(), p, s.committedSize, true)
	resp, err := s.stream.CloseAndRecv()
	s.stream = nil
	if err != nil {
		return nil, err
	}
	if sendErr != nil && sendErr != io.EOF {
		return nil, sendErr
	}
	s.committedSize += int64(len(p))
	s.done = true
	s.attrs = fromProtoObject(resp)
	return s.attrs, nil
}
