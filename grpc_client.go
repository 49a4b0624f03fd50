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
	"hash/crc32"
	"io"

	"cloud.google.com/go/storagegrpc/internal"
	"github.com/googleapis/gax-go/v2"
	storagepb "google.golang.org/genproto/googleapis/storage/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrMethodNotSupported is returned by operations that have no gRPC
// equivalent. Callers that need them should fall back to the JSON transport.
var ErrMethodNotSupported = status.Error(codes.Unimplemented, "storagegrpc: method is not implemented over gRPC")

// maxWriteChunkBytes is the largest payload of a single upload stream
// message, taken from the service constants (2 MiB).
var maxWriteChunkBytes = int64(storagepb.ServiceConstants_MAX_WRITE_CHUNK_BYTES)

func userAgent() string {
	return "gcloud-golang-storagegrpc/" + internal.Version
}

func setClientHeader(ctx context.Context) context.Context {
	header := gax.XGoogHeader("gl-go", gax.GoVersion, "gccl", internal.Version)
	return metadata.AppendToOutgoingContext(ctx, "x-goog-api-client", header)
}

// Client is a Cloud Storage client over gRPC. It maintains a fixed pool of
// channels, a stub per channel, and dispatches calls over them round-robin.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	stub     storageStub
	settings *settings
}

// NewClient creates a storage client with the given options. The returned
// client owns its channels; Close releases them.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	s := initSettings(opts...)
	auth, err := newAuthStrategy(ctx, s)
	if err != nil {
		return nil, err
	}
	stub, err := newStorageStubs(ctx, s, auth)
	if err != nil {
		return nil, err
	}
	return &Client{stub: stub, settings: s}, nil
}

// Close closes all channels in the pool. The client is unusable afterwards.
func (c *Client) Close() error {
	return c.stub.Close()
}

// writeChunks sends contents over stream in messages of at most
// maxWriteChunkBytes each. At least one message is always sent, so an empty
// payload still produces a (final, empty) chunk. tmpl supplies the
// first-message fields; they are cleared after the first send since only the
// first message of a stream may carry them. offset is the absolute write
// offset of contents[0]. When finish is set the last chunk finalizes the
// object.
//
// A Send error of io.EOF means the server closed the stream early; the real
// status is only available from CloseAndRecv, so io.EOF is passed through
// for the caller to resolve.
func writeChunks(stream storagepb.Storage_InsertObjectClient, tmpl *storagepb.InsertObjectRequest, contents []byte, offset int64, finish bool) error {
	n := int64(len(contents))
	for off := int64(0); ; {
		end := off + maxWriteChunkBytes
		if end > n {
			end = n
		}
		chunk := contents[off:end]
		last := end >= n
		tmpl.WriteOffset = offset + off
		tmpl.Data = &storagepb.InsertObjectRequest_ChecksummedData{
			ChecksummedData: &storagepb.ChecksummedData{
				Content: chunk,
				Crc32C:  wrapperspb.UInt32(crc32.Checksum(chunk, crc32cTable)),
			},
		}
		tmpl.FinishWrite = finish && last
		if err := stream.Send(tmpl); err != nil {
			return err
		}
		tmpl.FirstMessage = nil
		tmpl.ObjectChecksums = nil
		if last {
			return nil
		}
		off = end
	}
}

// InsertObjectMedia uploads an object in a single streaming call. The
// payload is split into chunks on the stream; object metadata, conditions
// and checksums ride on the first message.
func (c *Client) InsertObjectMedia(ctx context.Context, req *InsertObjectMediaRequest) (*ObjectAttrs, error) {
	tmpl, err := toProtoInsertObjectMedia(req)
	if err != nil {
		return nil, err
	}
	ctx = setClientHeader(ctx)
	var attrs *ObjectAttrs
	call := func(ctx context.Context) error {
		stream, err := c.stub.InsertObject(ctx)
		if err != nil {
			return err
		}
		// writeChunks consumes the template, so each attempt gets a copy.
		sendErr := writeChunks(stream, proto.Clone(tmpl).(*storagepb.InsertObjectRequest), req.Contents, 0, true)
		resp, err := stream.CloseAndRecv()
		if err != nil {
			return err
		}
		if sendErr != nil && sendErr != io.EOF {
			return sendErr
		}
		attrs = fromProtoObject(resp)
		return nil
	}
	// The upload is only safe to reissue when conditions pin the outcome.
	if err := run(ctx, call, c.settings.retry, req.Conditions != nil); err != nil {
		return nil, err
	}
	return attrs, nil
}

// ReadObject starts a streaming download and returns a source for its
// contents. The object metadata arrives with the stream's first message and
// is available from the source before any payload is read.
func (c *Client) ReadObject(ctx context.Context, req *ReadObjectRangeRequest) (*ObjectReadSource, error) {
	if req.ReadLast != nil && *req.ReadLast <= 0 {
		return nil, status.Errorf(codes.OutOfRange, "storagegrpc: invalid ReadLast value %d, expected a positive value", *req.ReadLast)
	}
	pb, err := toProtoGetObjectMedia(req)
	if err != nil {
		return nil, err
	}
	ctx = setClientHeader(ctx)
	// The cancel function is handed to the source; Close releases the
	// stream through it. With a stall timeout configured it also bounds
	// the life of the whole download.
	var cancel context.CancelFunc
	if t := c.settings.downloadStallTimeout; t > 0 {
		ctx, cancel = context.WithTimeout(ctx, t)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	var source *ObjectReadSource
	call := func(ctx context.Context) error {
		stream, err := c.stub.GetObjectMedia(ctx, pb)
		if err != nil {
			return err
		}
		first, err := stream.Recv()
		if err != nil && err != io.EOF {
			return err
		}
		source = newObjectReadSource(stream, first, cancel)
		return nil
	}
	if err := run(ctx, call, c.settings.retry, true); err != nil {
		cancel()
		return nil, err
	}
	return source, nil
}

// ResumableUploadStatus is the committed state of a resumable upload as
// reported by the service.
type ResumableUploadStatus struct {
	// CommittedSize is the number of bytes the service has durably
	// persisted.
	CommittedSize int64

	// Complete reports whether the upload has been finalized.
	Complete bool
}

// QueryResumableUpload reports how much of a resumable upload the service
// has committed.
func (c *Client) QueryResumableUpload(ctx context.Context, req *QueryResumableUploadRequest) (*ResumableUploadStatus, error) {
	pb := toProtoQueryWriteStatus(req)
	ctx = setClientHeader(ctx)
	var resp *storagepb.QueryWriteStatusResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = c.stub.QueryWriteStatus(ctx, pb)
		return err
	}
	if err := run(ctx, call, c.settings.retry, true); err != nil {
		return nil, err
	}
	return &ResumableUploadStatus{
		CommittedSize: resp.GetCommittedSize(),
		Complete:      resp.GetComplete(),
	}, nil
}

// The methods below exist on the JSON transport but have no equivalent in
// the gRPC surface. They fail with ErrMethodNotSupported so callers can
// detect the gap and fall back.

// GetObjectMetadata is not supported over gRPC.
func (c *Client) GetObjectMetadata(ctx context.Context, bucket, object string) (*ObjectAttrs, error) {
	return nil, ErrMethodNotSupported
}

// ListObjects is not supported over gRPC.
func (c *Client) ListObjects(ctx context.Context, bucket string) ([]*ObjectAttrs, error) {
	return nil, ErrMethodNotSupported
}

// DeleteObject is not supported over gRPC.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	return ErrMethodNotSupported
}

// UpdateObject is not supported over gRPC.
func (c *Client) UpdateObject(ctx context.Context, bucket, object string, attrs *ObjectAttrs) (*ObjectAttrs, error) {
	return nil, ErrMethodNotSupported
}

// PatchObject is not supported over gRPC.
func (c *Client) PatchObject(ctx context.Context, bucket, object string, attrs *ObjectAttrs) (*ObjectAttrs, error) {
	return nil, ErrMethodNotSupported
}

// CopyObject is not supported over gRPC.
func (c *Client) CopyObject(ctx context.Context, srcBucket, srcObject, dstBucket, dstObject string) (*ObjectAttrs, error) {
	return nil, ErrMethodNotSupported
}

// ComposeObject is not supported over gRPC.
func (c *Client) ComposeObject(ctx context.Context, bucket, object string, sources []string) (*ObjectAttrs, error) {
	return nil, ErrMethodNotSupported
}

// RewriteObject is not supported over gRPC.
func (c *Client) RewriteObject(ctx context.Context, srcBucket, srcObject, dstBucket, dstObject string) (*ObjectAttrs, error) {
	return nil, ErrMethodNotSupported
}

// DeleteResumableUpload is not supported over gRPC.
func (c *Client) DeleteResumableUpload(ctx context.Context, uploadID string) error {
	return ErrMethodNotSupported
}

// ListObjectACL is not supported over gRPC.
func (c *Client) ListObjectACL(ctx context.Context, bucket, object string) ([]ACLRule, error) {
	return nil, ErrMethodNotSupported
}

// UpdateObjectACL is not supported over gRPC.
func (c *Client) UpdateObjectACL(ctx context.Context, bucket, object string, rule ACLRule) (*ACLRule, error) {
	return nil, ErrMethodNotSupported
}

// DeleteObjectACL is not supported over gRPC.
func (c *Client) DeleteObjectACL(ctx context.Context, bucket, object, entity string) error {
	return ErrMethodNotSupported
}

// GetServiceAccount is not supported over gRPC.
func (c *Client) GetServiceAccount(ctx context.Context, projectID string) (string, error) {
	return "", ErrMethodNotSupported
}
