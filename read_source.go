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
	"errors"
	"io"
	"time"

	storagepb "google.golang.org/genproto/googleapis/storage/v1"
)

var errSourceClosed = errors.New("storagegrpc: read from closed source")

// ReaderObjectAttrs are the object attributes relevant to a download,
// populated from the download stream's first message.
type ReaderObjectAttrs struct {
	// Size is the length of the object's content.
	Size int64

	// StartOffset is the byte offset within the object the download
	// begins at. Nonzero for ranged reads.
	StartOffset int64

	ContentType     string
	ContentEncoding string
	CacheControl    string
	LastModified    time.Time
	Generation      int64
	Metageneration  int64
}

// ObjectReadSource streams the contents of an object. It is a finite,
// forward-only sequence of bytes; a new range read requires a new call to
// Client.ReadObject. Not safe for concurrent use.
type ObjectReadSource struct {
	// Attrs holds the download attributes from the stream's first
	// message, available before any payload is read.
	Attrs ReaderObjectAttrs

	// Metadata is the full object resource, if the service included one
	// with the first message.
	Metadata *ObjectAttrs

	stream    storagepb.Storage_GetObjectMediaClient
	leftovers []byte
	cancel    context.CancelFunc
	closed    bool
}

func newObjectReadSource(stream storagepb.Storage_GetObjectMediaClient, first *storagepb.GetObjectMediaResponse, cancel context.CancelFunc) *ObjectReadSource {
	r := &ObjectReadSource{
		stream: stream,
		cancel: cancel,
	}
	if first == nil {
		// The server closed the stream without a single message; the
		// source reports EOF immediately.
		r.stream = nil
		return r
	}
	if md := first.GetMetadata(); md != nil {
		r.Metadata = fromProtoObject(md)
		r.Attrs = ReaderObjectAttrs{
			Size:            md.GetSize(),
			ContentType:     md.GetContentType(),
			ContentEncoding: md.GetContentEncoding(),
			CacheControl:    md.GetCacheControl(),
			LastModified:    fromProtoTimestamp(md.GetUpdated()),
			Generation:      md.GetGeneration(),
			Metageneration:  md.GetMetageneration(),
		}
	}
	if cr := first.GetContentRange(); cr != nil {
		r.Attrs.StartOffset = cr.GetStart()
		if cr.GetCompleteLength() > 0 {
			r.Attrs.Size = cr.GetCompleteLength()
		}
	}
	r.leftovers = first.GetChecksummedData().GetContent()
	return r
}

// Read pulls the next bytes off the stream. Bytes received but not yet
// consumed are buffered between calls, so short destination buffers lose
// nothing.
func (r *ObjectReadSource) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errSourceClosed
	}
	if len(r.leftovers) > 0 {
		n := copy(p, r.leftovers)
		r.leftovers = r.leftovers[n:]
		return n, nil
	}
	if r.stream == nil {
		return 0, io.EOF
	}
	resp, err := r.stream.Recv()
	if err == io.EOF {
		r.stream = nil
		return 0, io.EOF
	}
	if err != nil {
		return 0, err
	}
	content := resp.GetChecksummedData().GetContent()
	n := copy(p, content)
	if n < len(content) {
		r.leftovers = content[n:]
	}
	return n, nil
}

// Close cancels the underlying stream and releases its resources. Reads
// after Close fail.
func (r *ObjectReadSource) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.stream = nil
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}
