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

/*
Package storagegrpc implements the gRPC transport for a Google Cloud Storage
client. It owns the pieces of the client that cannot be generated: a pool of
gRPC channels with round-robin dispatch, per-call credential injection,
translation between client request types and the google.storage.v1 wire
messages, chunked streaming uploads with per-chunk integrity checksums,
resumable upload sessions, and streaming range downloads.

Create a client and upload an object:

	client, err := storagegrpc.NewClient(ctx)
	if err != nil {
		// TODO: handle error.
	}
	defer client.Close()
	attrs, err := client.InsertObjectMedia(ctx, &storagegrpc.InsertObjectMediaRequest{
		Bucket:   "my-bucket",
		Object:   "notes.txt",
		Contents: []byte("hello world"),
	})

Only the media upload, media download and resumable-upload operations are
implemented over gRPC.
The remaining operations return an Unimplemented error so that callers can
detect the gap and fall back to another transport; see ErrMethodNotSupported.

Clients are safe for concurrent use by multiple goroutines. A
ResumableUploadSession is not; it is owned by a single uploader for the
duration of one upload.
*/
package storagegrpc
