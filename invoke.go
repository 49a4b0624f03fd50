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
	"fmt"
	"io"
	"time"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RetryPolicy controls when the client reissues a failed call. The default
// is RetryNever: every operation makes exactly one attempt and surfaces the
// transport error to the caller, who decides whether to retry.
type RetryPolicy int

const (
	// RetryNever makes a single attempt per operation.
	RetryNever RetryPolicy = iota
	// RetryIdempotent retries operations that are safe to reissue.
	RetryIdempotent
	// RetryAlways retries all transient failures, including for
	// non-idempotent operations.
	RetryAlways
)

type retryConfig struct {
	backoff *gax.Backoff
	policy  RetryPolicy
}

// run invokes call, reissuing it on transient failure when retry allows.
// With a nil retry or RetryNever the call is made exactly once.
func run(ctx context.Context, call func(ctx context.Context) error, retry *retryConfig, isIdempotent bool) error {
	if retry == nil || retry.policy == RetryNever || (retry.policy == RetryIdempotent && !isIdempotent) {
		return call(ctx)
	}
	bo := gax.Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
	}
	if retry.backoff != nil {
		bo = *retry.backoff
	}
	var lastErr error
	for {
		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("storagegrpc: retry failed with %v; last error: %w", ctx.Err(), lastErr)
		case <-time.After(bo.Pause()):
		}
	}
}

// shouldRetry reports whether err is one of the transient transport
// failures worth reissuing.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	}
	return false
}
