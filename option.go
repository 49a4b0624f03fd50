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
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"
	"golang.org/x/oauth2"
)

const (
	// ScopeFullControl grants permissions to manage your
	// data and permissions in Google Cloud Storage.
	ScopeFullControl = "https://www.googleapis.com/auth/devstorage.full_control"

	// ScopeReadOnly grants permissions to
	// view your data in Google Cloud Storage.
	ScopeReadOnly = "https://www.googleapis.com/auth/devstorage.read_only"

	// ScopeReadWrite grants permissions to manage your
	// data in Google Cloud Storage.
	ScopeReadWrite = "https://www.googleapis.com/auth/devstorage.read_write"
)

// defaultEndpoint is the gRPC endpoint for the storage service.
const defaultEndpoint = "storage.googleapis.com:443"

// settings holds the resolved client configuration. It is immutable once
// NewClient returns.
type settings struct {
	endpoint    string
	numChannels int

	// channelConfig is a comma-separated set of channel tuning modes. See
	// WithChannelConfig for the accepted values.
	channelConfig string

	tokenSource oauth2.TokenSource
	insecure    bool

	downloadStallTimeout time.Duration

	retry *retryConfig
}

// An Option configures a Client.
type Option interface {
	apply(*settings)
}

type optionFunc func(*settings)

func (f optionFunc) apply(s *settings) { f(s) }

// WithEndpoint returns an Option that overrides the service endpoint,
// host:port. The default is storage.googleapis.com:443.
func WithEndpoint(endpoint string) Option {
	return optionFunc(func(s *settings) { s.endpoint = endpoint })
}

// WithGRPCConnectionPool returns an Option that sets the number of gRPC
// channels the client opens to the service. Calls are dispatched across the
// pool in round-robin order. The default is max(4, runtime.NumCPU()); values
// below 1 are treated as 1. A larger pool may be necessary for jobs that
// require high throughput or many concurrent streams.
func WithGRPCConnectionPool(size int) Option {
	return optionFunc(func(s *settings) { s.numChannels = size })
}

// WithChannelConfig returns an Option that selects channel tuning modes as a
// comma-separated set. The accepted values are:
//
//	default, none          plain channels (same as the empty string)
//	dp                     direct-path routing (grpclb with a pick_first
//	                       child policy, DNS SRV queries enabled)
//	pick-first-lb          the direct-path load balancing policy only
//	enable-dns-srv-queries resolve the endpoint through the dns scheme
//	disable-dns-srv-queries
//	exclusive              a distinct channel id per channel
//	alts                   ALTS transport security composed with Compute
//	                       Engine credentials; only usable on trusted
//	                       networks, and overrides the configured
//	                       authentication
func WithChannelConfig(config string) Option {
	return optionFunc(func(s *settings) { s.channelConfig = config })
}

// WithTokenSource returns an Option that authenticates calls with tokens
// from ts instead of the application default credentials.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return optionFunc(func(s *settings) { s.tokenSource = ts })
}

// WithoutAuthentication returns an Option that disables authentication and
// transport security. It is intended for tests and emulators.
func WithoutAuthentication() Option {
	return optionFunc(func(s *settings) { s.insecure = true })
}

// WithDownloadStallTimeout returns an Option that bounds the total time a
// streaming download may take. The deadline covers the whole streamed read,
// measured from when the read stream is opened; it is not an inactivity
// timer.
func WithDownloadStallTimeout(d time.Duration) Option {
	return optionFunc(func(s *settings) { s.downloadStallTimeout = d })
}

// WithRetryPolicy returns an Option that controls when failed calls are
// retried. The default is RetryNever: every operation makes one attempt and
// the transport surfaces every error to the caller. Under RetryIdempotent,
// uploads are reissued only when request preconditions pin their outcome.
// Chunks of a resumable session are never retried; the session's committed
// offset is the recovery mechanism there.
func WithRetryPolicy(policy RetryPolicy) Option {
	return optionFunc(func(s *settings) {
		if s.retry == nil {
			s.retry = &retryConfig{}
		}
		s.retry.policy = policy
	})
}

// WithBackoff returns an Option that sets the backoff used between retry
// attempts. It has no effect unless a retry policy other than RetryNever is
// configured.
func WithBackoff(backoff gax.Backoff) Option {
	return optionFunc(func(s *settings) {
		if s.retry == nil {
			s.retry = &retryConfig{}
		}
		s.retry.backoff = &backoff
	})
}

// defaultNumChannels mirrors the channel-count default used by the other
// storage transports: at least four channels, more on larger machines.
func defaultNumChannels() int {
	const minimumChannels = 4
	if n := runtime.NumCPU(); n > minimumChannels {
		return n
	}
	return minimumChannels
}

// initSettings resolves opts against the defaults. If STORAGE_EMULATOR_HOST_GRPC
// is set the client targets the emulator without authentication, regardless
// of the configured endpoint and credentials.
func initSettings(opts ...Option) *settings {
	s := &settings{
		endpoint:    defaultEndpoint,
		numChannels: defaultNumChannels(),
	}
	for _, o := range opts {
		o.apply(s)
	}
	if host := os.Getenv("STORAGE_EMULATOR_HOST_GRPC"); host != "" {
		s.endpoint = stripScheme(host)
		s.insecure = true
	}
	if s.numChannels < 1 {
		s.numChannels = 1
	}
	return s
}

// stripScheme removes the scheme from a host. gRPC targets do not take a
// scheme, but emulator configurations commonly include one.
func stripScheme(host string) string {
	if strings.Contains(host, "://") {
		host = strings.SplitN(host, "://", 2)[1]
	}
	return host
}
