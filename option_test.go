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
	"testing"
	"time"

	"github.com/googleapis/gax-go/v2"
)

func TestInitSettingsDefaults(t *testing.T) {
	s := initSettings()
	if s.endpoint != defaultEndpoint {
		t.Errorf("endpoint = %q, want %q", s.endpoint, defaultEndpoint)
	}
	if want := defaultNumChannels(); s.numChannels != want {
		t.Errorf("numChannels = %d, want %d", s.numChannels, want)
	}
	if s.insecure {
		t.Error("insecure = true, want false")
	}
	if s.retry != nil {
		t.Errorf("retry = %+v, want nil", s.retry)
	}
}

func TestInitSettingsOptions(t *testing.T) {
	s := initSettings(
		WithEndpoint("example.com:443"),
		WithGRPCConnectionPool(7),
		WithChannelConfig("dp,exclusive"),
		WithDownloadStallTimeout(time.Minute),
		WithRetryPolicy(RetryIdempotent),
		WithBackoff(gax.Backoff{Initial: time.Millisecond}),
	)
	if s.endpoint != "example.com:443" {
		t.Errorf("endpoint = %q", s.endpoint)
	}
	if s.numChannels != 7 {
		t.Errorf("numChannels = %d, want 7", s.numChannels)
	}
	if s.channelConfig != "dp,exclusive" {
		t.Errorf("channelConfig = %q", s.channelConfig)
	}
	if s.downloadStallTimeout != time.Minute {
		t.Errorf("downloadStallTimeout = %v", s.downloadStallTimeout)
	}
	if s.retry == nil || s.retry.policy != RetryIdempotent {
		t.Errorf("retry = %+v, want policy RetryIdempotent", s.retry)
	}
	if s.retry.backoff == nil || s.retry.backoff.Initial != time.Millisecond {
		t.Errorf("retry backoff = %+v", s.retry.backoff)
	}
}

func TestInitSettingsClampsChannelCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		s := initSettings(WithGRPCConnectionPool(n))
		if s.numChannels != 1 {
			t.Errorf("WithGRPCConnectionPool(%d): numChannels = %d, want 1", n, s.numChannels)
		}
	}
}

func TestInitSettingsEmulator(t *testing.T) {
	t.Setenv("STORAGE_EMULATOR_HOST_GRPC", "http://localhost:9090")
	s := initSettings(WithEndpoint("example.com:443"))
	if s.endpoint != "localhost:9090" {
		t.Errorf("endpoint = %q, want %q", s.endpoint, "localhost:9090")
	}
	if !s.insecure {
		t.Error("insecure = false, want true under the emulator")
	}
}

func TestStripScheme(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"localhost:9090", "localhost:9090"},
		{"http://localhost:9090", "localhost:9090"},
		{"https://storage.example.com:443", "storage.example.com:443"},
		{"grpc://example.com", "example.com"},
	}
	for _, test := range tests {
		if got := stripScheme(test.host); got != test.want {
			t.Errorf("stripScheme(%q) = %q, want %q", test.host, got, test.want)
		}
	}
}
