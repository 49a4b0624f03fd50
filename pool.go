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
	"fmt"
	"strings"

	"google.golang.org/grpc"
	// Registers the grpclb policy named in directPathServiceConfig.
	_ "google.golang.org/grpc/balancer/grpclb"
	"google.golang.org/grpc/credentials/alts"
	"google.golang.org/grpc/credentials/oauth"
)

// directPathServiceConfig requests a pick_first child policy nested under
// the direct-routing grpclb parent policy.
const directPathServiceConfig = `{
	"loadBalancingConfig": [{
		"grpclb": {
			"childPolicy": [{
				"pick_first": {}
			}]
		}
	}]
}`

// channelConfigSet is the parsed form of the comma-separated channel
// configuration string.
type channelConfigSet map[string]bool

func parseChannelConfig(config string) channelConfigSet {
	set := channelConfigSet{}
	if config == "" || config == "default" || config == "none" {
		return set
	}
	for _, v := range strings.Split(config, ",") {
		set[strings.TrimSpace(v)] = true
	}
	return set
}

// directPath reports whether the direct-routing policy applies. ALTS is only
// usable over direct path, so it implies it.
func (c channelConfigSet) directPath() bool { return c["dp"] || c["alts"] }

// dialChannel creates one channel to the configured endpoint. channelID tags
// the channel for affinity bookkeeping; every channel in a pool owns its own
// ClientConn, so transports are never shared across pool entries even when
// the "exclusive" mode is not set.
func dialChannel(ctx context.Context, s *settings, auth authStrategy, channelID int) (*grpc.ClientConn, error) {
	cfg := parseChannelConfig(s.channelConfig)

	target := s.endpoint
	if cfg.directPath() || cfg["enable-dns-srv-queries"] {
		// SRV records are only consulted through the dns resolver.
		target = "dns:///" + s.endpoint
	}
	if cfg["disable-dns-srv-queries"] {
		target = s.endpoint
	}

	opts := []grpc.DialOption{
		grpc.WithUserAgent(userAgent()),
	}
	if cfg.directPath() || cfg["pick-first-lb"] {
		opts = append(opts,
			grpc.WithDefaultServiceConfig(directPathServiceConfig),
			grpc.WithDisableServiceConfig(),
		)
	}
	if cfg["alts"] {
		// Transport-level mutual authentication composed with the
		// infrastructure default credential, bypassing the configured
		// authentication strategy. Only valid on trusted networks.
		opts = append(opts,
			grpc.WithTransportCredentials(alts.NewClientCreds(alts.DefaultClientOptions())),
			grpc.WithPerRPCCredentials(oauth.NewComputeEngine()),
		)
	} else {
		opts = append(opts, auth.DialOptions()...)
	}

	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("storagegrpc: creating channel %d to %q: %w", channelID, target, err)
	}
	return conn, nil
}

// newStorageStubs builds the stub stack: one stub per channel, a round-robin
// multiplexer over them, and the authentication decorator on top when the
// strategy needs per-call configuration. A channel creation failure closes
// any channels already opened and fails construction; no partial pool is
// returned.
func newStorageStubs(ctx context.Context, s *settings, auth authStrategy) (storageStub, error) {
	n := s.numChannels
	if n < 1 {
		n = 1
	}
	children := make([]storageStub, 0, n)
	for id := 0; id < n; id++ {
		conn, err := dialChannel(ctx, s, auth, id)
		if err != nil {
			for _, c := range children {
				c.Close()
			}
			return nil, err
		}
		children = append(children, newStorageStub(conn, id))
	}
	return composeStub(children, auth), nil
}

// composeStub assembles the decorator chain over the per-channel stubs.
func composeStub(children []storageStub, auth authStrategy) storageStub {
	var stub storageStub = newStorageRoundRobin(children)
	if auth.RequiresConfigureContext() {
		stub = &storageAuth{strategy: auth, inner: stub}
	}
	return stub
}
