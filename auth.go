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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	storagepb "google.golang.org/genproto/googleapis/storage/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// authStrategy abstracts how calls and channels are authenticated. Channel
// creation consumes DialOptions; if RequiresConfigureContext reports true,
// every call context is first passed through ConfigureContext.
type authStrategy interface {
	RequiresConfigureContext() bool
	ConfigureContext(ctx context.Context) (context.Context, error)
	DialOptions() []grpc.DialOption
}

// newAuthStrategy picks the strategy for the resolved settings: no
// authentication for emulators, a caller-supplied token source if one was
// configured, and the application default credentials otherwise.
func newAuthStrategy(ctx context.Context, s *settings) (authStrategy, error) {
	if s.insecure {
		return insecureAuth{}, nil
	}
	if s.tokenSource != nil {
		return &tokenAuth{ts: s.tokenSource}, nil
	}
	creds, err := google.FindDefaultCredentials(ctx, ScopeFullControl)
	if err != nil {
		return nil, fmt.Errorf("storagegrpc: finding default credentials: %w", err)
	}
	return &tokenAuth{ts: creds.TokenSource}, nil
}

// tokenAuth authenticates the channel with TLS and each call with a bearer
// token from an oauth2 token source.
type tokenAuth struct {
	ts oauth2.TokenSource
}

func (a *tokenAuth) RequiresConfigureContext() bool { return true }

func (a *tokenAuth) ConfigureContext(ctx context.Context) (context.Context, error) {
	tok, err := a.ts.Token()
	if err != nil {
		return nil, fmt.Errorf("storagegrpc: fetching access token: %w", err)
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok.AccessToken), nil
}

func (a *tokenAuth) DialOptions() []grpc.DialOption {
	return []grpc.DialOption{grpc.WithTransportCredentials(credentials.NewTLS(nil))}
}

// insecureAuth disables both transport security and call credentials.
type insecureAuth struct{}

func (insecureAuth) RequiresConfigureContext() bool { return false }

func (insecureAuth) ConfigureContext(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

func (insecureAuth) DialOptions() []grpc.DialOption {
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
}

// storageAuth decorates a stub so that every call configures its context
// through the authentication strategy before being dispatched. It is only
// installed when the strategy requires per-call configuration; see
// composeStub.
type storageAuth struct {
	strategy authStrategy
	inner    storageStub
}

func (a *storageAuth) InsertObject(ctx context.Context) (storagepb.Storage_InsertObjectClient, error) {
	ctx, err := a.strategy.ConfigureContext(ctx)
	if err != nil {
		return nil, err
	}
	return a.inner.InsertObject(ctx)
}

func (a *storageAuth) GetObjectMedia(ctx context.Context, req *storagepb.GetObjectMediaRequest) (storagepb.Storage_GetObjectMediaClient, error) {
	ctx, err := a.strategy.ConfigureContext(ctx)
	if err != nil {
		return nil, err
	}
	return a.inner.GetObjectMedia(ctx, req)
}

func (a *storageAuth) StartResumableWrite(ctx context.Context, req *storagepb.StartResumableWriteRequest) (*storagepb.StartResumableWriteResponse, error) {
	ctx, err := a.strategy.ConfigureContext(ctx)
	if err != nil {
		return nil, err
	}
	return a.inner.StartResumableWrite(ctx, req)
}

func (a *storageAuth) QueryWriteStatus(ctx context.Context, req *storagepb.QueryWriteStatusRequest) (*storagepb.QueryWriteStatusResponse, error) {
	ctx, err := a.strategy.ConfigureContext(ctx)
	if err != nil {
		return nil, err
	}
	return a.inner.QueryWriteStatus(ctx, req)
}

func (a *storageAuth) Close() error {
	return a.inner.Close()
}
