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
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/grpc/metadata"
)

func TestNewAuthStrategyInsecure(t *testing.T) {
	auth, err := newAuthStrategy(context.Background(), &settings{insecure: true})
	if err != nil {
		t.Fatalf("newAuthStrategy: %v", err)
	}
	if auth.RequiresConfigureContext() {
		t.Error("insecure strategy requires context configuration")
	}
	ctx := context.Background()
	got, err := auth.ConfigureContext(ctx)
	if err != nil {
		t.Fatalf("ConfigureContext: %v", err)
	}
	if got != ctx {
		t.Error("insecure ConfigureContext changed the context")
	}
}

func TestNewAuthStrategyTokenSource(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	auth, err := newAuthStrategy(context.Background(), &settings{tokenSource: ts})
	if err != nil {
		t.Fatalf("newAuthStrategy: %v", err)
	}
	if !auth.RequiresConfigureContext() {
		t.Fatal("token strategy does not require context configuration")
	}
	ctx, err := auth.ConfigureContext(context.Background())
	if err != nil {
		t.Fatalf("ConfigureContext: %v", err)
	}
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("no outgoing metadata on configured context")
	}
	if got := md.Get("authorization"); len(got) != 1 || got[0] != "Bearer test-token" {
		t.Errorf("authorization metadata = %q, want [\"Bearer test-token\"]", got)
	}
}

type failingTokenSource struct{}

func (failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, errors.New("token refresh failed")
}

func TestTokenAuthPropagatesTokenError(t *testing.T) {
	auth := &tokenAuth{ts: failingTokenSource{}}
	if _, err := auth.ConfigureContext(context.Background()); err == nil {
		t.Error("ConfigureContext succeeded, want error")
	}
}

func TestStorageAuthConfiguresEveryCall(t *testing.T) {
	strategy := &fakeAuthStrategy{requires: true}
	stub := &fakeStub{}
	auth := &storageAuth{strategy: strategy, inner: stub}

	ctx := context.Background()
	auth.InsertObject(ctx)
	auth.GetObjectMedia(ctx, nil)
	auth.StartResumableWrite(ctx, nil)
	auth.QueryWriteStatus(ctx, nil)

	if strategy.configured != 4 {
		t.Errorf("ConfigureContext ran %d times, want 4", strategy.configured)
	}
	if stub.insertCalls+stub.readCalls+stub.startCalls+stub.queryCalls != 4 {
		t.Error("not every call reached the inner stub")
	}
}

func TestStorageAuthStopsOnConfigureError(t *testing.T) {
	strategy := &tokenAuth{ts: failingTokenSource{}}
	stub := &fakeStub{}
	auth := &storageAuth{strategy: strategy, inner: stub}

	if _, err := auth.QueryWriteStatus(context.Background(), nil); err == nil {
		t.Fatal("QueryWriteStatus succeeded, want error")
	}
	// The call never reaches the wire when credentials cannot be fetched.
	if stub.queryCalls != 0 {
		t.Errorf("inner stub dispatched %d times, want 0", stub.queryCalls)
	}
}
