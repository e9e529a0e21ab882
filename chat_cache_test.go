// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package weaver

import (
	"context"
	"fmt"
	"testing"

	"github.com/antflydb/weaver/lib/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func userRequest(model, content string) chat.Request {
	return chat.Request{
		Model:    model,
		Messages: []chat.Message{{Role: chat.RoleUser, Content: content}},
	}
}

func TestCachedBackendServesRepeats(t *testing.T) {
	backend := &scriptedBackend{chatFunc: func(call int, _ chat.Request) (*chat.Response, error) {
		return textResponse(fmt.Sprintf("reply %d", call)), nil
	}}

	cc := NewChatCache(zap.NewNop())
	defer cc.Close()
	cached := cc.WrapBackend(backend, "test")

	first, err := cached.Chat(context.Background(), userRequest("m", "hello"))
	require.NoError(t, err)
	second, err := cached.Chat(context.Background(), userRequest("m", "hello"))
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, "reply 1", first.Content)
	assert.Equal(t, "reply 1", second.Content)

	stats := cached.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestCachedBackendDistinguishesRequests(t *testing.T) {
	backend := &scriptedBackend{chatFunc: func(call int, _ chat.Request) (*chat.Response, error) {
		return textResponse(fmt.Sprintf("reply %d", call)), nil
	}}

	cc := NewChatCache(zap.NewNop())
	defer cc.Close()
	cached := cc.WrapBackend(backend, "test")

	ctx := context.Background()
	_, err := cached.Chat(ctx, userRequest("m", "hello"))
	require.NoError(t, err)
	_, err = cached.Chat(ctx, userRequest("m", "goodbye"))
	require.NoError(t, err)
	_, err = cached.Chat(ctx, userRequest("other-model", "hello"))
	require.NoError(t, err)

	withFormat := userRequest("m", "hello")
	withFormat.Format = chat.TagListSchema()
	_, err = cached.Chat(ctx, withFormat)
	require.NoError(t, err)

	assert.Equal(t, 4, backend.calls)
}

func TestCachedBackendKeyIgnoresMapOrder(t *testing.T) {
	backend := &scriptedBackend{chatFunc: func(int, chat.Request) (*chat.Response, error) {
		return textResponse("reply"), nil
	}}

	cc := NewChatCache(zap.NewNop())
	defer cc.Close()
	cached := cc.WrapBackend(backend, "test")

	a := userRequest("m", "hello")
	a.Options = map[string]any{"temperature": 0.1, "num_ctx": 4096}
	b := userRequest("m", "hello")
	b.Options = map[string]any{"num_ctx": 4096, "temperature": 0.1}

	_, err := cached.Chat(context.Background(), a)
	require.NoError(t, err)
	_, err = cached.Chat(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
}

func TestCachedBackendDoesNotCacheErrors(t *testing.T) {
	backend := &scriptedBackend{chatFunc: func(call int, _ chat.Request) (*chat.Response, error) {
		if call == 1 {
			return nil, fmt.Errorf("transient failure")
		}
		return textResponse("recovered"), nil
	}}

	cc := NewChatCache(zap.NewNop())
	defer cc.Close()
	cached := cc.WrapBackend(backend, "test")

	_, err := cached.Chat(context.Background(), userRequest("m", "hello"))
	require.Error(t, err)

	resp, err := cached.Chat(context.Background(), userRequest("m", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, backend.calls)
}

func TestChatCacheStats(t *testing.T) {
	backend := &scriptedBackend{chatFunc: func(int, chat.Request) (*chat.Response, error) {
		return textResponse("reply"), nil
	}}

	cc := NewChatCache(zap.NewNop())
	defer cc.Close()
	cached := cc.WrapBackend(backend, "ollama")

	_, err := cached.Chat(context.Background(), userRequest("m", "hello"))
	require.NoError(t, err)

	stats := cc.Stats()
	require.Contains(t, stats, "hits")
	require.Contains(t, stats, "misses")
	assert.Equal(t, 1, stats["items"])
}
