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
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/antflydb/weaver/lib/chat"
)

// ChatCacheTTL is the default TTL for cached chat responses. Re-running
// a dataset within the window reuses completions instead of hitting the
// model again.
const ChatCacheTTL = 30 * time.Minute

// CachedBackend wraps a chat backend with response caching
type CachedBackend struct {
	backend chat.Backend
	name    string
	cache   *ttlcache.Cache[string, *chat.Response]
	sfGroup *singleflight.Group
	logger  *zap.Logger

	// Metrics
	hits   atomic.Uint64
	misses atomic.Uint64
	sfHits atomic.Uint64
}

var _ chat.Backend = (*CachedBackend)(nil)

// NewCachedBackend wraps a chat backend with caching
func NewCachedBackend(
	backend chat.Backend,
	name string,
	cache *ttlcache.Cache[string, *chat.Response],
	logger *zap.Logger,
) *CachedBackend {
	return &CachedBackend{
		backend: backend,
		name:    name,
		cache:   cache,
		sfGroup: &singleflight.Group{},
		logger:  logger,
	}
}

// Chat completes the request, serving repeats from cache. Responses are
// shared between callers and must be treated as read-only.
func (c *CachedBackend) Chat(ctx context.Context, req chat.Request) (*chat.Response, error) {
	key := c.cacheKey(req)

	if item := c.cache.Get(key); item != nil {
		c.hits.Add(1)
		RecordCacheHit("chat")
		c.logger.Debug("Chat cache hit",
			zap.String("model", req.Model),
			zap.Int("messages", len(req.Messages)))
		return item.Value(), nil
	}

	// Use singleflight to deduplicate concurrent identical requests
	result, err, shared := c.sfGroup.Do(key, func() (any, error) {
		c.misses.Add(1)
		RecordCacheMiss("chat")

		start := time.Now()
		resp, err := c.backend.Chat(ctx, req)
		if err != nil {
			return nil, err
		}

		c.cache.Set(key, resp, ttlcache.DefaultTTL)

		c.logger.Debug("Chat completed and cached",
			zap.String("model", req.Model),
			zap.Duration("duration", time.Since(start)))

		return resp, nil
	})

	if err != nil {
		return nil, err
	}

	if shared {
		c.sfHits.Add(1)
		c.logger.Debug("Singleflight hit for chat request",
			zap.String("model", req.Model))
	}

	return result.(*chat.Response), nil
}

// cacheKey generates a unique cache key from the full request
func (c *CachedBackend) cacheKey(req chat.Request) string {
	h := xxhash.New()

	_, _ = h.WriteString(c.name)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(req.Model)
	_, _ = h.WriteString("|")

	for i, msg := range req.Messages {
		_, _ = h.WriteString("m")
		// Use index to ensure order matters
		_, _ = h.Write([]byte{byte(i >> 8), byte(i)})
		_, _ = h.WriteString(":")
		_, _ = h.WriteString(msg.Role)
		_, _ = h.WriteString(":")
		_, _ = h.WriteString(msg.Content)
		_, _ = h.WriteString("|")
	}

	// ConfigStd sorts map keys, keeping keys stable across calls.
	if req.Format != nil {
		format, _ := sonic.ConfigStd.Marshal(req.Format)
		_, _ = h.WriteString("f:")
		_, _ = h.Write(format)
		_, _ = h.WriteString("|")
	}
	if req.Options != nil {
		options, _ := sonic.ConfigStd.Marshal(req.Options)
		_, _ = h.WriteString("o:")
		_, _ = h.Write(options)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Sum64())
	return string(buf[:])
}

// Stats returns cache statistics for this backend
func (c *CachedBackend) Stats() ChatCacheStats {
	return ChatCacheStats{
		Model:            c.name,
		Hits:             c.hits.Load(),
		Misses:           c.misses.Load(),
		SingleflightHits: c.sfHits.Load(),
	}
}

// ChatCacheStats holds cache statistics for a wrapped backend
type ChatCacheStats struct {
	Model            string `json:"model"`
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
	SingleflightHits uint64 `json:"singleflight_hits"`
}

// ChatCache manages response caching across wrapped backends
type ChatCache struct {
	cache  *ttlcache.Cache[string, *chat.Response]
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewChatCache creates a new chat response cache
func NewChatCache(logger *zap.Logger) *ChatCache {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *chat.Response](ChatCacheTTL),
	)
	go cache.Start()

	ctx, cancel := context.WithCancel(context.Background())
	cc := &ChatCache{
		cache:  cache,
		logger: logger,
		cancel: cancel,
	}

	// Log cache stats periodically
	go cc.logStats(ctx)

	return cc
}

// WrapBackend wraps a chat backend with caching
func (cc *ChatCache) WrapBackend(backend chat.Backend, name string) *CachedBackend {
	return NewCachedBackend(backend, name, cc.cache, cc.logger.Named(name))
}

// Close stops the cache
func (cc *ChatCache) Close() {
	cc.cancel()
	cc.cache.Stop()
}

// logStats logs cache statistics periodically
func (cc *ChatCache) logStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics := cc.cache.Metrics()
			if metrics.Hits > 0 || metrics.Misses > 0 {
				hitRate := float64(0)
				total := metrics.Hits + metrics.Misses
				if total > 0 {
					hitRate = float64(metrics.Hits) / float64(total) * 100
				}
				cc.logger.Info("Chat cache stats",
					zap.Uint64("hits", metrics.Hits),
					zap.Uint64("misses", metrics.Misses),
					zap.Float64("hit_rate_pct", hitRate),
					zap.Int("items", cc.cache.Len()))
			}
		}
	}
}

// Stats returns global cache statistics
func (cc *ChatCache) Stats() map[string]any {
	metrics := cc.cache.Metrics()
	return map[string]any{
		"hits":   metrics.Hits,
		"misses": metrics.Misses,
		"items":  cc.cache.Len(),
	}
}
