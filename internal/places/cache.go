// 包 places：地点检索 API 客户端与进程级检索缓存
package places

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"card-api/internal/logger"
	"card-api/internal/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// 检索缓存 TTL 的环境变量与缺省值（秒）
// 背景：上游行为只保证进程内去重，不保证新鲜度；这里显式给出过期策略并允许按环境调整
const defaultCacheTTLSeconds = 600

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// Cache：按精确键（图层+中心点+半径）缓存检索响应体
// 约束：同键并发请求最多一个在途网络调用（singleflight），其余共享同一结果；
// 内存层惰性过期，Redis 层为可选的跨进程二级缓存，TTL 与内存层一致
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	rc      *redis.Client
	sf      singleflight.Group
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache：构造检索缓存；ttl<=0 时取缺省；rc 可为 nil
func NewCache(ttl time.Duration, rc *redis.Client) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTLSeconds * time.Second
	}
	return &Cache{ttl: ttl, now: time.Now, rc: rc, entries: map[string]cacheEntry{}}
}

// NewCacheFromEnv：按 PLACES_CACHE_TTL_SECONDS 构造
func NewCacheFromEnv(rc *redis.Client) *Cache {
	ttl := time.Duration(0)
	if v := os.Getenv("PLACES_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	return NewCache(ttl, rc)
}

// GetOrFetch：取缓存或发起一次抓取
// 约束：fn 失败不写缓存，错误原样返回给当前批次的所有等待者
func (c *Cache) GetOrFetch(ctx context.Context, key string, fn func() ([]byte, error)) ([]byte, error) {
	if body, ok := c.memGet(key); ok {
		metrics.PlacesCacheHitsTotal.Inc()
		return body, nil
	}
	metrics.PlacesCacheMissesTotal.Inc()
	v, err, _ := c.sf.Do(key, func() (any, error) {
		if body, ok := c.memGet(key); ok {
			return body, nil
		}
		if c.rc != nil {
			if s, err := c.rc.Get(ctx, key).Result(); err == nil && s != "" {
				metrics.RedisHitsTotal.Inc()
				body := []byte(s)
				c.memSet(key, body)
				return body, nil
			}
			metrics.RedisMissesTotal.Inc()
		}
		body, err := fn()
		if err != nil {
			return nil, err
		}
		c.memSet(key, body)
		if c.rc != nil {
			if err := c.rc.Set(ctx, key, string(body), c.ttl).Err(); err != nil {
				logger.L().Debug("places_cache_redis_set_error", "err", err)
			}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) memGet(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.body, true
}

func (c *Cache) memSet(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{body: body, expires: c.now().Add(c.ttl)}
}
