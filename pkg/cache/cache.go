package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL 상수 정의
const (
	TTLBanFlags = 30 * time.Second // 차단 플래그 (만료 시각에 민감)
)

// 캐시 키 접두사
const (
	PrefixBans       = "bans:"
	PrefixGroupFlags = PrefixBans + "group_flags:"
	PrefixExclusions = PrefixBans + "exclusions:"

	// 세대 키는 "bans:*" 패턴 삭제 대상이 아니다
	KeyGeneration = "ban_cache:generation"
)

// ErrCacheMiss is returned when a key is absent or the cache is unavailable
var ErrCacheMiss = errors.New("cache miss")

// Service Redis 캐시 서비스 인터페이스.
// Ban-derived entries are keyed by a generation number that every write bumps,
// so a fill computed before a write can never be read after it.
type Service interface {
	// 기본 캐시 연산
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// 현재 캐시 세대 (읽기 전에 조회해야 한다)
	Generation(ctx context.Context) (int64, error)

	// 그룹 차단 플래그 캐시
	GetGroupFlags(ctx context.Context, gen int64, dest interface{}) error
	SetGroupFlags(ctx context.Context, gen int64, data interface{}, ttl time.Duration) error

	// 선택 제외 목록 캐시
	GetExclusions(ctx context.Context, kind string, gen int64, dest interface{}) error
	SetExclusions(ctx context.Context, kind string, gen int64, data interface{}, ttl time.Duration) error

	// 차단 관련 캐시 전체 무효화 (모든 쓰기 경로에서 커밋 후 호출)
	InvalidateBans(ctx context.Context) error

	// 유틸리티
	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis 기반 캐시 구현
type redisCache struct {
	client *redis.Client
}

// NewService 새로운 캐시 서비스 생성. client가 nil이면 모든 조회는 miss, 쓰기는 무시된다.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable Redis 연결 가능 여부
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping Redis 연결 테스트
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// Get 캐시에서 값 조회
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set 캐시에 값 저장
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil // Redis 없으면 무시
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete 캐시 삭제
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ========================================
// 캐시 세대
// ========================================

// Generation returns the current generation; 0 when never bumped or Redis is absent
func (c *redisCache) Generation(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, KeyGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// ========================================
// 그룹 차단 플래그 캐시
// ========================================

func (c *redisCache) groupFlagsKey(gen int64) string {
	return PrefixGroupFlags + strconv.FormatInt(gen, 10)
}

func (c *redisCache) GetGroupFlags(ctx context.Context, gen int64, dest interface{}) error {
	return c.Get(ctx, c.groupFlagsKey(gen), dest)
}

func (c *redisCache) SetGroupFlags(ctx context.Context, gen int64, data interface{}, ttl time.Duration) error {
	return c.Set(ctx, c.groupFlagsKey(gen), data, ttl)
}

// ========================================
// 선택 제외 목록 캐시
// ========================================

func (c *redisCache) exclusionsKey(kind string, gen int64) string {
	return PrefixExclusions + kind + ":" + strconv.FormatInt(gen, 10)
}

func (c *redisCache) GetExclusions(ctx context.Context, kind string, gen int64, dest interface{}) error {
	return c.Get(ctx, c.exclusionsKey(kind, gen), dest)
}

func (c *redisCache) SetExclusions(ctx context.Context, kind string, gen int64, data interface{}, ttl time.Duration) error {
	return c.Set(ctx, c.exclusionsKey(kind, gen), data, ttl)
}

// InvalidateBans bumps the generation first, so in-flight fills land on dead
// keys, then drops every existing ban entry.
func (c *redisCache) InvalidateBans(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, KeyGeneration).Err(); err != nil {
		return err
	}
	return c.deleteByPattern(ctx, PrefixBans+"*")
}

// ========================================
// 내부 유틸리티
// ========================================

func (c *redisCache) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if err := c.Delete(ctx, keys...); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
