package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const writeLimitKeyPrefix = "ratelimit:ban_writes:"

// slidingWindowScript admits a request when fewer than ARGV[1] were admitted
// within the last ARGV[2] ms. Returns {allowed, remaining, reset_at_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('PEXPIRE', key, window + 1000)
    return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local reset_at = 0
if #oldest >= 2 then
    reset_at = tonumber(oldest[2]) + window
end
return {0, 0, reset_at}
`)

// AdminWriteLimit throttles ban mutations per admin user with a one-minute
// sliding window kept in Redis. A nil client or perMinute <= 0 disables it,
// and a Redis error lets the request through.
func AdminWriteLimit(redisClient *redis.Client, perMinute int) gin.HandlerFunc {
	const window = time.Minute

	return func(c *gin.Context) {
		if redisClient == nil || perMinute <= 0 {
			c.Next()
			return
		}

		subject := GetUserID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		now := time.Now().UnixMilli()
		result, err := slidingWindowScript.Run(c.Request.Context(), redisClient,
			[]string{writeLimitKeyPrefix + subject},
			perMinute, window.Milliseconds(), now,
		).Int64Slice()
		if err != nil {
			logger.GetLogger().Warn().Err(err).Str("user_id", subject).Msg("write limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result[1], 10))

		if result[0] != 1 {
			retryAfter := (result[2] - now) / 1000
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.V2ErrorResponse(c, http.StatusTooManyRequests, "too many ban changes, retry later", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
