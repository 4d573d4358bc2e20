package dedup

import (
	"context"
	"fmt"
	"time"

	"go-botlens/pkg/config"

	"github.com/gomodule/redigo/redis"
)

const keyPrefix = "botlens:citation:"

// NewPool 按配置创建 redis 连接池
func NewPool(cfg *config.Config) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", cfg.Redis.Addr,
				redis.DialPassword(cfg.Redis.Password),
				redis.DialDatabase(cfg.Redis.DB),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// claimScript 比较事件时间并占位。KEYS[1]=键 ARGV[1]=事件毫秒 ARGV[2]=窗口毫秒 ARGV[3]=保留毫秒
// 返回 1 表示窗口内重复
const claimScript = `
local last = redis.call('GET', KEYS[1])
if last and tonumber(ARGV[1]) - tonumber(last) < tonumber(ARGV[2]) then
  return 1
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 0
`

// RedisDeduplicator 保存最近一次引用的事件时间，用 Lua 脚本原子地比较并占位，多个进程之间也是原子的。
// 比较基于事件时间而不是 Redis 时钟，消费积压或重放时结果与 StoreDeduplicator 一致；
// 键在 retention 后过期，积压超过 retention 的事件不再去重
type RedisDeduplicator struct {
	pool      *redis.Pool
	window    time.Duration
	retention time.Duration
}

func NewRedisDeduplicator(pool *redis.Pool, window, retention time.Duration) *RedisDeduplicator {
	if window <= 0 {
		window = DefaultWindow
	}
	if retention < window {
		retention = window
	}
	return &RedisDeduplicator{pool: pool, window: window, retention: retention}
}

func citationKey(platform, ip string) string {
	return keyPrefix + platform + ":" + ip
}

func (d *RedisDeduplicator) IsDuplicate(ctx context.Context, platform, ip string, now time.Time) (bool, error) {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return false, fmt.Errorf("获取redis连接失败: %w", err)
	}
	defer conn.Close()

	dup, err := redis.Int(redis.DoContext(conn, ctx, "EVAL", claimScript, 1, citationKey(platform, ip),
		now.UnixMilli(), d.window.Milliseconds(), d.retention.Milliseconds()))
	if err != nil {
		return false, fmt.Errorf("redis 引用去重脚本执行失败: %w", err)
	}
	return dup == 1, nil
}

// Forget 删除占位，写库失败时调用
func (d *RedisDeduplicator) Forget(ctx context.Context, platform, ip string) error {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "DEL", citationKey(platform, ip))
	return err
}
