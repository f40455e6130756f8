package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"modashot-server/modules/common/config"
)

// Connect - 큐/리퍼가 공유하는 Redis 클라이언트 생성, ping까지 확인하고 반환
func Connect(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(clientOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed (%s): %w", cfg.GetRedisAddr(), err)
	}

	log.Printf("✅ Redis connected: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	return rdb, nil
}

func clientOptions(cfg *config.Config) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// managed Redis는 self-signed 인증서를 쓰는 경우가 있어 검증은 끈다
	if cfg.RedisUseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true,
		}
	}

	return opts
}
