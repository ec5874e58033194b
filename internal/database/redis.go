package database

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/asmaravianti/ecg-compression/internal/config"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

// InitRedis connects the optional cache. The portal works without it, the
// leaderboard just hits Codabench on every request.
func InitRedis() {
	if config.AppConfig.RedisURL == "" {
		log.Println("REDIS_URL not set, leaderboard caching disabled")
		return
	}

	opts, err := redis.ParseURL(config.AppConfig.RedisURL)
	if err != nil {
		log.Printf("Warning: invalid REDIS_URL: %v. Caching disabled.", err)
		return
	}

	Redis = redis.NewClient(opts)
	if _, err := Redis.Ping(Ctx).Result(); err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Caching disabled.", err)
		Redis = nil
		return
	}
	log.Println("Connected to Redis successfully")
}

func CacheSet(key string, value interface{}, expiration time.Duration) error {
	if Redis == nil {
		return redis.Nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(Ctx, key, data, expiration).Err()
}

func CacheGet(key string, dest interface{}) error {
	if Redis == nil {
		return redis.Nil
	}
	val, err := Redis.Get(Ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}
