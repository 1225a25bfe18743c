package utils

import (
	"github.com/go-redis/redis"
)

var RedisClient *redis.Client

// InitPubSub connects the shared Redis client. Called from main once config
// is loaded; with an empty addr pub/sub stays disabled and Publish is a no-op.
func InitPubSub(addr string) {
	if addr == "" {
		return
	}
	RedisClient = redis.NewClient(
		&redis.Options{
			Addr:     addr,
			Password: "",
			DB:       0,
		})
}

func Publish(data []byte, channel string) {
	if RedisClient == nil {
		return
	}
	_ = RedisClient.Publish(channel, data)
}
