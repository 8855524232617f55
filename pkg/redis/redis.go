package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Redis struct {
	Client *goredis.Client
}

type Config interface {
	GetAddr() string
	GetPassword() string
}

func New(ctx context.Context, config Config) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     config.GetAddr(),
		Password: config.GetPassword(),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Redis{
		Client: client,
	}, nil
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}
