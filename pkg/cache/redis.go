package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c Config) address() string {
	return c.Host + ":" + c.Port
}

var client *redis.Client

// Init connects the package-level Redis client and verifies the connection.
func Init(cfg Config) error {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.address(), err)
	}

	client = c
	return nil
}

// Client returns the Redis client, or nil if Init was never called.
func Client() *redis.Client {
	return client
}

// Close closes the Redis connection.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
