package driver

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxRetries      = 3
	minRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff = 300 * time.Millisecond
	dialTimeout     = 5 * time.Second
	readTimeout     = 3 * time.Second
	writeTimeout    = 3 * time.Second
)

// ConnectRedis connects to the Redis server and returns a *redis.Client.
// The connection is verified with a ping before it is handed out.
func ConnectRedis(addr string, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		MaxRetries:      maxRetries,
		MinRetryBackoff: minRetryBackoff,
		MaxRetryBackoff: maxRetryBackoff,
		DialTimeout:     dialTimeout,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
	})

	if err := testRedis(client); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// testRedis pings the Redis server to verify the connection
func testRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	return client.Ping(ctx).Err()
}
