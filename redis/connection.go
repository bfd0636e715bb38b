// Package redis implements the federation.Cache contract on a Redis server.
// Records are stored as hashes, pointer indices as plain strings; bulk
// operations use incremental SCAN so they never monopolize the server.
package redis

import (
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options are the Redis connection settings.
type Options struct {
	// Redis server(cluster) address.
	Address string
	// Password required when connecting to the Redis server.
	Password string
	// DB to connect to.
	DB int
	// TLS config.
	TLSConfig *tls.Config
}

// DefaultOptions for a local Redis.
func DefaultOptions() Options {
	return Options{
		Address:  "localhost:6379",
		Password: "", // no password set
		DB:       0,  // use default DB
	}
}

// Connection contains the Redis client connection object and the Options used to connect.
type Connection struct {
	Client  *redis.Client
	Options Options
}

// NewConnection opens a Redis connection with the given options. Each caller
// owns its connection; there is no package-level singleton, so tests can run
// isolated instances side by side.
func NewConnection(options Options) *Connection {
	client := redis.NewClient(&redis.Options{
		TLSConfig: options.TLSConfig,
		Addr:      options.Address,
		Password:  options.Password,
		DB:        options.DB})

	return &Connection{
		Client:  client,
		Options: options,
	}
}

// Close closes the underlying client, if open.
func (c *Connection) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	err := c.Client.Close()
	c.Client = nil
	return err
}

// Addr formats host and port into a Redis address.
func Addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
