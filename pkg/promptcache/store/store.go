// Package store provides PlacementStore backends for carrying
// per-conversation cache-point placement state between calls: a bounded
// in-memory store for single-process use, and a Redis store for
// deployments where several instances serve the same conversations.
package store

// Config selects and configures a store backend.
type Config struct {
	// Type is the backend type ("memory", "redis").
	Type string

	// Memory configures the in-memory backend.
	Memory MemoryConfig

	// Redis configures the Redis backend.
	Redis RedisConfig
}
