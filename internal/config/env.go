// Package config provides centralized configuration management for the
// control plane. All environment lookups live here instead of being
// scattered across packages.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Defaults applied when the environment does not override them.
const (
	DefaultMaxDepth      = 10
	DefaultCacheTTLSecs  = 300
	DefaultMemoryMax     = 10000
)

// Env holds the control plane environment variables.
type Env struct {
	// MaxDepth bounds concurrently in-flight tool executions
	// (TASKPLANE_MAX_DEPTH).
	MaxDepth int

	// CacheTTLSecs is the tool result cache time-to-live in seconds
	// (TASKPLANE_CACHE_TTL).
	CacheTTLSecs int

	// Workers sizes the scheduler's execution pool; 0 means GOMAXPROCS
	// (TASKPLANE_WORKERS).
	Workers int

	// DBPath is the long-term memory database file
	// (TASKPLANE_DB_PATH).
	DBPath string

	// MemoryMax bounds the short-term memory store
	// (TASKPLANE_MEMORY_MAX).
	MemoryMax int

	// RunID identifies this orchestrator run when set externally
	// (TASKPLANE_RUN_ID).
	RunID string
}

var (
	env     *Env
	envOnce sync.Once
)

// Load returns the singleton environment configuration. Thread-safe,
// reads the environment once on first call.
func Load() *Env {
	envOnce.Do(func() {
		env = &Env{
			MaxDepth:     getEnvInt("TASKPLANE_MAX_DEPTH", DefaultMaxDepth),
			CacheTTLSecs: getEnvInt("TASKPLANE_CACHE_TTL", DefaultCacheTTLSecs),
			Workers:      getEnvInt("TASKPLANE_WORKERS", 0),
			DBPath:       getEnvDefault("TASKPLANE_DB_PATH", filepath.Join(GetPaths().Data, "taskplane.db")),
			MemoryMax:    getEnvInt("TASKPLANE_MEMORY_MAX", DefaultMemoryMax),
			RunID:        os.Getenv("TASKPLANE_RUN_ID"),
		}
	})
	return env
}

// ResetEnv resets the cached environment (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
	pathsOnce = sync.Once{}
	paths = nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Paths holds the standard directory layout.
type Paths struct {
	// Home is the taskplane home directory (~/.taskplane)
	Home string

	// Data is the data directory (~/.taskplane/data)
	Data string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base := filepath.Join(home, ".taskplane")

		paths = &Paths{
			Home: base,
			Data: filepath.Join(base, "data"),
		}
	})
	return paths
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
