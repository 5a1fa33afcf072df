// Package config loads rhizo's store configuration with
// github.com/spf13/viper, mirroring the teacher's storage/init.go pattern of
// reading flags through viper into a typed struct. It does not own a CLI —
// the process driver that binds flags to these keys is out of scope
// (spec.md §1) — but the struct and its loader are part of the ambient
// stack every shipped Go module carries.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys used by both cmd/rhizoctl and any embedding application that wants to
// bind flags/env vars onto this schema.
const (
	KeyRoot             = "store.root"
	KeyChunkConcurrency = "store.chunk_concurrency"
	KeyWALSync          = "store.wal_fsync"
	KeyLogLevel         = "log.level"
	KeyGossipListen     = "gossip.listen"
	KeyGossipBootstrap  = "gossip.bootstrap_peers"
	KeyMetricsListen    = "metrics.listen"
)

// Config is the fully-resolved configuration for a rhizo store instance.
type Config struct {
	// Root is the on-disk root directory (spec.md §6 layout).
	Root string

	// ChunkConcurrency bounds the worker pool used by batch chunk-store and
	// Parquet operations (spec.md §5).
	ChunkConcurrency int

	// WALFsync requires every WAL append to durably sync before the
	// in-memory commit decision is considered final.
	WALFsync bool

	// LogLevel is passed to common/logging.Root.
	LogLevel string

	// GossipListen is the multiaddr the gossip.Node listens on, empty to
	// disable the transport entirely.
	GossipListen string

	// GossipBootstrap is a list of multiaddrs to dial on startup.
	GossipBootstrap []string

	// MetricsListen is the host:port the Prometheus handler binds to, empty
	// to disable metrics export.
	MetricsListen string
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() Config {
	return Config{
		Root:             "./rhizo-data",
		ChunkConcurrency: 8,
		WALFsync:         true,
		LogLevel:         "info",
		MetricsListen:    "",
	}
}

// Load builds a Viper instance seeded with Default(), optionally merges a
// config file at path (if non-empty), applies the RHIZO_* environment
// prefix, and unmarshals into a Config.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RHIZO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault(KeyRoot, def.Root)
	v.SetDefault(KeyChunkConcurrency, def.ChunkConcurrency)
	v.SetDefault(KeyWALSync, def.WALFsync)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyGossipListen, def.GossipListen)
	v.SetDefault(KeyMetricsListen, def.MetricsListen)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg := Config{
		Root:             v.GetString(KeyRoot),
		ChunkConcurrency: v.GetInt(KeyChunkConcurrency),
		WALFsync:         v.GetBool(KeyWALSync),
		LogLevel:         v.GetString(KeyLogLevel),
		GossipListen:     v.GetString(KeyGossipListen),
		GossipBootstrap:  v.GetStringSlice(KeyGossipBootstrap),
		MetricsListen:    v.GetString(KeyMetricsListen),
	}
	if cfg.ChunkConcurrency <= 0 {
		cfg.ChunkConcurrency = 1
	}
	return cfg, nil
}

// CommitTimeout bounds how long a single commit's durable I/O is allowed to
// take before the caller gives up waiting (applied externally, per spec.md
// §5 — there are no in-core timeouts).
const CommitTimeout = 30 * time.Second
