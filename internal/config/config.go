// Package config resolves engine settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultChunkSize is the streaming scan chunk size in bytes.
	DefaultChunkSize = 2 * 1024 * 1024

	// DefaultCacheTTL is how long an idle bundle stays cached.
	DefaultCacheTTL = 3 * time.Hour

	// DefaultEvictionInterval is the background eviction check period.
	DefaultEvictionInterval = 60 * time.Second

	envChunkSize        = "BUNDLESCAN_CHUNK_SIZE"
	envEncoding         = "BUNDLESCAN_ENCODING"
	envCacheTTL         = "BUNDLESCAN_CACHE_TTL_MS"
	envEvictionInterval = "BUNDLESCAN_EVICTION_INTERVAL"
)

// Settings holds the resolved configuration consumed by the engine.
type Settings struct {
	ChunkSize        int
	EncodingName     string
	Encoding         encoding.Encoding
	CacheTTL         time.Duration
	EvictionInterval time.Duration
}

// Load resolves Settings from the environment, falling back to defaults.
// Invalid values are rejected with a warning rather than an error so a
// misconfigured shell never blocks analysis.
func Load(logger *slog.Logger) Settings {
	if logger == nil {
		logger = slog.Default()
	}

	s := Settings{
		ChunkSize:        DefaultChunkSize,
		EncodingName:     "utf-8",
		Encoding:         unicode.UTF8,
		CacheTTL:         DefaultCacheTTL,
		EvictionInterval: DefaultEvictionInterval,
	}

	if v := os.Getenv(envChunkSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			logger.Warn("ignoring invalid chunk size override", "value", v)
		} else {
			s.ChunkSize = n
		}
	}

	if v := os.Getenv(envEncoding); v != "" {
		enc, err := ResolveEncoding(v)
		if err != nil {
			logger.Warn("ignoring unknown encoding override", "value", v, "error", err)
		} else {
			s.EncodingName = v
			s.Encoding = enc
		}
	}

	if v := os.Getenv(envCacheTTL); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms <= 0 {
			logger.Warn("ignoring invalid cache TTL override, using default", "value", v, "default", DefaultCacheTTL)
		} else {
			s.CacheTTL = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv(envEvictionInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			logger.Warn("ignoring invalid eviction interval override", "value", v)
		} else {
			s.EvictionInterval = d
		}
	}

	return s
}

// ResolveEncoding maps an IANA charset name to its encoding. UTF-8 is
// returned for its aliases since ianaindex resolves them to nil encodings.
func ResolveEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		// ianaindex returns nil for encodings without an x/text
		// implementation, including the UTF-8 aliases.
		return unicode.UTF8, nil
	}
	return enc, nil
}
