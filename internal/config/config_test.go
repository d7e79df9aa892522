package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
)

func TestLoadDefaults(t *testing.T) {
	s := Load(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if s.ChunkSize != DefaultChunkSize {
		t.Errorf("chunk size %d, want %d", s.ChunkSize, DefaultChunkSize)
	}
	if s.EncodingName != "utf-8" {
		t.Errorf("encoding name %q, want utf-8", s.EncodingName)
	}
	if s.CacheTTL != DefaultCacheTTL {
		t.Errorf("cache TTL %v, want %v", s.CacheTTL, DefaultCacheTTL)
	}
	if s.EvictionInterval != DefaultEvictionInterval {
		t.Errorf("eviction interval %v, want %v", s.EvictionInterval, DefaultEvictionInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BUNDLESCAN_CHUNK_SIZE", "65536")
	t.Setenv("BUNDLESCAN_ENCODING", "ISO-8859-1")
	t.Setenv("BUNDLESCAN_CACHE_TTL_MS", "60000")
	t.Setenv("BUNDLESCAN_EVICTION_INTERVAL", "5s")

	s := Load(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if s.ChunkSize != 65536 {
		t.Errorf("chunk size %d, want 65536", s.ChunkSize)
	}
	if s.Encoding != charmap.ISO8859_1 {
		t.Errorf("encoding %v, want ISO 8859-1", s.Encoding)
	}
	if s.CacheTTL != time.Minute {
		t.Errorf("cache TTL %v, want 1m", s.CacheTTL)
	}
	if s.EvictionInterval != 5*time.Second {
		t.Errorf("eviction interval %v, want 5s", s.EvictionInterval)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric chunk size", "BUNDLESCAN_CHUNK_SIZE", "huge"},
		{"negative chunk size", "BUNDLESCAN_CHUNK_SIZE", "-1"},
		{"unknown encoding", "BUNDLESCAN_ENCODING", "klingon-16"},
		{"non-numeric TTL", "BUNDLESCAN_CACHE_TTL_MS", "3h"},
		{"zero TTL", "BUNDLESCAN_CACHE_TTL_MS", "0"},
		{"negative TTL", "BUNDLESCAN_CACHE_TTL_MS", "-500"},
		{"malformed interval", "BUNDLESCAN_EVICTION_INTERVAL", "sixty"},
		{"negative interval", "BUNDLESCAN_EVICTION_INTERVAL", "-10s"},
	}

	def := Load(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			s := Load(slog.New(slog.NewTextHandler(io.Discard, nil)))
			if s != def {
				t.Errorf("invalid %s=%q changed settings: %+v", tt.key, tt.value, s)
			}
		})
	}
}

func TestResolveEncoding(t *testing.T) {
	for _, alias := range []string{"utf-8", "UTF-8", "us-ascii"} {
		if _, err := ResolveEncoding(alias); err != nil {
			t.Errorf("ResolveEncoding(%q): %v", alias, err)
		}
	}
	if _, err := ResolveEncoding("not-a-charset"); err == nil {
		t.Error("expected error for unknown charset")
	}
}
