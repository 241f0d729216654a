package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/infrastructure/storage"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	if p.Timeout() != 10*time.Second || p.TTL() != 24*time.Hour {
		t.Errorf("timeout = %s, ttl = %s", p.Timeout(), p.TTL())
	}
	retry := p.RetryPolicy()
	if retry.MaxAttempts != 60 || retry.Interval != time.Second {
		t.Errorf("retry = %+v", retry)
	}
	if p.StoreConfig().Backend != storage.BackendLevelDB {
		t.Errorf("backend = %q", p.StoreConfig().Backend)
	}
}

func TestLoadPolicy(t *testing.T) {
	path := writePolicy(t, `
endpoint:
  base_url: http://localhost:8080
poll:
  max_attempts: 5
  interval: 250ms
cache:
  ttl: 1h
  cache_errors: true
  backend: redis
  redis:
    address: localhost:6379
    db: 2
navigation:
  statuses: [loading, complete]
`)

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if p.Endpoint.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", p.Endpoint.BaseURL)
	}
	if p.Timeout() != 10*time.Second {
		t.Errorf("timeout default lost: %s", p.Timeout())
	}
	if r := p.RetryPolicy(); r.MaxAttempts != 5 || r.Interval != 250*time.Millisecond {
		t.Errorf("retry = %+v", r)
	}
	if p.TTL() != time.Hour || !p.Cache.CacheErrors {
		t.Errorf("ttl = %s, cache_errors = %v", p.TTL(), p.Cache.CacheErrors)
	}
	if sc := p.StoreConfig(); sc.Backend != storage.BackendRedis || sc.Redis.Address != "localhost:6379" || sc.Redis.DB != 2 {
		t.Errorf("store config = %+v", sc)
	}
	if len(p.Navigation.Statuses) != 2 {
		t.Errorf("statuses = %v", p.Navigation.Statuses)
	}
	if !p.Cache.Filter.Enabled || p.Cache.Filter.Size != 100000 {
		t.Errorf("filter defaults lost: %+v", p.Cache.Filter)
	}
}

func TestPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad duration", "poll:\n  interval: soon\n", "poll.interval"},
		{"zero attempts", "poll:\n  max_attempts: 0\n", "max attempts"},
		{"unknown backend", "cache:\n  backend: etcd\n", "unknown cache backend"},
		{"redis without address", "cache:\n  backend: redis\n", "cache.redis.address"},
		{"bad base url", "endpoint:\n  base_url: ftp://example.com\n", "endpoint.base_url"},
		{"bad false positive rate", "cache:\n  filter:\n    false_positive: 2\n", "false_positive"},
		{"no statuses", "navigation:\n  statuses: []\n", "navigation.statuses"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LoadPolicy(writePolicy(t, tt.content))
			if err == nil {
				err = p.Validate()
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	for _, key := range []string{"STOREFRONT_CONFIG", "STOREFRONT_MODE", "STOREFRONT_CDP_URL", "STOREFRONT_BASE_URL", "STOREFRONT_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	policy := writePolicy(t, "cache:\n  backend: memory\n")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, c *Config) {
				if c.Mode != ModeNative || c.InputFile != "-" || c.LogLevel != "info" {
					t.Errorf("config = %+v", c)
				}
			},
		},
		{
			name: "replay with policy",
			args: []string{"--mode", "replay", "-i", "navigations.txt", "-c", policy, "--dashboard"},
			check: func(t *testing.T, c *Config) {
				if c.Policy.Cache.Backend != storage.BackendMemory || !c.ShowDashboard {
					t.Errorf("config = %+v", c)
				}
			},
		},
		{
			name: "base url override",
			args: []string{"--base-url", "http://127.0.0.1:9000"},
			check: func(t *testing.T, c *Config) {
				if c.Policy.Endpoint.BaseURL != "http://127.0.0.1:9000" {
					t.Errorf("base url = %q", c.Policy.Endpoint.BaseURL)
				}
			},
		},
		{
			name: "version skips validation",
			args: []string{"--version", "--mode", "cdp"},
			check: func(t *testing.T, c *Config) {
				if !c.Version {
					t.Error("version flag not set")
				}
			},
		},
		{name: "cdp without url", args: []string{"--mode", "cdp"}, wantErr: true},
		{name: "unknown mode", args: []string{"--mode", "carrier-pigeon"}, wantErr: true},
		{name: "dashboard in native mode", args: []string{"--dashboard"}, wantErr: true},
		{name: "missing policy file", args: []string{"-c", filepath.Join(t.TempDir(), "nope.yaml")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
