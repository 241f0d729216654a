package cli

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/common"
	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/http"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/storage"
	"gopkg.in/yaml.v3"
)

// Policy is the YAML policy file
type Policy struct {
	Endpoint struct {
		BaseURL         string `yaml:"base_url"`
		Timeout         string `yaml:"timeout"`
		UserAgent       string `yaml:"user_agent"`
		MaxResponseSize int64  `yaml:"max_response_size"`
	} `yaml:"endpoint"`

	Poll struct {
		MaxAttempts int    `yaml:"max_attempts"`
		Interval    string `yaml:"interval"`
	} `yaml:"poll"`

	Cache struct {
		TTL         string              `yaml:"ttl"`
		CacheErrors bool                `yaml:"cache_errors"`
		Backend     string              `yaml:"backend"`
		Path        string              `yaml:"path"`
		Redis       storage.RedisConfig `yaml:"redis"`
		Filter      struct {
			Enabled       bool    `yaml:"enabled"`
			Size          uint    `yaml:"size"`
			FalsePositive float64 `yaml:"false_positive"`
		} `yaml:"filter"`
	} `yaml:"cache"`

	Navigation struct {
		Statuses []string `yaml:"statuses"`
		Schemes  []string `yaml:"schemes"`
	} `yaml:"navigation"`

	// compiled
	timeout  time.Duration
	interval time.Duration
	ttl      time.Duration
}

// DefaultPolicy returns the built-in policy
func DefaultPolicy() Policy {
	var p Policy
	p.Endpoint.BaseURL = http.DefaultBaseURL
	p.Endpoint.Timeout = (10 * time.Second).String()
	p.Endpoint.UserAgent = common.PV.UserAgent()
	p.Endpoint.MaxResponseSize = 1 << 20
	p.Poll.MaxAttempts = http.DefaultMaxAttempts
	p.Poll.Interval = http.DefaultInterval.String()
	p.Cache.TTL = storage.DefaultTTL.String()
	p.Cache.Backend = storage.BackendLevelDB
	p.Cache.Path = "./data/cache"
	p.Cache.Filter.Enabled = true
	p.Cache.Filter.Size = 100000
	p.Cache.Filter.FalsePositive = 0.01
	p.Navigation.Statuses = []string{entity.NavigationLoading}
	p.Navigation.Schemes = []string{"http", "https"}
	p.timeout = 10 * time.Second
	p.interval = http.DefaultInterval
	p.ttl = storage.DefaultTTL
	return p
}

// LoadPolicy reads a policy file. Keys missing from the file keep their
// default values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()

	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, err
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := p.compile(); err != nil {
		return Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// compile parses the duration fields
func (p *Policy) compile() error {
	var err error
	if p.timeout, err = time.ParseDuration(p.Endpoint.Timeout); err != nil {
		return fmt.Errorf("endpoint.timeout: %w", err)
	}
	if p.interval, err = time.ParseDuration(p.Poll.Interval); err != nil {
		return fmt.Errorf("poll.interval: %w", err)
	}
	if p.ttl, err = time.ParseDuration(p.Cache.TTL); err != nil {
		return fmt.Errorf("cache.ttl: %w", err)
	}
	return nil
}

// Validate validates the policy
func (p *Policy) Validate() error {
	u, err := url.Parse(p.Endpoint.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint.base_url must be an http(s) URL, got %q", p.Endpoint.BaseURL)
	}

	if p.timeout <= 0 {
		return fmt.Errorf("endpoint.timeout must be > 0, got %s", p.timeout)
	}

	if p.Endpoint.MaxResponseSize <= 0 {
		return fmt.Errorf("endpoint.max_response_size must be > 0, got %d", p.Endpoint.MaxResponseSize)
	}

	if err := p.RetryPolicy().Validate(); err != nil {
		return err
	}

	if p.ttl <= 0 {
		return fmt.Errorf("cache.ttl must be > 0, got %s", p.ttl)
	}

	switch p.Cache.Backend {
	case storage.BackendMemory:
	case storage.BackendLevelDB, storage.BackendSQLite:
		if p.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the %s backend", p.Cache.Backend)
		}
	case storage.BackendRedis:
		if p.Cache.Redis.Address == "" {
			return fmt.Errorf("cache.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", p.Cache.Backend)
	}

	if p.Cache.Filter.Enabled {
		if p.Cache.Filter.Size == 0 {
			return fmt.Errorf("cache.filter.size must be > 0")
		}
		if p.Cache.Filter.FalsePositive <= 0 || p.Cache.Filter.FalsePositive >= 1 {
			return fmt.Errorf("cache.filter.false_positive must be between 0 and 1, got %f", p.Cache.Filter.FalsePositive)
		}
	}

	if len(p.Navigation.Statuses) == 0 {
		return fmt.Errorf("navigation.statuses must not be empty")
	}

	return nil
}

// Timeout returns the per-request timeout
func (p *Policy) Timeout() time.Duration { return p.timeout }

// TTL returns the cache lifetime
func (p *Policy) TTL() time.Duration { return p.ttl }

// RetryPolicy returns the poll policy
func (p *Policy) RetryPolicy() http.RetryPolicy {
	return http.RetryPolicy{MaxAttempts: p.Poll.MaxAttempts, Interval: p.interval}
}

// StoreConfig returns the cache backend configuration
func (p *Policy) StoreConfig() storage.StoreConfig {
	return storage.StoreConfig{
		Backend: p.Cache.Backend,
		Path:    p.Cache.Path,
		Redis:   p.Cache.Redis,
	}
}
