// Package config is the YAML deployment descriptor of a bean cache.
//
//	store: local
//	namespace: shop:carts
//	node: node-1
//	max_active: 10000
//	codec: msgpack
//	passivation:
//	  provider: redis
//	  ttl: 24h
//	  redis:
//	    addr: localhost:6379
//	generations:
//	  store: redis
//	  ttl: 48h
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// StoreLocal is the only store provider assembled by the configurator.
const StoreLocal = "local"

const (
	ProviderNone      = "none"
	ProviderRistretto = "ristretto"
	ProviderBigCache  = "bigcache"
	ProviderRedis     = "redis"

	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
	CodecCBOR    = "cbor"

	GenLocal = "local"
	GenRedis = "redis"
)

// Duration reads "90s"-style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Store     string `yaml:"store"`
	Namespace string `yaml:"namespace"`
	Node      string `yaml:"node"`
	Cluster   string `yaml:"cluster"`
	// MaxActive idle beans kept in memory before passivation; 0 disables it.
	MaxActive   int         `yaml:"max_active"`
	Codec       string      `yaml:"codec"`
	Passivation Passivation `yaml:"passivation"`
	Generations Generations `yaml:"generations"`
}

type Passivation struct {
	Provider       string    `yaml:"provider"`
	TTL            Duration  `yaml:"ttl"`
	MaxDecodeBytes int       `yaml:"max_decode_bytes"`
	Ristretto      Ristretto `yaml:"ristretto"`
	BigCache       BigCache  `yaml:"bigcache"`
	Redis          Redis     `yaml:"redis"`
}

type Ristretto struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
}

type BigCache struct {
	LifeWindow         Duration `yaml:"life_window"`
	CleanWindow        Duration `yaml:"clean_window"`
	HardMaxCacheSizeMB int      `yaml:"hard_max_cache_size_mb"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Generations struct {
	Store           string   `yaml:"store"`
	TTL             Duration `yaml:"ttl"` // redis only
	CleanupInterval Duration `yaml:"cleanup_interval"`
	Retention       Duration `yaml:"retention"`
	Redis           Redis    `yaml:"redis"` // defaults to passivation.redis
}

// Parse decodes a descriptor, rejecting unknown fields, then applies defaults
// and validates it.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(b)
}

func (c *Config) applyDefaults() {
	if c.Store == "" {
		c.Store = StoreLocal
	}
	if c.Codec == "" {
		c.Codec = CodecJSON
	}
	p := &c.Passivation
	if p.Provider == "" {
		p.Provider = ProviderNone
	}
	if p.Ristretto.NumCounters == 0 {
		p.Ristretto.NumCounters = 1e5
	}
	if p.Ristretto.MaxCost == 0 {
		p.Ristretto.MaxCost = 64 << 20
	}
	if p.Ristretto.BufferItems == 0 {
		p.Ristretto.BufferItems = 64
	}
	if p.BigCache.LifeWindow == 0 {
		p.BigCache.LifeWindow = Duration(time.Hour)
	}
	g := &c.Generations
	if g.Store == "" {
		g.Store = GenLocal
	}
	if g.Redis.Addr == "" {
		g.Redis = p.Redis
	}
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("config: namespace is required")
	}
	if c.MaxActive < 0 {
		return fmt.Errorf("config: max_active must not be negative")
	}
	switch c.Codec {
	case CodecJSON, CodecMsgpack, CodecCBOR:
	default:
		return fmt.Errorf("config: unknown codec %q", c.Codec)
	}

	p := c.Passivation
	switch p.Provider {
	case ProviderNone:
		if c.MaxActive > 0 {
			return fmt.Errorf("config: max_active needs a passivation provider")
		}
	case ProviderRistretto, ProviderBigCache:
	case ProviderRedis:
		if p.Redis.Addr == "" {
			return fmt.Errorf("config: passivation.redis.addr is required")
		}
	default:
		return fmt.Errorf("config: unknown passivation provider %q", p.Provider)
	}

	switch c.Generations.Store {
	case GenLocal:
	case GenRedis:
		if c.Generations.Redis.Addr == "" {
			return fmt.Errorf("config: generations.redis.addr is required")
		}
	default:
		return fmt.Errorf("config: unknown generation store %q", c.Generations.Store)
	}
	return nil
}
