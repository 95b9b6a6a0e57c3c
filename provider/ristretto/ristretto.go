// Package ristretto is an in-process passivation store on dgraph-io/ristretto.
//
// Records are charged by size, so MaxCost bounds the memory held by passivated
// beans. Ristretto may refuse or evict a record under pressure: a refused write
// keeps the bean in memory, an evicted one is lost on activation.
package ristretto

import (
	"context"
	"time"

	rc "github.com/dgraph-io/ristretto"
	"github.com/prometheus/client_golang/prometheus"

	pr "github.com/unkn0wn-root/beancache/provider"
)

type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

// Config fields left at zero take the defaults below.
type Config struct {
	NumCounters int64 // default 10 * MaxCost / 1KiB, at least 1e4
	MaxCost     int64 // bytes; default 64 MiB
	BufferItems int64 // default 64
	Metrics     bool
}

func (c *Config) withDefaults() {
	if c.MaxCost <= 0 {
		c.MaxCost = 64 << 20
	}
	if c.NumCounters <= 0 {
		c.NumCounters = max(10*c.MaxCost/1024, 1e4)
	}
	if c.BufferItems <= 0 {
		c.BufferItems = 64
	}
}

func New(cfg Config) (*Provider, error) {
	cfg.withDefaults()
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set blocks until ristretto has applied the write, since an activation may
// read the record right after the bean is passivated.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if cost <= 0 {
		cost = int64(len(value))
	}
	ok := p.c.SetWithTTL(key, value, cost, max(ttl, 0))
	p.c.Wait()
	return ok, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters; nil unless Config.Metrics.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }

// Collectors returns gauges over the store's counters, labelled with the
// cache name. They read zero unless Config.Metrics was set.
func (p *Provider) Collectors(name string) []prometheus.Collector {
	gauge := func(n, help string, f func(*rc.Metrics) uint64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "beancache",
			Subsystem:   "passivation_store",
			Name:        n,
			ConstLabels: prometheus.Labels{"cache": name},
			Help:        help,
		}, func() float64 { return float64(f(p.c.Metrics)) })
	}
	return []prometheus.Collector{
		gauge("hits", "Passivated records found on activation", (*rc.Metrics).Hits),
		gauge("misses", "Activations that found no record", (*rc.Metrics).Misses),
		gauge("cost_bytes", "Bytes currently charged for passivated records", func(m *rc.Metrics) uint64 {
			return m.CostAdded() - m.CostEvicted()
		}),
		gauge("evictions", "Passivated records evicted under memory pressure", (*rc.Metrics).KeysEvicted),
		gauge("rejected_sets", "Passivation writes refused by the admission policy", (*rc.Metrics).SetsRejected),
	}
}
