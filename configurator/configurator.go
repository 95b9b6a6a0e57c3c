// Package configurator assembles cache factories from a config.Config.
//
//	cfg, _ := config.Load("cache.yaml")
//	carts, _ := configurator.NewCache[*Cart](cfg, cartFactory, configurator.Options{
//	    Logger: zaplog.New(logger),
//	})
package configurator

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/beancache"
	"github.com/unkn0wn-root/beancache/codec"
	"github.com/unkn0wn-root/beancache/config"
	"github.com/unkn0wn-root/beancache/genstore"
	"github.com/unkn0wn-root/beancache/manager"
	"github.com/unkn0wn-root/beancache/manager/local"
	"github.com/unkn0wn-root/beancache/provider"
	bcprov "github.com/unkn0wn-root/beancache/provider/bigcache"
	redisprov "github.com/unkn0wn-root/beancache/provider/redis"
	rprov "github.com/unkn0wn-root/beancache/provider/ristretto"
)

type Options struct {
	Name    string                // metrics label; "" => namespace
	Logger  beancache.Logger      // shared by caches and bean managers
	Hooks   beancache.Hooks       // shared by caches and bean managers
	Metrics prometheus.Registerer // one cache per factory when set; names must not collide

	// RedisClient, when set, is used instead of clients built from the
	// configured addresses. It is never closed by the cache.
	RedisClient redis.UniversalClient
}

// New returns a factory for the store named in cfg. Only config.StoreLocal is
// registered; other names fail with beancache.ErrUnknownStore.
func New[V beancache.Value[string]](cfg *config.Config, opts Options) (beancache.CacheFactory[string, V], error) {
	if cfg == nil {
		return nil, fmt.Errorf("configurator: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := beancache.NewRegistry[string, V]()
	r.Register(config.StoreLocal, Local[V](cfg, opts))

	return beancache.NewCacheFactory(r, cfg.Store, beancache.FactoryOptions{
		Name:    metricsName(cfg, opts),
		Logger:  opts.Logger,
		Hooks:   opts.Hooks,
		Metrics: opts.Metrics,
	})
}

func metricsName(cfg *config.Config, opts Options) string {
	if opts.Name != "" {
		return opts.Name
	}
	return cfg.Namespace
}

// NewCache builds a single cache with UUID identifiers.
func NewCache[V beancache.Value[string]](cfg *config.Config, factory beancache.StatefulObjectFactory[V], opts Options) (beancache.Cache[string, V], error) {
	cf, err := New[V](cfg, opts)
	if err != nil {
		return nil, err
	}
	return cf.CreateCache(manager.UUIDFactory{}, factory, nil)
}

// Local is the store provider building local bean managers from cfg. Every
// manager gets its own passivation store and generation store.
func Local[V any](cfg *config.Config, opts Options) beancache.StoreProvider[string, V] {
	return beancache.StoreProviderFunc[string, V](func(sc beancache.StoreConfig[string, V]) (manager.BeanManager[string, V], error) {
		lc := local.Config[string, V]{
			Namespace:           cfg.Namespace,
			Node:                cfg.Node,
			Cluster:             cfg.Cluster,
			MaxActive:           cfg.MaxActive,
			PassivationTTL:      cfg.Passivation.TTL.Std(),
			IdentifierFactory:   sc.IdentifierFactory,
			PassivationListener: sc.PassivationListener,
			Logger:              opts.Logger,
			Hooks:               opts.Hooks,
		}
		if cfg.MaxActive > 0 {
			p, err := newProvider(cfg, opts)
			if err != nil {
				return nil, err
			}
			c, err := newCodec[V](cfg)
			if err != nil {
				_ = p.Close(context.Background())
				return nil, err
			}
			gs, err := newGenStore(cfg, opts)
			if err != nil {
				_ = p.Close(context.Background())
				return nil, err
			}
			lc.Provider, lc.Codec, lc.GenStore = p, c, gs
		}
		m, err := local.New(lc)
		if err != nil {
			if lc.Provider != nil {
				_ = lc.Provider.Close(context.Background())
				_ = lc.GenStore.Close(context.Background())
			}
			return nil, err
		}
		return m, nil
	})
}

func redisClient(r config.Redis, opts Options) (redis.UniversalClient, bool) {
	if opts.RedisClient != nil {
		return opts.RedisClient, false
	}
	return redis.NewClient(&redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB}), true
}

func newProvider(cfg *config.Config, opts Options) (provider.Provider, error) {
	p := cfg.Passivation
	switch p.Provider {
	case config.ProviderRistretto:
		rp, err := rprov.New(rprov.Config{
			NumCounters: p.Ristretto.NumCounters,
			MaxCost:     p.Ristretto.MaxCost,
			BufferItems: p.Ristretto.BufferItems,
			Metrics:     opts.Metrics != nil,
		})
		if err != nil {
			return nil, fmt.Errorf("configurator: ristretto: %w", err)
		}
		if opts.Metrics != nil {
			cs := rp.Collectors(metricsName(cfg, opts))
			for i, c := range cs {
				if err := opts.Metrics.Register(c); err != nil {
					for _, done := range cs[:i] {
						opts.Metrics.Unregister(done)
					}
					_ = rp.Close(context.Background())
					return nil, fmt.Errorf("configurator: ristretto metrics: %w", err)
				}
			}
		}
		return rp, nil
	case config.ProviderBigCache:
		bp, err := bcprov.New(context.Background(), bcprov.Config{
			LifeWindow:         p.BigCache.LifeWindow.Std(),
			CleanWindow:        p.BigCache.CleanWindow.Std(),
			HardMaxCacheSizeMB: p.BigCache.HardMaxCacheSizeMB,
		})
		if err != nil {
			return nil, fmt.Errorf("configurator: bigcache: %w", err)
		}
		return bp, nil
	case config.ProviderRedis:
		client, owned := redisClient(p.Redis, opts)
		rp, err := redisprov.New(redisprov.Config{Client: client, TTL: p.TTL.Std(), CloseClient: owned})
		if err != nil {
			return nil, fmt.Errorf("configurator: redis: %w", err)
		}
		return rp, nil
	default:
		return nil, fmt.Errorf("configurator: max_active=%d without passivation provider", cfg.MaxActive)
	}
}

func newCodec[V any](cfg *config.Config) (codec.Codec[V], error) {
	var c codec.Codec[V]
	switch cfg.Codec {
	case config.CodecJSON:
		c = codec.JSON[V]{}
	case config.CodecMsgpack:
		c = codec.Msgpack[V]{}
	case config.CodecCBOR:
		cb, err := codec.NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		c = cb
	default:
		return nil, fmt.Errorf("configurator: unknown codec %q", cfg.Codec)
	}
	if n := cfg.Passivation.MaxDecodeBytes; n > 0 {
		c = codec.LimitCodec[V]{Inner: c, MaxDecode: n}
	}
	return c, nil
}

func newGenStore(cfg *config.Config, opts Options) (genstore.GenStore, error) {
	g := cfg.Generations
	if g.Store != config.GenRedis {
		return genstore.NewLocalGenStore(g.CleanupInterval.Std(), g.Retention.Std()), nil
	}
	client, owned := redisClient(g.Redis, opts)
	gs, err := genstore.NewRedisGenStore(genstore.RedisConfig{
		Client:      client,
		Namespace:   cfg.Namespace,
		TTL:         g.TTL.Std(),
		CloseClient: owned,
	})
	if err != nil {
		return nil, fmt.Errorf("configurator: generations: %w", err)
	}
	return gs, nil
}
