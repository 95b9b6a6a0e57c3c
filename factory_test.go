package beancache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/beancache"
	"github.com/unkn0wn-root/beancache/manager"
	"github.com/unkn0wn-root/beancache/manager/local"
)

func localStore(ns string) beancache.StoreProvider[string, *session] {
	return beancache.StoreProviderFunc[string, *session](func(cfg beancache.StoreConfig[string, *session]) (manager.BeanManager[string, *session], error) {
		m, err := local.New(local.Config[string, *session]{
			Namespace:           ns,
			IdentifierFactory:   cfg.IdentifierFactory,
			PassivationListener: cfg.PassivationListener,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

func TestRegistry(t *testing.T) {
	r := beancache.NewRegistry[string, *session]()
	r.Register("local", localStore("a"))
	r.Register("alt", localStore("b"))

	assert.Equal(t, []string{"alt", "local"}, r.Names())

	_, err := r.Lookup("distributed")
	require.ErrorIs(t, err, beancache.ErrUnknownStore)

	assert.Panics(t, func() { r.Register("local", localStore("c")) })
	assert.Panics(t, func() { r.Register("nil", nil) })
}

func TestCacheFactory(t *testing.T) {
	r := beancache.NewRegistry[string, *session]()
	r.Register("local", localStore("f"))

	_, err := beancache.NewCacheFactory(r, "missing", beancache.FactoryOptions{})
	require.ErrorIs(t, err, beancache.ErrUnknownStore)

	cf, err := beancache.NewCacheFactory(r, "local", beancache.FactoryOptions{Name: "sessions"})
	require.NoError(t, err)

	f := &sessionFactory{destroyed: map[string]int{}}
	_, err = cf.CreateCache(nil, f, nil)
	require.Error(t, err, "identifier factory is required")

	c, err := cf.CreateCache(sequentialIDs(7), f, nil)
	require.NoError(t, err)
	f.cache = c

	ctx := context.Background()
	v, err := c.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bean-7", v.ID())
	assert.Equal(t, 1, c.CacheSize())
}

func TestCacheFactoryWrapsStoreError(t *testing.T) {
	boom := errors.New("no store today")
	r := beancache.NewRegistry[string, *session]()
	r.Register("broken", beancache.StoreProviderFunc[string, *session](func(beancache.StoreConfig[string, *session]) (manager.BeanManager[string, *session], error) {
		return nil, boom
	}))
	cf, err := beancache.NewCacheFactory(r, "broken", beancache.FactoryOptions{})
	require.NoError(t, err)

	_, err = cf.CreateCache(manager.UUIDFactory{}, &sessionFactory{}, nil)
	require.ErrorIs(t, err, boom)
}
