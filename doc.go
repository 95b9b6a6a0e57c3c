// Package beancache coordinates the lifecycle of pooled, possibly clustered,
// stateful instances (one per client session) kept in a pluggable bean store.
//
// Components:
//   - Cache[K,V]: create/get/release/remove/discard of instances, affinity and size queries.
//   - manager.BeanManager: the store. manager/local is the in-process reference store;
//     it passivates idle beans to a provider.Provider using a codec.Codec[V].
//   - batch.Batcher: units of work against the store. Every cache call runs in a batch;
//     a value returned by Get carries its still-open batch until Release or Discard.
//   - CacheFactory / Registry: pick the store by name at assembly (see configurator).
//
// Invocation scope travels in context.Context, not thread-locals:
//
//	v, err := cache.Create(ctx)         // nested Create calls made by the factory with
//	                                    // the same ctx join the outer group and batch
//	v, ok, err := cache.Get(ctx, id)    // pins; v.CacheContext() is the open batch
//	err = cache.Release(ctx, v)         // may run on another goroutine
//	err = cache.Remove(ctx, id)         // destroy callback fires exactly once
package beancache
