// Package zap adapts a *zap.Logger to beancache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/beancache"
)

var _ beancache.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger "beancache" so store and cache events are easy to filter.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l.Named("beancache")} }

func (z ZapLogger) Debug(msg string, f beancache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f beancache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f beancache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f beancache.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f beancache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		switch v := f[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case nil:
			// skip empty error slots
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
