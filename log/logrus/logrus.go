// Package logrus adapts a *logrus.Entry to beancache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/beancache"
)

var _ beancache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every entry with component=beancache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "beancache")}
}

func (l LogrusLogger) Debug(msg string, f beancache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f beancache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f beancache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f beancache.Fields) { l.with(f).Error(msg) }

// with maps "err" onto logrus' error key so hooks and formatters pick it up.
func (l LogrusLogger) with(f beancache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if k == "err" {
			k = logrus.ErrorKey
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
