// Package sloghooks reports cache and store events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/beancache"
	"github.com/unkn0wn-root/beancache/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	LifecycleEvery  uint64 // BeanCreated, BeanRemoved
	StoreEventEvery uint64 // Passivated, Activated
	// Optional id/key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	lifecycleCtr atomic.Uint64
	storeCtr     atomic.Uint64
}

var _ beancache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.Redact(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) BeanCreated(id, group string) {
	if h.l == nil || !sample(h.opts.LifecycleEvery, &h.lifecycleCtr) {
		return
	}
	h.l.Debug("beancache.bean_created",
		"id", h.redact(id),
		"group", h.redact(group),
		"nested", id != group)
}

func (h *Hooks) BeanRemoved(id string) {
	if h.l == nil || !sample(h.opts.LifecycleEvery, &h.lifecycleCtr) {
		return
	}
	h.l.Debug("beancache.bean_removed", "id", h.redact(id))
}

func (h *Hooks) BatchDiscarded(op string) {
	if h.l == nil {
		return
	}
	h.l.Info("beancache.batch_discarded", "op", op)
}

func (h *Hooks) BatchCloseFailed(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("beancache.batch_close_failed",
		"op", op,
		"err", err)
}

func (h *Hooks) Passivated(storageKey string) {
	if h.l == nil || !sample(h.opts.StoreEventEvery, &h.storeCtr) {
		return
	}
	h.l.Debug("beancache.passivated", "key", h.redact(storageKey))
}

func (h *Hooks) Activated(storageKey string) {
	if h.l == nil || !sample(h.opts.StoreEventEvery, &h.storeCtr) {
		return
	}
	h.l.Debug("beancache.activated", "key", h.redact(storageKey))
}

func (h *Hooks) PassivationFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("beancache.passivation_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) StateLost(storageKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("beancache.state_lost",
		"key", h.redact(storageKey),
		"reason", reason)
}
