package rules

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Holder publishes the current RuleSet. Readers always see a complete rule
// set; reloads replace the pointer and never mutate a published value.
type Holder struct {
	current atomic.Pointer[RuleSet]
	logger  *zap.Logger

	mu        sync.RWMutex
	status    error
	listeners []func(*RuleSet)
	failures  []func(error)
}

// NewHolder creates a holder publishing initial.
func NewHolder(initial *RuleSet, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if initial == nil {
		initial = Empty()
	}
	h := &Holder{logger: logger}
	h.current.Store(initial)
	return h
}

// LoadHolder builds a holder from path. An empty path selects the built-in
// rules. A document that cannot be loaded leaves the holder on the empty rule
// set with Status reporting the failure.
func LoadHolder(path string, logger *zap.Logger) *Holder {
	if path == "" {
		return NewHolder(Default(), logger)
	}

	h := NewHolder(Empty(), logger)
	rs, err := Load(path)
	if err != nil {
		h.logger.Error("Rules unavailable, running with empty rule set",
			zap.String("path", path),
			zap.Error(err))
		h.setStatus(err)
		return h
	}

	h.logger.Info("Rules loaded", zap.String("path", path), zap.Any("stats", rs.Stats()))
	h.current.Store(rs)
	return h
}

// Get returns the rule set to use for one analysis.
func (h *Holder) Get() *RuleSet {
	return h.current.Load()
}

// Swap publishes rs and notifies listeners.
func (h *Holder) Swap(rs *RuleSet) {
	if rs == nil {
		return
	}
	h.current.Store(rs)
	h.setStatus(nil)

	h.mu.RLock()
	listeners := append([]func(*RuleSet){}, h.listeners...)
	h.mu.RUnlock()
	for _, fn := range listeners {
		fn(rs)
	}
}

// OnSwap registers fn to be called after every successful swap.
func (h *Holder) OnSwap(fn func(*RuleSet)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// OnReloadError registers fn to be called when a reload fails.
func (h *Holder) OnReloadError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, fn)
}

// Status returns nil when the published rule set came from a healthy load,
// or the error that put the holder in degraded mode.
func (h *Holder) Status() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Reload loads path and swaps it in. On failure the previous rule set stays
// published and the error is recorded in Status.
func (h *Holder) Reload(path string) error {
	rs, err := Load(path)
	if err != nil {
		h.logger.Warn("Rules reload failed, keeping previous rule set",
			zap.String("path", path),
			zap.String("current_source", h.Get().Source()),
			zap.Error(err))
		h.setStatus(err)

		h.mu.RLock()
		failures := append([]func(error){}, h.failures...)
		h.mu.RUnlock()
		for _, fn := range failures {
			fn(err)
		}
		return err
	}
	h.Swap(rs)
	h.logger.Info("Rules reloaded", zap.String("path", path), zap.Any("stats", rs.Stats()))
	return nil
}

// Watch reloads the rule file whenever it changes on disk.
func (h *Holder) Watch(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to watch rules file %s: %w", path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		h.logger.Debug("Rules file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		_ = h.Reload(path)
	})
	v.WatchConfig()
	return nil
}

func (h *Holder) setStatus(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = err
}
