// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/docker/go-units"
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// SetConfig merges new values and notifies listeners.
// Listeners run synchronously after the lock is released, in registration order.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// Duration reads key as a duration. Strings go through time.ParseDuration,
// integers are taken as milliseconds.
func (cs *ConfigStore) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := cs.Get(key)
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case string:
		d, err := time.ParseDuration(x)
		if err != nil {
			return def, fmt.Errorf("config %s: %w", key, err)
		}
		return d, nil
	case int:
		return time.Duration(x) * time.Millisecond, nil
	case int64:
		return time.Duration(x) * time.Millisecond, nil
	default:
		return def, fmt.Errorf("config %s: unexpected type %T", key, v)
	}
}

// Size reads key as a byte size. Strings accept units such as "64KiB".
func (cs *ConfigStore) Size(key string, def int64) (int64, error) {
	v, ok := cs.Get(key)
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case string:
		n, err := units.RAMInBytes(x)
		if err != nil {
			return def, fmt.Errorf("config %s: %w", key, err)
		}
		return n, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		return int64(x), nil
	default:
		return def, fmt.Errorf("config %s: unexpected type %T", key, v)
	}
}

// String reads key as a string.
func (cs *ConfigStore) String(key, def string) string {
	if v, ok := cs.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}
