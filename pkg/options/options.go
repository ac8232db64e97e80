// Package options holds the session configuration and the typed option
// registry behind the `!set` builtin. Options live in an explicit Config
// value threaded through the components; there is no ambient global state.
package options

import (
	"fmt"
	"sync"
	"time"
)

// Config is the snapshot of recognized runtime options. It is owned by the
// session loop and read by every other component; mutation goes through the
// Registry setters only.
type Config struct {
	mu sync.RWMutex

	viMode    bool
	autoGet   bool
	autoProbe bool
	raw       bool
	debug     bool
	cache     bool

	callAttempts     int
	callTimeout      time.Duration
	callQueryTimeout time.Duration
	callRetryTimeout time.Duration
	autoGetTimeout   time.Duration

	// onDebug lets the wiring flip the logger level when the debug option
	// changes at runtime.
	onDebug func(bool)
}

// NewConfig returns a Config with the stock defaults.
func NewConfig() *Config {
	return &Config{
		autoGet:          true,
		autoProbe:        true,
		cache:            true,
		callAttempts:     3,
		callTimeout:      60 * time.Second,
		callQueryTimeout: 250 * time.Millisecond,
		callRetryTimeout: 60 * time.Second,
		autoGetTimeout:   time.Second,
	}
}

// OnDebug registers a hook invoked whenever the debug option flips.
func (c *Config) OnDebug(fn func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDebug = fn
}

func (c *Config) ViMode() bool    { c.mu.RLock(); defer c.mu.RUnlock(); return c.viMode }
func (c *Config) AutoGet() bool   { c.mu.RLock(); defer c.mu.RUnlock(); return c.autoGet }
func (c *Config) AutoProbe() bool { c.mu.RLock(); defer c.mu.RUnlock(); return c.autoProbe }
func (c *Config) Raw() bool       { c.mu.RLock(); defer c.mu.RUnlock(); return c.raw }
func (c *Config) Debug() bool     { c.mu.RLock(); defer c.mu.RUnlock(); return c.debug }
func (c *Config) Cache() bool     { c.mu.RLock(); defer c.mu.RUnlock(); return c.cache }

func (c *Config) CallAttempts() int { c.mu.RLock(); defer c.mu.RUnlock(); return c.callAttempts }

func (c *Config) CallTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callTimeout
}

func (c *Config) CallQueryTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callQueryTimeout
}

func (c *Config) CallRetryTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callRetryTimeout
}

func (c *Config) AutoGetTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.autoGetTimeout
}

func (c *Config) setDebug(v bool) {
	c.mu.Lock()
	c.debug = v
	hook := c.onDebug
	c.mu.Unlock()
	if hook != nil {
		hook(v)
	}
}

func (c *Config) setBool(dst *bool, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*dst = v
}

func (c *Config) setAttempts(v int) error {
	if v < 1 {
		return fmt.Errorf("call_attempts must be at least 1, got %d", v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callAttempts = v
	return nil
}

func (c *Config) setDuration(dst *time.Duration, v time.Duration) error {
	if v < 0 {
		return fmt.Errorf("duration must not be negative, got %s", v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	*dst = v
	return nil
}
