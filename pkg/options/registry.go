package options

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Kind is the value type of an option.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindDuration
)

// Descriptor describes one registered option: how to read it, how to set it
// from user text, and how to validate candidate values. Extensions add
// their own options through Registry.Register; there is no reflection over
// struct fields.
type Descriptor struct {
	Name     string
	Kind     Kind
	Help     string
	Get      func() string
	Set      func(value string) error
	Validate func(value string) error
}

// Registry maps option names to descriptors. Bool options implicitly answer
// to their "no"-prefixed alias.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Descriptor
}

// NewRegistry builds a registry pre-populated with the stock options of the
// given Config.
func NewRegistry(c *Config) *Registry {
	r := &Registry{byName: make(map[string]*Descriptor)}

	boolOpt := func(name, help string, get func() bool, set func(bool)) {
		r.Register(&Descriptor{
			Name: name,
			Kind: KindBool,
			Help: help,
			Get:  func() string { return strconv.FormatBool(get()) },
			Set: func(v string) error {
				b, err := parseBool(v)
				if err != nil {
					return err
				}
				set(b)
				return nil
			},
			Validate: func(v string) error { _, err := parseBool(v); return err },
		})
	}

	boolOpt("vimode", "Input editing in vi style.",
		c.ViMode, func(v bool) { c.setBool(&c.viMode, v) })
	boolOpt("autoget", "Prefetch getter values while rendering listings.",
		c.AutoGet, func(v bool) { c.setBool(&c.autoGet, v) })
	boolOpt("autoprobe", "Background shallow discovery during completion.",
		c.AutoProbe, func(v bool) { c.setBool(&c.autoProbe, v) })
	boolOpt("raw", "Bypass the special listing interpretation and caching.",
		c.Raw, func(v bool) { c.setBool(&c.raw, v) })
	boolOpt("debug", "Verbose internal tracing.",
		c.Debug, c.setDebug)
	boolOpt("cache", "Persist discovered tree knowledge across invocations.",
		c.Cache, func(v bool) { c.setBool(&c.cache, v) })

	r.Register(&Descriptor{
		Name: "call_attempts",
		Kind: KindInt,
		Help: "Total send attempts before a call times out.",
		Get:  func() string { return strconv.Itoa(c.CallAttempts()) },
		Set: func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer %q", v)
			}
			return c.setAttempts(n)
		},
		Validate: func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer %q", v)
			}
			if n < 1 {
				return fmt.Errorf("call_attempts must be at least 1, got %d", n)
			}
			return nil
		},
	})

	durOpt := func(name, help string, get func() time.Duration, dst *time.Duration) {
		r.Register(&Descriptor{
			Name: name,
			Kind: KindDuration,
			Help: help,
			Get:  func() string { return get().String() },
			Set: func(v string) error {
				d, err := parseDuration(v)
				if err != nil {
					return err
				}
				return c.setDuration(dst, d)
			},
			Validate: func(v string) error {
				d, err := parseDuration(v)
				if err != nil {
					return err
				}
				if d < 0 {
					return fmt.Errorf("%s must not be negative", name)
				}
				return nil
			},
		})
	}

	durOpt("call_timeout", "How long one attempt waits for a response.", c.CallTimeout, &c.callTimeout)
	durOpt("call_query_timeout", "Bound on the cheap status probe of query-first calls.", c.CallQueryTimeout, &c.callQueryTimeout)
	durOpt("call_retry_timeout", "Gap before a request is sent again.", c.CallRetryTimeout, &c.callRetryTimeout)
	durOpt("autoget_timeout", "Bound on value prefetch sub-calls during listings.", c.AutoGetTimeout, &c.autoGetTimeout)

	return r
}

// Register adds a descriptor. This is also the entry point extension
// modules call at startup to contribute options.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[d.Name] = d
}

// Names returns all registered option names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the descriptor for name, resolving "no" aliases of bool
// options. The second result reports whether the alias negated the value.
func (r *Registry) Lookup(name string) (*Descriptor, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byName[name]; ok {
		return d, false, true
	}
	if rest, found := strings.CutPrefix(name, "no"); found {
		if d, ok := r.byName[rest]; ok && d.Kind == KindBool {
			return d, true, true
		}
	}
	return nil, false, false
}

// Set applies a user supplied assignment. An empty value on a bool option
// means true, and the "no" alias inverts it; other kinds require a value.
func (r *Registry) Set(name, value string) error {
	d, negated, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown option: %s", name)
	}
	if d.Kind == KindBool {
		if value == "" {
			value = "true"
		}
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		if negated {
			b = !b
		}
		return d.Set(strconv.FormatBool(b))
	}
	if value == "" {
		return fmt.Errorf("option %s requires a value", name)
	}
	return d.Set(value)
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "t", "":
		return true, nil
	case "false", "f":
		return false, nil
	default:
		return false, fmt.Errorf("expected 'true' or 'false', got %q", v)
	}
}

// parseDuration accepts Go duration syntax and, for convenience, a bare
// number of seconds.
func parseDuration(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}
