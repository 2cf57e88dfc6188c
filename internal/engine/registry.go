package engine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrDuplicateStrategy = errors.New("strategy already registered")
	ErrInvalidParameter  = errors.New("invalid strategy parameter")
)

// Params is a flat key/value strategy configuration. Values come from YAML,
// JSON or code, so getters accept the usual numeric representations.
type Params map[string]any

// MergeParams layers each mapping over the previous one; later keys win.
func MergeParams(layers ...Params) Params {
	out := Params{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

func (p Params) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is not set", ErrInvalidParameter, key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidParameter, key, v)
		}
		return int(n), nil
	case decimal.Decimal:
		if !n.IsInteger() {
			return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidParameter, key, v)
		}
		return int(n.IntPart()), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidParameter, key, n, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidParameter, key, v)
}

func (p Params) Decimal(key string) (decimal.Decimal, error) {
	v, ok := p[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s is not set", ErrInvalidParameter, key)
	}
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s=%q: %v", ErrInvalidParameter, key, n, err)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s has type %T", ErrInvalidParameter, key, v)
}

// Constructor builds a strategy from fully merged parameters.
type Constructor func(params Params) (Strategy, error)

type Registration struct {
	Tag         string
	Description string
	Defaults    Params
	New         Constructor
}

// Registry maps strategy tags to constructors.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

func (r *Registry) Register(reg Registration) error {
	if reg.Tag == "" || reg.New == nil {
		return fmt.Errorf("register strategy %q: tag and constructor are required", reg.Tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[reg.Tag]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStrategy, reg.Tag)
	}
	r.entries[reg.Tag] = reg
	return nil
}

// Create builds a new strategy instance for tag. Overrides are merged over
// the registered defaults in order.
func (r *Registry) Create(tag string, overrides ...Params) (Strategy, error) {
	r.mu.RLock()
	reg, ok := r.entries[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, tag)
	}
	layers := append([]Params{reg.Defaults}, overrides...)
	s, err := reg.New(MergeParams(layers...))
	if err != nil {
		return nil, fmt.Errorf("create strategy %s: %w", tag, err)
	}
	return s, nil
}

func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.entries))
	for tag := range r.entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (r *Registry) Lookup(tag string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[tag]
	if ok {
		reg.Defaults = MergeParams(reg.Defaults)
	}
	return reg, ok
}
