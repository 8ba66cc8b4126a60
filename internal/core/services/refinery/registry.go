package refinery

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RefineryFactory builds a refinery, applying custom config overrides
type RefineryFactory func(config map[string]interface{}) BaseRefinery

// Registry maps refinery versions and their aliases to factories. Names are
// matched case-insensitively.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]RefineryFactory
	aliases   map[string]string
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]RefineryFactory),
		aliases:   make(map[string]string),
	}
}

// Register adds factory under version. A version or alias can only be
// claimed once.
func (r *Registry) Register(version string, factory RefineryFactory, aliases ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	version = strings.ToLower(version)
	if r.claimedLocked(version) {
		return fmt.Errorf("refinery %q already registered", version)
	}
	for _, alias := range aliases {
		if r.claimedLocked(strings.ToLower(alias)) {
			return fmt.Errorf("refinery alias %q already registered", alias)
		}
	}

	r.factories[version] = factory
	for _, alias := range aliases {
		r.aliases[strings.ToLower(alias)] = version
	}
	return nil
}

func (r *Registry) claimedLocked(name string) bool {
	_, isVersion := r.factories[name]
	_, isAlias := r.aliases[name]
	return isVersion || isAlias
}

// Get resolves a version or alias
func (r *Registry) Get(identifier string) (RefineryFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(identifier))
	if version, ok := r.aliases[name]; ok {
		name = version
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("refinery %q not found, available: %s", identifier, strings.Join(r.versionsLocked(), ", "))
	}
	return factory, nil
}

// Versions returns the registered versions, sorted
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versionsLocked()
}

func (r *Registry) versionsLocked() []string {
	out := make([]string, 0, len(r.factories))
	for v := range r.factories {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// builtin holds the booking-text refineries shipped with the pipeline
var builtin = NewRegistry()

func init() {
	mustRegister("v1", NewRefineryV1German, "german", "keywords")
	mustRegister("display", NewRefineryDisplay, "classifier")
}

func mustRegister(version string, factory RefineryFactory, aliases ...string) {
	if err := builtin.Register(version, factory, aliases...); err != nil {
		panic(err)
	}
}

// Create builds a built-in refinery by version or alias
func Create(identifier string, config map[string]interface{}) (BaseRefinery, error) {
	factory, err := builtin.Get(identifier)
	if err != nil {
		return nil, err
	}
	return factory(config), nil
}

// ListAvailable returns the built-in refinery versions
func ListAvailable() []string {
	return builtin.Versions()
}
