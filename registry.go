package tinyinject

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Entry is one binding: what is requested, how it is built and how long it lives.
type Entry struct {
	Provider Provider
	Key      Key
	Lifetime Lifetime
}

type decorator func(any) (any, error)

// Registry stores bindings until it is frozen by Freeze or New.
// It is safe for concurrent registration. After freeze it is read-only
// and can be shared by any number of injectors.
type Registry struct {
	entries    map[Key]*Entry
	decorators map[Key][]decorator
	freezeErr  error
	errs       []error
	mu         sync.RWMutex
	frozen     bool
}

// Returns new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:    make(map[Key]*Entry),
		decorators: make(map[Key][]decorator),
	}
}

// Register binds key to provider with lifetime.
// It fails with DuplicateBindingError if key is already bound, unless Override is passed,
// and with ErrRegistryFrozen after the registry is frozen.
func (r *Registry) Register(key Key, provider Provider, lifetime Lifetime, opts ...BindOption) error {
	conf := newBindConfig(opts)

	if err := checkEntry(key, provider, lifetime); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}

	if _, ok := r.entries[key]; ok && !conf.override {
		return newDuplicateBindingError(key)
	}

	r.entries[key] = &Entry{Key: key, Provider: provider, Lifetime: lifetime}

	return nil
}

func checkEntry(key Key, provider Provider, lifetime Lifetime) error {
	if provider == nil {
		return ErrNilProvider
	}

	if p, ok := provider.(invalidProvider); ok {
		return p.err
	}

	if !lifetime.valid() {
		return LifetimeUnsupportedError(lifetime.String())
	}

	if provider.Kind() == InstanceProvider && lifetime != Singleton {
		return ErrInstanceLifetime
	}

	if key.IsZero() || !provider.Out().AssignableTo(key.Type()) {
		return newBadConstructorError(ErrConstructorBadResult, provider.Out())
	}

	return nil
}

// Lookup returns the entry bound to key.
func (r *Registry) Lookup(key Key) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok {
		return Entry{}, false
	}

	return *e, true
}

// Entries returns every entry ordered by key.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, *e)
	}

	slices.SortFunc(entries, func(a, b Entry) int { return a.Key.Compare(b.Key) })

	return entries
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.frozen
}

// Freeze stops registration and returns every error collected by the Bind and
// Decorate helpers. Calling it again returns the same result.
func (r *Registry) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return r.freezeErr
	}

	r.frozen = true

	errs := slices.Clone(r.errs)

	for _, key := range sortedKeys(r.decorators) {
		if _, ok := r.entries[key]; !ok {
			errs = append(errs, fmt.Errorf("decorator of %s: %w", key, ErrNothingToDecorate))
		}
	}

	for _, key := range sortedKeys(r.entries) {
		e := r.entries[key]
		if p, ok := e.Provider.(*constructorProvider); ok && p.hasCleanup() && e.Lifetime == Transient {
			errs = append(errs, newBadConstructorError(ErrTransientCleanup, p.fnType))
		}
	}

	r.freezeErr = errors.Join(errs...)

	return r.freezeErr
}

func (r *Registry) record(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// update changes a registered entry in place. Used by the fluent Binding methods.
func (r *Registry) update(key Key, fn func(e *Entry) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}

	e, ok := r.entries[key]
	if !ok {
		return newUnboundTypeError(key, []Key{key})
	}

	return fn(e)
}

func (r *Registry) decorate(key Key, d decorator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}

	r.decorators[key] = append(r.decorators[key], d)

	return nil
}

// snapshot returns a copy of the frozen contents.
func (r *Registry) snapshot() ([]Entry, map[Key][]decorator) {
	entries := r.Entries()

	r.mu.RLock()
	defer r.mu.RUnlock()

	decorators := make(map[Key][]decorator, len(r.decorators))
	for k, ds := range r.decorators {
		decorators[k] = slices.Clone(ds)
	}

	return entries, decorators
}

func sortedKeys[V any](m map[Key]V) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, Key.Compare)

	return keys
}
