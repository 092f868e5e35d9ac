package tinyinject

import (
	"fmt"
	"reflect"
	"slices"
)

// BindOption configures Bind, Decorate and Registry.Register.
type BindOption func(*bindConfig)

type bindConfig struct {
	qualifier string
	override  bool
}

func newBindConfig(opts []BindOption) bindConfig {
	var conf bindConfig
	for _, opt := range opts {
		opt(&conf)
	}

	return conf
}

// Named qualifies the bound key, so several bindings of one type can coexist.
func Named(qualifier string) BindOption {
	return func(c *bindConfig) { c.qualifier = qualifier }
}

// Override replaces an existing binding of the same key instead of failing
// with DuplicateBindingError.
func Override() BindOption {
	return func(c *bindConfig) { c.override = true }
}

// Binding declares how T is built. Errors are collected by the Registry
// and returned by Registry.Freeze and New.
//
//	tinyinject.Bind[Greeter](r).To(NewEnglishGreeter).In(tinyinject.Singleton)
type Binding[T any] struct {
	registry   *Registry
	opts       []BindOption
	key        Key
	registered bool
}

// Bind starts a binding of T in r.
func Bind[T any](r *Registry, opts ...BindOption) *Binding[T] {
	conf := newBindConfig(opts)

	return &Binding[T]{
		registry: r,
		key:      KeyOf[T](conf.qualifier),
		opts:     opts,
	}
}

// Key returns the key being bound.
func (b *Binding[T]) Key() Key {
	return b.key
}

// To binds T to a constructor: func(D1, D2, ...) [C|(C, error)|(C, Cleanup, error)],
// where C is assignable to T. The constructor parameters are its dependencies.
func (b *Binding[T]) To(constructor any) *Binding[T] {
	p, err := newConstructorProvider(constructor)
	if err != nil {
		return b.fail(err)
	}

	return b.register(p, Transient)
}

// ToFactory binds T to fn, called with deps resolved in order.
func (b *Binding[T]) ToFactory(fn func(*Activation) (T, error), deps ...Key) *Binding[T] {
	if fn == nil {
		return b.fail(ErrNilProvider)
	}

	return b.register(&factoryProvider[T]{fn: fn, deps: slices.Clone(deps)}, Transient)
}

// ToInstance binds T to a pre-built value. The value is never disposed by the injector.
func (b *Binding[T]) ToInstance(value T) *Binding[T] {
	return b.register(&instanceProvider{value: value, out: typeOf[T]()}, Singleton)
}

// ToStruct binds T, a struct or a pointer to a struct, to a provider filling its exported fields.
func (b *Binding[T]) ToStruct() *Binding[T] {
	return b.ToProvider(Struct[T]())
}

// ToProvider binds T to p, for example one returned by Struct.
func (b *Binding[T]) ToProvider(p Provider) *Binding[T] {
	return b.register(p, Transient)
}

// ToErased binds T to a provider behind the erasure boundary.
// The type it promises must be assignable to T.
func (b *Binding[T]) ToErased(e Erased) *Binding[T] {
	if err := checkErased(e, b.key); err != nil {
		return b.fail(err)
	}

	return b.register(&erasedProvider{erased: e, out: b.key.Type()}, Transient)
}

// ToSelected binds T to one of alternatives, picked by choice when the Injector is built.
func (b *Binding[T]) ToSelected(choice Choice, alternatives map[string]Erased) *Binding[T] {
	if choice == nil || len(alternatives) == 0 {
		return b.fail(ErrNoAlternatives)
	}

	for name, e := range alternatives {
		if err := checkErased(e, b.key); err != nil {
			return b.fail(fmt.Errorf("alternative %q: %w", name, err))
		}
	}

	return b.register(&selectedProvider{choice: choice, alternatives: alternatives, out: b.key.Type()}, Transient)
}

// In sets the lifetime of the binding. Transient is the default.
func (b *Binding[T]) In(lifetime Lifetime) *Binding[T] {
	if !b.registered {
		return b
	}

	err := b.registry.update(b.key, func(e *Entry) error {
		if err := checkEntry(e.Key, e.Provider, lifetime); err != nil {
			return err
		}

		e.Lifetime = lifetime

		return nil
	})
	if err != nil {
		b.registry.record(err)
	}

	return b
}

// Using resolves the constructor parameters from keys instead of their unqualified types.
func (b *Binding[T]) Using(keys ...Key) *Binding[T] {
	if !b.registered {
		return b
	}

	err := b.registry.update(b.key, func(e *Entry) error {
		p, ok := e.Provider.(*constructorProvider)
		if !ok {
			return ErrUsingNotSupported
		}

		updated, err := p.withDependencies(keys)
		if err != nil {
			return err
		}

		e.Provider = updated

		return nil
	})
	if err != nil {
		b.registry.record(err)
	}

	return b
}

func (b *Binding[T]) register(p Provider, lifetime Lifetime) *Binding[T] {
	if err := b.registry.Register(b.key, p, lifetime, b.opts...); err != nil {
		return b.fail(err)
	}

	b.registered = true

	return b
}

func (b *Binding[T]) fail(err error) *Binding[T] {
	b.registry.record(err)

	return b
}

// Decorate wraps every instance of T after it is built and before it is cached.
// Decorators run in registration order.
func Decorate[T any](r *Registry, fn func(T) (T, error), opts ...BindOption) {
	conf := newBindConfig(opts)
	key := KeyOf[T](conf.qualifier)

	if fn == nil {
		r.record(ErrNilProvider)
		return
	}

	err := r.decorate(key, func(v any) (any, error) {
		t, _ := v.(T)
		return fn(t)
	})
	if err != nil {
		r.record(err)
	}
}

func checkErased(e Erased, key Key) error {
	if e == nil {
		return ErrNilProvider
	}

	if inv, ok := e.(invalidErased); ok {
		return inv.err
	}

	promised := e.Promised()
	if promised == nil || !promised.AssignableTo(key.Type()) {
		return newTypeMismatchError(key, promised, reflect.Type(nil))
	}

	return nil
}
