package tinyinject

import (
	"reflect"
	"slices"
	"sync"
	"time"
)

// Resolver is implemented by *Injector and *Scope.
// This interface is sealed.
type Resolver interface {
	target() (*Injector, *Scope)
}

var (
	_ Resolver = new(Injector)
	_ Resolver = new(Scope)
)

// Resolve returns the instance bound to T.
//
//	greeter, err := tinyinject.Resolve[Greeter](injector)
func Resolve[T any](r Resolver) (T, error) {
	return ResolveNamed[T](r, "")
}

// ResolveNamed returns the instance bound to T with qualifier.
func ResolveNamed[T any](r Resolver, qualifier string) (T, error) {
	key := KeyOf[T](qualifier)

	v, err := ResolveKey(r, key)
	if err != nil {
		var zero T
		return zero, err
	}

	return cast[T](key, v)
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}

	return v
}

// ResolveKey returns the instance bound to key.
func ResolveKey(r Resolver, key Key) (any, error) {
	inj, scope := r.target()

	return inj.resolve(scope, key, inj.plan.nodes[key])
}

// Lazy returns the instance prepared by Prepare from r.
type Lazy[T any] func(r Resolver) (T, error)

// Prepare looks T up once and returns a Lazy resolving it without further lookups.
func Prepare[T any](inj *Injector, qualifier ...string) (Lazy[T], error) {
	key := KeyOf[T](qualifier...)

	n, ok := inj.plan.nodes[key]
	if !ok {
		return nil, newUnboundTypeError(key, []Key{key})
	}

	return func(r Resolver) (T, error) {
		owner, scope := r.target()
		if owner != inj {
			var zero T
			return zero, ErrForeignResolver
		}

		v, err := inj.resolve(scope, key, n)
		if err != nil {
			var zero T
			return zero, err
		}

		return cast[T](key, v)
	}, nil
}

func cast[T any](key Key, v any) (T, error) {
	if v == nil {
		var zero T
		return zero, nil
	}

	t, ok := v.(T)
	if !ok {
		return t, newTypeMismatchError(key, key.Type(), reflect.TypeOf(v))
	}

	return t, nil
}

// resolution is the stack of nodes being built by one top-level call.
type resolution struct {
	injector *Injector
	scope    *Scope
	stack    []*node
}

var resolutionPool = sync.Pool{
	New: func() any {
		return &resolution{stack: make([]*node, 0, 8)}
	},
}

func (inj *Injector) resolve(scope *Scope, key Key, n *node) (any, error) {
	if inj.shutdown.Load() {
		return nil, ErrInjectorShutdown
	}

	if scope != nil && scope.closed.Load() {
		return nil, ErrScopeClosed
	}

	res := resolutionPool.Get().(*resolution)
	res.injector = inj
	res.scope = scope

	defer func() {
		res.injector = nil
		res.scope = nil
		res.stack = res.stack[:0]
		resolutionPool.Put(res)
	}()

	return res.resolve(key, n)
}

func (res *resolution) resolve(key Key, n *node) (any, error) {
	if n == nil {
		return nil, newUnboundTypeError(key, res.chain(key))
	}

	var cache *slot

	switch n.lifetime {
	case Singleton:
		cache = &res.injector.singletons[n.slot]
	case Scoped:
		if res.scope == nil {
			return nil, newScopeRequiredError(n.key, res.chain(n.key))
		}

		cache = &res.scope.slots[n.slot]
	}

	if cache != nil {
		if v, ok := cache.load(); ok {
			return v, nil
		}
	}

	if slices.Contains(res.stack, n) {
		return nil, newCyclicDependencyError(res.chain(n.key)[slices.Index(res.stack, n):])
	}

	res.stack = append(res.stack, n)
	defer func() { res.stack = res.stack[:len(res.stack)-1] }()

	if cache == nil || n.cyclic {
		return res.construct(n)
	}

	return cache.do(func() (any, error) { return res.construct(n) })
}

// chain returns keys on the stack followed by key.
func (res *resolution) chain(key Key) []Key {
	chain := make([]Key, 0, len(res.stack)+1)
	for _, n := range res.stack {
		chain = append(chain, n.key)
	}

	return append(chain, key)
}

func (res *resolution) construct(n *node) (any, error) {
	// Singletons belong to the Injector and never see the current Scope.
	if n.lifetime == Singleton && res.scope != nil {
		scope := res.scope
		res.scope = nil

		defer func() { res.scope = scope }()
	}

	inj := res.injector

	args := make([]any, len(n.deps))
	for i, dep := range n.deps {
		v, err := res.resolve(dep, n.dependency(inj.plan, i))
		if err != nil {
			return nil, err
		}

		args[i] = v
	}

	a := &Activation{key: n.key, args: args, scope: res.scope}
	start := time.Now()

	instance, err := inj.recovering(n, func() (any, error) { return provide(n, a) })
	if err == nil {
		built := instance
		if instance, err = inj.recovering(n, func() (any, error) { return decorate(n, built) }); err != nil {
			inj.discard(n, built, a.dispose)
		}
	}

	if err != nil {
		if _, ok := err.(*TypeMismatchError); ok {
			inj.observer.Failed(n.key, n.lifetime, err)
			return nil, err
		}

		err = newConstructionError(err, n.key, n.lifetime)
		inj.observer.Failed(n.key, n.lifetime, err)

		return nil, err
	}

	elapsed := time.Since(start)
	inj.observer.Constructed(n.key, n.lifetime, elapsed)

	if inj.trace {
		inj.logger.Debug(
			"activated",
			"key", n.key.String(),
			"lifetime", n.lifetime.String(),
			"scope", a.ScopeID(),
			"duration", elapsed,
		)
	}

	if n.owned && n.lifetime.cached() {
		if err := res.track(n, disposalHook(instance, a.dispose)); err != nil {
			return nil, err
		}
	}

	return instance, nil
}

// track hands hook, which may be nil, to the owner of n: the Injector for Singletons,
// the Scope otherwise. If the owner was closed while n was being built,
// the hook runs at once and the instance is not handed out.
func (res *resolution) track(n *node, hook Cleanup) error {
	inj := res.injector

	owner, closed := &inj.disposals, ErrInjectorShutdown
	if n.lifetime == Scoped {
		owner, closed = &res.scope.disposals, ErrScopeClosed
	}

	if owner.push(n.key, hook) {
		return nil
	}

	if hook != nil {
		_ = dispose(n.key, hook, inj.logger, inj.observer)
	}

	return closed
}

// discard disposes an instance dropped because one of its decorators failed.
func (inj *Injector) discard(n *node, built any, explicit Cleanup) {
	if !n.owned {
		return
	}

	if hook := disposalHook(built, explicit); hook != nil {
		_ = dispose(n.key, hook, inj.logger, inj.observer)
	}
}

// recovering calls fn, turning a panic into an error.
func (inj *Injector) recovering(n *node, fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			inj.logger.Error("provider panicked", "key", n.key.String(), "panic", r)
			v, err = nil, newPanicError(r)
		}
	}()

	return fn()
}

func provide(n *node, a *Activation) (any, error) {
	if n.dynamic() {
		return constructErased(n.erased, n.key, a.args)
	}

	return n.provider.invoke(a)
}

// decorate applies the decorators of n in registration order.
func decorate(n *node, instance any) (any, error) {
	var err error
	for _, d := range n.decorators {
		if instance, err = d(instance); err != nil {
			return nil, err
		}
	}

	return instance, nil
}
