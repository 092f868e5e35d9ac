package tinyinject

import (
	"fmt"
	"reflect"
)

// ProviderKind tells how a Provider builds its instances.
type ProviderKind int

const (
	ConstructorProvider ProviderKind = iota
	FactoryProvider
	InstanceProvider
	StructProvider
	ErasedProvider
)

func (k ProviderKind) String() string {
	switch k {
	case ConstructorProvider:
		return "constructor"
	case FactoryProvider:
		return "factory"
	case InstanceProvider:
		return "instance"
	case StructProvider:
		return "struct"
	case ErasedProvider:
		return "erased"
	default:
		return "unknown"
	}
}

// Provider is a unit of construction.
// This interface is sealed: providers are created by the Binding methods,
// Struct, Erase and EraseFactory.
type Provider interface {
	Kind() ProviderKind
	// Dependencies returns keys resolved and passed to the provider, in order.
	Dependencies() []Key
	// Out returns the type of produced instances.
	Out() reflect.Type

	invoke(a *Activation) (any, error)
}

// Activation is handed to factories. It carries resolved dependencies
// and information about the resolution in progress.
type Activation struct {
	scope   *Scope
	dispose Cleanup
	args    []any
	key     Key
}

// Key returns the key being built.
func (a *Activation) Key() Key {
	return a.key
}

// NumDeps returns the number of resolved dependencies.
func (a *Activation) NumDeps() int {
	return len(a.args)
}

// Dep returns the i-th resolved dependency.
func (a *Activation) Dep(i int) any {
	return a.args[i]
}

// ScopeID returns the id of the Scope the instance is built for,
// or an empty string outside of a Scope.
func (a *Activation) ScopeID() string {
	if a.scope == nil {
		return ""
	}

	return a.scope.ID()
}

// Annotation returns a value seeded into the current Scope with WithAnnotation.
func (a *Activation) Annotation(name string) (any, bool) {
	if a.scope == nil {
		return nil, false
	}

	return a.scope.Annotation(name)
}

// OnDispose registers fn as the disposal hook of the instance being built.
// It is only honored for Singleton and Scoped bindings.
func (a *Activation) OnDispose(fn Cleanup) {
	a.dispose = fn
}

// Dep returns the i-th dependency of a as A.
// It panics if the dependency is not an A; the panic is reported as a ConstructionError.
func Dep[A any](a *Activation, i int) A {
	return Arg[A](a.args, i)
}

// Arg returns args[i] as A, panicking if it is not an A.
func Arg[A any](args []any, i int) A {
	if args[i] == nil {
		var zero A
		return zero
	}

	v, ok := args[i].(A)
	if !ok {
		panic(fmt.Errorf("argument %d is %T, not %s", i, args[i], typeOf[A]()))
	}

	return v
}

type factoryProvider[T any] struct {
	fn   func(*Activation) (T, error)
	deps []Key
}

func (p *factoryProvider[T]) Kind() ProviderKind   { return FactoryProvider }
func (p *factoryProvider[T]) Dependencies() []Key { return p.deps }
func (p *factoryProvider[T]) Out() reflect.Type   { return typeOf[T]() }

func (p *factoryProvider[T]) invoke(a *Activation) (any, error) {
	v, err := p.fn(a)
	if err != nil {
		return nil, err
	}

	return v, nil
}

type instanceProvider struct {
	value any
	out   reflect.Type
}

func (p *instanceProvider) Kind() ProviderKind   { return InstanceProvider }
func (p *instanceProvider) Dependencies() []Key { return nil }
func (p *instanceProvider) Out() reflect.Type   { return p.out }

func (p *instanceProvider) invoke(*Activation) (any, error) {
	return p.value, nil
}

// invalidProvider carries an error from a provider helper to registration.
type invalidProvider struct {
	err error
}

func (p invalidProvider) Kind() ProviderKind   { return -1 }
func (p invalidProvider) Dependencies() []Key { return nil }
func (p invalidProvider) Out() reflect.Type   { return nil }

func (p invalidProvider) invoke(*Activation) (any, error) {
	return nil, p.err
}
