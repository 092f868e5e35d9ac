package tinyinject

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
)

// Erased builds instances whose concrete type is only known at run time.
// Bindings made with ToErased and ToSelected are resolved through it;
// every other binding calls its provider directly.
type Erased interface {
	// Promised returns the type every instance is assignable to.
	Promised() reflect.Type
	// Dependencies returns keys resolved and passed to Construct, in order.
	Dependencies() []Key
	// Construct builds one instance from resolved dependencies and reports its concrete type.
	Construct(args []any) (instance any, concrete reflect.Type, err error)
}

// Choice returns the name of the alternative to use.
// It is called once, when the Injector is built.
type Choice func() (string, error)

// Fixed returns a Choice always selecting name.
func Fixed(name string) Choice {
	return func() (string, error) { return name, nil }
}

// Erase puts a constructor behind the erasure boundary.
// The constructor follows the rules of Binding.To, except that it cannot return a Cleanup;
// instances implementing Disposer or io.Closer are still disposed.
func Erase(constructor any) Erased {
	p, err := newConstructorProvider(constructor)
	if err != nil {
		return invalidErased{err: err}
	}

	if p.hasCleanup() {
		return invalidErased{err: newBadConstructorError(ErrConstructorBadResult, p.fnType)}
	}

	return &erasedConstructor{provider: p}
}

type erasedConstructor struct {
	provider *constructorProvider
}

func (e *erasedConstructor) Promised() reflect.Type { return e.provider.Out() }
func (e *erasedConstructor) Dependencies() []Key    { return e.provider.Dependencies() }

func (e *erasedConstructor) Construct(args []any) (any, reflect.Type, error) {
	v, err := e.provider.invoke(&Activation{args: args})
	if err != nil {
		return nil, nil, err
	}

	return v, reflect.TypeOf(v), nil
}

// EraseFactory puts fn behind the erasure boundary. Use Arg to read args.
func EraseFactory[C any](fn func(args []any) (C, error), deps ...Key) Erased {
	if fn == nil {
		return invalidErased{err: ErrNilProvider}
	}

	return &erasedFactory[C]{fn: fn, deps: slices.Clone(deps)}
}

type erasedFactory[C any] struct {
	fn   func([]any) (C, error)
	deps []Key
}

func (e *erasedFactory[C]) Promised() reflect.Type { return typeOf[C]() }
func (e *erasedFactory[C]) Dependencies() []Key    { return e.deps }

func (e *erasedFactory[C]) Construct(args []any) (any, reflect.Type, error) {
	v, err := e.fn(args)
	if err != nil {
		return nil, nil, err
	}

	var instance any = v

	return instance, reflect.TypeOf(instance), nil
}

type invalidErased struct {
	err error
}

func (e invalidErased) Promised() reflect.Type { return nil }
func (e invalidErased) Dependencies() []Key    { return nil }

func (e invalidErased) Construct([]any) (any, reflect.Type, error) {
	return nil, nil, e.err
}

type erasedProvider struct {
	erased Erased
	out    reflect.Type
}

func (p *erasedProvider) Kind() ProviderKind   { return ErasedProvider }
func (p *erasedProvider) Dependencies() []Key { return p.erased.Dependencies() }
func (p *erasedProvider) Out() reflect.Type   { return p.out }

func (p *erasedProvider) invoke(a *Activation) (any, error) {
	v, _, err := p.erased.Construct(a.args)
	return v, err
}

// selectedProvider defers the choice of an alternative to plan compilation.
type selectedProvider struct {
	choice       Choice
	alternatives map[string]Erased
	out          reflect.Type
}

func (p *selectedProvider) Kind() ProviderKind { return ErasedProvider }

// Dependencies is unknown until an alternative is selected.
func (p *selectedProvider) Dependencies() []Key { return nil }
func (p *selectedProvider) Out() reflect.Type   { return p.out }

func (p *selectedProvider) invoke(*Activation) (any, error) {
	return nil, fmt.Errorf("selection of %s was not compiled", p.out)
}

func (p *selectedProvider) selectFor(key Key) (Erased, error) {
	name, err := p.choice()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}

	e, ok := p.alternatives[name]
	if !ok {
		known := make([]string, 0, len(p.alternatives))
		for n := range p.alternatives {
			known = append(known, n)
		}

		sort.Strings(known)

		return nil, newUnknownAlternativeError(key, name, known)
	}

	return e, nil
}

// constructErased invokes e and checks the instance against what e and key promised.
func constructErased(e Erased, key Key, args []any) (any, error) {
	instance, concrete, err := e.Construct(args)
	if err != nil {
		return nil, err
	}

	produced := reflect.TypeOf(instance)
	if produced != concrete {
		return nil, newTypeMismatchError(key, concrete, produced)
	}

	if produced == nil {
		return nil, nil
	}

	if promised := e.Promised(); !produced.AssignableTo(promised) || !produced.AssignableTo(key.Type()) {
		return nil, newTypeMismatchError(key, promised, produced)
	}

	return instance, nil
}
