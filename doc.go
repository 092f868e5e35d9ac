/*
This package provides a small dependency injection engine.
Bindings are declared in a Registry, frozen, and compiled into an Injector
that builds instances with their whole dependency graph.

To install tinyinject:

	go get -u github.com/andriiyaremenko/tinyinject

How to use:

	type NameService interface {
		Name() string
	}

	type Greeter interface {
		Greet() string
	}

	type greeter struct {
		names NameService
	}

	func (g *greeter) Greet() string {
		return "Hello " + g.names.Name()
	}

	func NewGreeter(names NameService) (*greeter, error) {
		return &greeter{names: names}, nil
	}

	r := tinyinject.NewRegistry()

	tinyinject.Bind[NameService](r).ToInstance(names)
	tinyinject.Bind[Greeter](r).To(NewGreeter).In(tinyinject.Scoped)

	injector, err := tinyinject.New(r, tinyinject.WithEagerValidation())
	if err != nil {
		// handle error
	}
	defer injector.Shutdown(context.Background())

	scope := injector.CreateScope()
	defer scope.Close()

	greeter, err := tinyinject.Resolve[Greeter](scope)
	if err != nil {
		// handle error
	}

	// or, to skip the lookup on every call:
	lazy, err := tinyinject.Prepare[Greeter](injector)
	if err != nil {
		// handle error
	}

	greeter, err = lazy(scope)

Functions:
  - tinyinject.NewRegistry
  - tinyinject.Bind
  - tinyinject.Decorate
  - tinyinject.New
  - tinyinject.Resolve
  - tinyinject.ResolveNamed
  - tinyinject.ResolveKey
  - tinyinject.MustResolve
  - tinyinject.Prepare
  - tinyinject.DecorateHandler
  - tinyinject.SetDefaultErrorLogger

Lifetime constants:

	tinyinject.Transient
	tinyinject.Singleton
	tinyinject.Scoped

Constructor types that can be used:
  - func(T1, T2, ...) [T|(T, error)|(T, Cleanup, error)] - cleanup is only accepted for Singleton and Scoped

Other providers:
  - Binding.ToFactory - func(*Activation) (T, error) with explicit dependency keys.
  - Binding.ToInstance - pre-built value, always Singleton, never disposed.
  - Binding.ToStruct / tinyinject.Struct[Type] - Type or *Type with exported fields resolved from the graph.
  - Binding.ToErased / Binding.ToSelected - implementations only known at run time, see Erased.

Instances implementing Disposer or io.Closer are released when their Scope is
closed or their Injector is shut down, in reverse construction order.
*/
package tinyinject
