package tinyinject

import (
	"reflect"
)

type constructorType int

const (
	onlyService constructorType = iota
	withError
	withErrorAndCleanUp
)

type constructorProvider struct {
	fn              reflect.Value
	fnType          reflect.Type
	deps            []Key
	constructorType constructorType
}

func newConstructorProvider(constructor any) (*constructorProvider, error) {
	t := reflect.TypeOf(constructor)

	cType, err := getConstructorType(t)
	if err != nil {
		return nil, err
	}

	params := make([]reflect.Type, t.NumIn())
	for i := range params {
		params[i] = t.In(i)
	}

	return &constructorProvider{
		fn:              reflect.ValueOf(constructor),
		fnType:          t,
		deps:            keysOf(params...),
		constructorType: cType,
	}, nil
}

func getConstructorType(t reflect.Type) (constructorType, error) {
	cType := onlyService

	if t == nil || t.Kind() != reflect.Func {
		return cType, newBadConstructorError(ErrConstructorNotAFunction, t)
	}

	if t.IsVariadic() {
		return cType, newBadConstructorError(ErrVariadicConstructor, t)
	}

	switch t.NumOut() {
	case 1:
		if out := t.Out(0); out.Implements(errorInterface) {
			return cType, newBadConstructorError(ErrConstructorBadResult, t)
		}
	case 2:
		cType = withError

		if errType := t.Out(1); errType != errorInterface {
			return cType, newBadConstructorError(ErrConstructorBadResult, t)
		}
	case 3:
		cType = withErrorAndCleanUp

		if c := t.Out(1); c != cleanupType && c != plainCleanupType {
			return cType, newBadConstructorError(ErrConstructorBadResult, t)
		}

		if errType := t.Out(2); errType != errorInterface {
			return cType, newBadConstructorError(ErrConstructorBadResult, t)
		}
	default:
		return cType, newBadConstructorError(ErrConstructorBadResult, t)
	}

	return cType, nil
}

func (p *constructorProvider) Kind() ProviderKind   { return ConstructorProvider }
func (p *constructorProvider) Dependencies() []Key { return p.deps }
func (p *constructorProvider) Out() reflect.Type   { return p.fnType.Out(0) }

func (p *constructorProvider) hasCleanup() bool {
	return p.constructorType == withErrorAndCleanUp
}

// withDependencies returns a copy of p resolving its parameters from keys.
func (p *constructorProvider) withDependencies(keys []Key) (*constructorProvider, error) {
	if len(keys) != p.fnType.NumIn() {
		return nil, newBadConstructorError(ErrConstructorDependencies, p.fnType)
	}

	for i, k := range keys {
		if k.IsZero() || !k.Type().AssignableTo(p.fnType.In(i)) {
			return nil, newBadConstructorError(ErrConstructorDependencies, p.fnType)
		}
	}

	cp := *p
	cp.deps = append([]Key(nil), keys...)

	return &cp, nil
}

func (p *constructorProvider) invoke(a *Activation) (any, error) {
	args := make([]reflect.Value, len(a.args))
	for i, arg := range a.args {
		if arg == nil {
			args[i] = reflect.Zero(p.fnType.In(i))
			continue
		}

		args[i] = reflect.ValueOf(arg)
	}

	values := p.fn.Call(args)

	switch p.constructorType {
	case withError:
		if err, ok := values[1].Interface().(error); ok && err != nil {
			return nil, err
		}
	case withErrorAndCleanUp:
		if err, ok := values[2].Interface().(error); ok && err != nil {
			return nil, err
		}

		a.OnDispose(toCleanup(values[1].Interface()))
	}

	return values[0].Interface(), nil
}

func toCleanup(fn any) Cleanup {
	switch fn := fn.(type) {
	case Cleanup:
		return fn
	case func() error:
		return fn
	case func():
		if fn == nil {
			return nil
		}

		return func() error { fn(); return nil }
	default:
		return nil
	}
}
