package tinyinject

import (
	"reflect"
)

const injectTag = "inject"

type structProvider struct {
	out    reflect.Type
	elem   reflect.Type
	fields []int
	deps   []Key
}

// Struct returns a Provider building C, a struct or a pointer to a struct,
// with every exported field resolved from the graph.
// A field tagged `inject:"name"` is resolved with the "name" qualifier,
// a field tagged `inject:"-"` is left untouched.
func Struct[C any]() Provider {
	p, err := newStructProvider(typeOf[C]())
	if err != nil {
		return invalidProvider{err: err}
	}

	return p
}

func newStructProvider(t reflect.Type) (*structProvider, error) {
	elem := t
	if t.Kind() == reflect.Pointer {
		elem = t.Elem()
	}

	if elem.Kind() != reflect.Struct {
		return nil, newBadConstructorError(ErrNotAStruct, t)
	}

	fields := make([]int, 0, elem.NumField())
	deps := make([]Key, 0, elem.NumField())

	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)
		if !field.IsExported() {
			continue
		}

		qualifier := field.Tag.Get(injectTag)
		if qualifier == "-" {
			continue
		}

		fields = append(fields, i)
		deps = append(deps, KeyFor(field.Type, qualifier))
	}

	return &structProvider{
		out:    t,
		elem:   elem,
		fields: fields,
		deps:   deps,
	}, nil
}

func (p *structProvider) Kind() ProviderKind   { return StructProvider }
func (p *structProvider) Dependencies() []Key { return p.deps }
func (p *structProvider) Out() reflect.Type   { return p.out }

func (p *structProvider) invoke(a *Activation) (any, error) {
	v := reflect.New(p.elem).Elem()

	for i, field := range p.fields {
		if a.args[i] == nil {
			continue
		}

		v.Field(field).Set(reflect.ValueOf(a.args[i]))
	}

	if p.out.Kind() == reflect.Pointer {
		return v.Addr().Interface(), nil
	}

	return v.Interface(), nil
}
