package tinyinject

import (
	"cmp"
	"reflect"

	"github.com/muir/reflectutils"
)

// Key identifies what is being requested: a type and an optional qualifier
// distinguishing several bindings of the same type.
// Keys are comparable and can be used as map keys.
type Key struct {
	t         reflect.Type
	qualifier string
}

// KeyOf returns the Key of T. Only the first qualifier is used.
func KeyOf[T any](qualifier ...string) Key {
	var q string
	if len(qualifier) > 0 {
		q = qualifier[0]
	}

	return KeyFor(typeOf[T](), q)
}

// KeyFor returns the Key of t qualified by qualifier.
func KeyFor(t reflect.Type, qualifier string) Key {
	return Key{t: t, qualifier: qualifier}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (k Key) Type() reflect.Type {
	return k.t
}

func (k Key) Qualifier() string {
	return k.qualifier
}

// IsZero reports whether k carries no type.
func (k Key) IsZero() bool {
	return k.t == nil
}

func (k Key) String() string {
	if k.t == nil {
		return "<nil>"
	}

	name := reflectutils.TypeName(k.t)
	if k.qualifier == "" {
		return name
	}

	return name + "#" + k.qualifier
}

// Compare orders keys by type identity first and qualifier second.
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(typeIdentity(k.t), typeIdentity(other.t)); c != 0 {
		return c
	}

	return cmp.Compare(k.qualifier, other.qualifier)
}

func typeIdentity(t reflect.Type) string {
	if t == nil {
		return ""
	}

	return t.String() + "@" + t.PkgPath()
}

func keysOf(ts ...reflect.Type) []Key {
	keys := make([]Key, len(ts))
	for i, t := range ts {
		keys[i] = Key{t: t}
	}

	return keys
}
