package tinyinject

// Lifetime is the caching policy of a binding.
type Lifetime int

const (
	// For `Transient` binding new instance is returned on every resolution.
	Transient Lifetime = iota
	// For `Singleton` binding same instance is returned for the lifetime of the Injector.
	Singleton
	// For `Scoped` binding same instance is returned within one Scope.
	Scoped
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "Transient"
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	default:
		return "Unknown"
	}
}

func (l Lifetime) valid() bool {
	return l == Transient || l == Singleton || l == Scoped
}

func (l Lifetime) cached() bool {
	return l == Singleton || l == Scoped
}
