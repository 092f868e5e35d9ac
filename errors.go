package tinyinject

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	constructorTypeStr string = "func(T1, ...) [T|(T, error)|(T, tinyinject.Cleanup, error)]"
)

var (
	errorInterface   = reflect.TypeOf((*error)(nil)).Elem()
	cleanupType      = reflect.TypeOf((*Cleanup)(nil)).Elem()
	plainCleanupType = reflect.TypeOf((*func())(nil)).Elem()

	ErrVariadicConstructor     = fmt.Errorf("variadic constructor is not supported")
	ErrConstructorNotAFunction = fmt.Errorf("constructor is not a function")
	ErrConstructorBadResult    = fmt.Errorf("constructor result is not assignable to bound type")
	ErrConstructorDependencies = fmt.Errorf("declared dependencies do not match constructor parameters")
	ErrNilProvider             = fmt.Errorf("got nil provider")
	ErrRegistryFrozen          = fmt.Errorf("registry is frozen")
	ErrNothingToDecorate       = fmt.Errorf("decorator has nothing to decorate")
	ErrScopeClosed             = fmt.Errorf("scope is closed")
	ErrInjectorShutdown        = fmt.Errorf("injector is shut down")
	ErrAlreadyShutdown         = fmt.Errorf("injector has already been shut down")
	ErrNotAStruct              = fmt.Errorf("ToStruct can only be used with a struct or a pointer to a struct")
	ErrInstanceLifetime        = fmt.Errorf("instance bindings are always Singleton")
	ErrTransientCleanup        = fmt.Errorf("Transient bindings cannot declare a cleanup")
	ErrForeignResolver         = fmt.Errorf("resolver belongs to another injector")
	ErrUsingNotSupported       = fmt.Errorf("Using can only be applied to constructor bindings")
	ErrNoAlternatives          = fmt.Errorf("ToSelected needs at least one alternative and a choice")
)

type LifetimeUnsupportedError string

func (lifetime LifetimeUnsupportedError) Error() string {
	return fmt.Sprintf("%s Lifetime is unsupported", string(lifetime))
}

func newBadConstructorError(cause error, constructorType reflect.Type) error {
	return &BadConstructorError{
		cause:           cause,
		ConstructorType: constructorType,
	}
}

// BadConstructorError is returned when a constructor cannot be used for a binding.
type BadConstructorError struct {
	cause           error
	ConstructorType reflect.Type
}

func (err *BadConstructorError) Error() string {
	return fmt.Sprintf("bad constructor %s (expected %s): %s", err.ConstructorType, constructorTypeStr, err.cause)
}

func (err *BadConstructorError) Unwrap() error {
	return err.cause
}

func newDuplicateBindingError(key Key) error {
	return &DuplicateBindingError{Key: key}
}

// DuplicateBindingError is returned when a key is registered twice without Override.
type DuplicateBindingError struct {
	Key Key
}

func (err *DuplicateBindingError) Error() string {
	return fmt.Sprintf("%s is already bound", err.Key)
}

func newUnboundTypeError(key Key, chain []Key) error {
	return &UnboundTypeError{Key: key, Chain: chain}
}

// UnboundTypeError is returned when a required key has no binding.
// Chain lists the requesters that led to Key, ending with Key itself.
type UnboundTypeError struct {
	Key   Key
	Chain []Key
}

func (err *UnboundTypeError) Error() string {
	if len(err.Chain) <= 1 {
		return fmt.Sprintf("%s is not bound", err.Key)
	}

	return fmt.Sprintf("%s is not bound (required by %s)", err.Key, formatChain(err.Chain))
}

func newCyclicDependencyError(chain []Key) error {
	return &CyclicDependencyError{Chain: chain}
}

// CyclicDependencyError is returned when a key depends on itself.
// Chain starts and ends with the repeated key.
type CyclicDependencyError struct {
	Chain []Key
}

func (err *CyclicDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", formatChain(err.Chain))
}

func newConstructionError(cause error, key Key, lifetime Lifetime) error {
	return &ConstructionError{
		cause:    cause,
		Key:      key,
		Lifetime: lifetime,
	}
}

// ConstructionError wraps an error returned (or a panic raised) by a provider.
type ConstructionError struct {
	cause    error
	Key      Key
	Lifetime Lifetime
}

func (err *ConstructionError) Error() string {
	return fmt.Sprintf("cannot build %s %s: %s", err.Lifetime, err.Key, err.cause)
}

func (err *ConstructionError) Unwrap() error {
	return err.cause
}

func newTypeMismatchError(key Key, promised, produced reflect.Type) error {
	return &TypeMismatchError{Key: key, Promised: promised, Produced: produced}
}

// TypeMismatchError signals a defect in an Erased provider: the instance it
// produced does not match what it reported or what the key requires.
type TypeMismatchError struct {
	Key      Key
	Promised reflect.Type
	Produced reflect.Type
}

func (err *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: erased provider promised %s but produced %s", err.Key, err.Promised, err.Produced)
}

func newScopeRequiredError(key Key, chain []Key) error {
	return &ScopeRequiredError{Key: key, Chain: chain}
}

// ScopeRequiredError is returned when a Scoped key is resolved outside of a Scope,
// including while a Singleton is being built.
type ScopeRequiredError struct {
	Key   Key
	Chain []Key
}

func (err *ScopeRequiredError) Error() string {
	return fmt.Sprintf("Scoped %s must be resolved from a scope (chain %s)", err.Key, formatChain(err.Chain))
}

func newLifetimeMismatchError(chain []Key) error {
	return &LifetimeMismatchError{Chain: chain}
}

// LifetimeMismatchError is reported by validation when a Singleton depends on a
// Scoped key, directly or through Transient keys.
type LifetimeMismatchError struct {
	Chain []Key
}

func (err *LifetimeMismatchError) Error() string {
	return fmt.Sprintf(
		"Singleton %s depends on Scoped %s: %s",
		err.Chain[0],
		err.Chain[len(err.Chain)-1],
		formatChain(err.Chain),
	)
}

func newUnknownAlternativeError(key Key, selected string, known []string) error {
	return &UnknownAlternativeError{Key: key, Selected: selected, Known: known}
}

// UnknownAlternativeError is returned when a Choice selects an implementation
// that was not offered to ToSelected.
type UnknownAlternativeError struct {
	Key      Key
	Selected string
	Known    []string
}

func (err *UnknownAlternativeError) Error() string {
	return fmt.Sprintf("%s: unknown alternative %q (known: %s)", err.Key, err.Selected, strings.Join(err.Known, ", "))
}

func newValidationError(findings []error) error {
	return &ValidationError{Findings: findings}
}

// ValidationError aggregates every problem found by eager validation.
type ValidationError struct {
	Findings []error
}

func (err *ValidationError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "dependency graph is invalid (%d problems):", len(err.Findings))
	for _, f := range err.Findings {
		b.WriteString("\n\t")
		b.WriteString(f.Error())
	}

	return b.String()
}

func (err *ValidationError) Unwrap() []error {
	return err.Findings
}

func newDisposeError(cause error, key Key) error {
	return &DisposeError{cause: cause, Key: key}
}

// DisposeError is returned when a disposal hook fails.
type DisposeError struct {
	cause error
	Key   Key
}

func (err *DisposeError) Error() string {
	return fmt.Sprintf("dispose %s: %s", err.Key, err.cause)
}

func (err *DisposeError) Unwrap() error {
	return err.cause
}

func newPanicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("recovered from panic: %w", err)
	}

	return fmt.Errorf("recovered from panic: %v", recovered)
}

func formatChain(chain []Key) string {
	parts := make([]string, len(chain))
	for i, k := range chain {
		parts[i] = k.String()
	}

	return strings.Join(parts, " -> ")
}
