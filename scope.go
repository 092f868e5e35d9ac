package tinyinject

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
)

// ScopeOption configures CreateScope.
type ScopeOption func(*Scope)

// WithName names the Scope. The name shows up in logs only.
func WithName(name string) ScopeOption {
	return func(s *Scope) { s.name = name }
}

// WithAnnotation seeds value into the Scope.
// Factories read it with Activation.Annotation.
func WithAnnotation(name string, value any) ScopeOption {
	return func(s *Scope) {
		if s.annotations == nil {
			s.annotations = make(map[string]any)
		}

		s.annotations[name] = value
	}
}

// Scope caches Scoped instances, typically for one request or unit of work.
// It is safe for concurrent use.
type Scope struct {
	injector    *Injector
	annotations map[string]any
	name        string
	slots       []slot
	disposals   disposals
	id          uuid.UUID
	closed      atomic.Bool
}

func newScope(inj *Injector, opts []ScopeOption) *Scope {
	s := &Scope{
		injector: inj,
		id:       uuid.New(),
		slots:    make([]slot, inj.plan.scoped),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ID returns the unique id of the Scope.
func (s *Scope) ID() string {
	return s.id.String()
}

// Name returns the name given with WithName.
func (s *Scope) Name() string {
	return s.name
}

// Injector returns the Injector the Scope was created from.
func (s *Scope) Injector() *Injector {
	return s.injector
}

// Annotation returns a value seeded with WithAnnotation.
func (s *Scope) Annotation(name string) (any, bool) {
	v, ok := s.annotations[name]
	return v, ok
}

// Close disposes Scoped instances built in s, newest first.
// It does not wait for constructions in progress: those dispose their instance
// as soon as it is built and fail with ErrScopeClosed.
// Subsequent calls return ErrScopeClosed.
func (s *Scope) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrScopeClosed
	}

	err := s.disposals.drain(context.Background(), s.injector.logger.With("scope", s.ID(), "name", s.name), s.injector.observer)

	for i := range s.slots {
		s.slots[i].reset()
	}

	return err
}

// Closed reports whether Close was called.
func (s *Scope) Closed() bool {
	return s.closed.Load()
}

func (s *Scope) target() (*Injector, *Scope) {
	return s.injector, s
}

type scopeContextKey struct{}

// CreateScopeContext starts a Scope closed once ctx is done
// and returns a child of ctx carrying it. Errors from that Close are logged.
func (inj *Injector) CreateScopeContext(ctx context.Context, opts ...ScopeOption) (context.Context, *Scope) {
	s := newScope(inj, opts)

	context.AfterFunc(ctx, func() {
		if err := s.Close(); err != nil && !errors.Is(err, ErrScopeClosed) {
			inj.logger.Error("closing scope", "scope", s.ID(), "error", err)
		}
	})

	return ContextWithScope(ctx, s), s
}

// ContextWithScope returns a child of ctx carrying s.
func ContextWithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext returns the Scope carried by ctx.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok
}
