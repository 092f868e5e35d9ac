package tinyinject

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Option configures New.
type Option func(*configuration)

type configuration struct {
	logger   *slog.Logger
	observer Observer
	eager    bool
	trace    bool
}

// WithEagerValidation makes New walk the whole graph and fail with a ValidationError
// listing every unbound dependency, cycle and lifetime mismatch.
// Without it such problems are reported by the first Resolve that meets them.
func WithEagerValidation() Option {
	return func(c *configuration) { c.eager = true }
}

// WithLogger sets the logger of the Injector.
func WithLogger(l *slog.Logger) Option {
	return func(c *configuration) { c.logger = l }
}

// WithTrace logs every activation at debug level.
func WithTrace() Option {
	return func(c *configuration) { c.trace = true }
}

// WithObserver reports activations and disposals to o.
func WithObserver(o Observer) Option {
	return func(c *configuration) { c.observer = o }
}

// Injector resolves keys into fully built instances.
// It is safe for concurrent use.
type Injector struct {
	plan       *plan
	logger     *slog.Logger
	observer   Observer
	singletons []slot
	disposals  disposals
	trace      bool
	shutdown   atomic.Bool
}

// New freezes r and builds an Injector from it.
func New(r *Registry, opts ...Option) (*Injector, error) {
	conf := configuration{
		logger:   logger(),
		observer: noopObserver{},
	}

	for _, opt := range opts {
		opt(&conf)
	}

	if err := r.Freeze(); err != nil {
		return nil, err
	}

	p, err := compile(r.snapshot())
	if err != nil {
		return nil, err
	}

	if conf.eager {
		if err := validate(p); err != nil {
			return nil, err
		}
	}

	return &Injector{
		plan:       p,
		logger:     conf.logger,
		observer:   conf.observer,
		trace:      conf.trace,
		singletons: make([]slot, p.singletons),
	}, nil
}

// Has reports whether key is bound.
func (inj *Injector) Has(key Key) bool {
	_, ok := inj.plan.nodes[key]
	return ok
}

// Keys returns every bound key in order.
func (inj *Injector) Keys() []Key {
	keys := make([]Key, len(inj.plan.order))
	for i, n := range inj.plan.order {
		keys[i] = n.key
	}

	return keys
}

// Validate runs the eager validation on demand.
func (inj *Injector) Validate() error {
	return validate(inj.plan)
}

// CreateScope starts a new Scope. Scoped bindings resolved from it are
// cached until it is closed.
func (inj *Injector) CreateScope(opts ...ScopeOption) *Scope {
	return newScope(inj, opts)
}

// Shutdown disposes every Singleton in reverse construction order.
// When ctx expires remaining instances are skipped and ctx error is returned with the rest.
// A Singleton still being built is disposed once built and its resolution
// fails with ErrInjectorShutdown. Subsequent calls return ErrAlreadyShutdown.
func (inj *Injector) Shutdown(ctx context.Context) error {
	if !inj.shutdown.CompareAndSwap(false, true) {
		return ErrAlreadyShutdown
	}

	return inj.disposals.drain(ctx, inj.logger, inj.observer)
}

func (inj *Injector) target() (*Injector, *Scope) {
	return inj, nil
}
