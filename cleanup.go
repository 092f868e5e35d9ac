package tinyinject

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Cleanup releases resources held by an instance.
// Constructors of Singleton and Scoped bindings may return one
// as a second result: func(...) (T, Cleanup, error).
type Cleanup func() error

// CallWithRecovery calls the cleanup, turning a panic into an error.
func (fn Cleanup) CallWithRecovery() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()

	return fn()
}

// Disposer is implemented by instances that need releasing when their
// Injector is shut down or their Scope is closed.
type Disposer interface {
	Dispose() error
}

// disposalHook picks the hook of a freshly built instance:
// an explicit cleanup first, then Disposer, then io.Closer.
func disposalHook(instance any, explicit Cleanup) Cleanup {
	if explicit != nil {
		return explicit
	}

	switch v := instance.(type) {
	case Disposer:
		return v.Dispose
	case io.Closer:
		return v.Close
	default:
		return nil
	}
}

type disposal struct {
	fn  Cleanup
	key Key
}

// disposals records hooks in construction order.
// Once drained it accepts no more hooks.
type disposals struct {
	list    []disposal
	mu      sync.Mutex
	drained bool
}

// push records fn, if any. It reports false without recording when the list
// was already drained; the caller owns the hook then.
func (d *disposals) push(key Key, fn Cleanup) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.drained {
		return false
	}

	if fn != nil {
		d.list = append(d.list, disposal{key: key, fn: fn})
	}

	return true
}

func (d *disposals) take() []disposal {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.list
	d.list = nil
	d.drained = true

	return list
}

// drain runs every recorded hook once, newest first.
// A failing hook does not stop the rest; ctx expiry does.
func (d *disposals) drain(ctx context.Context, log *slog.Logger, observer Observer) error {
	list := d.take()

	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := dispose(list[i].key, list[i].fn, log, observer); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// dispose runs one hook, reporting and logging its outcome.
func dispose(key Key, fn Cleanup, log *slog.Logger, observer Observer) error {
	err := fn.CallWithRecovery()
	observer.Disposed(key, err)

	if err != nil {
		log.Error("dispose failed", "key", key.String(), "error", err)
		return newDisposeError(err, key)
	}

	return nil
}
