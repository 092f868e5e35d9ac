package tinyinject

import "time"

// Observer is notified about activations and disposals.
// Implementations must be safe for concurrent use.
type Observer interface {
	// Constructed is called after a provider built an instance of key.
	Constructed(key Key, lifetime Lifetime, elapsed time.Duration)
	// Failed is called when a provider of key returned an error or panicked.
	Failed(key Key, lifetime Lifetime, err error)
	// Disposed is called after the disposal hook of key ran.
	Disposed(key Key, err error)
}

type noopObserver struct{}

func (noopObserver) Constructed(Key, Lifetime, time.Duration) {}
func (noopObserver) Failed(Key, Lifetime, error)              {}
func (noopObserver) Disposed(Key, error)                      {}
