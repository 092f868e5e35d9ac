// Package promobserver exports tinyinject activations as Prometheus metrics.
//
//	observer, err := promobserver.New(prometheus.DefaultRegisterer, "myapp")
//	if err != nil {
//		// handle error
//	}
//
//	injector, err := tinyinject.New(r, tinyinject.WithObserver(observer))
package promobserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andriiyaremenko/tinyinject"
)

const subsystem = "injector"

// Observer implements tinyinject.Observer with Prometheus collectors.
type Observer struct {
	constructed *prometheus.CounterVec
	failed      *prometheus.CounterVec
	disposed    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var _ tinyinject.Observer = new(Observer)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Observer, error) {
	o := &Observer{
		constructed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "constructed_total",
			Help:      "Number of instances built, by key and lifetime.",
		}, []string{"key", "lifetime"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "construction_failures_total",
			Help:      "Number of failed constructions, by key and lifetime.",
		}, []string{"key", "lifetime"}),
		disposed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "disposed_total",
			Help:      "Number of disposed instances, by key and result.",
		}, []string{"key", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "construction_duration_seconds",
			Help:      "Time spent in providers, by key and lifetime.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"key", "lifetime"}),
	}

	for _, c := range []prometheus.Collector{o.constructed, o.failed, o.disposed, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return o, nil
}

func (o *Observer) Constructed(key tinyinject.Key, lifetime tinyinject.Lifetime, elapsed time.Duration) {
	o.constructed.WithLabelValues(key.String(), lifetime.String()).Inc()
	o.duration.WithLabelValues(key.String(), lifetime.String()).Observe(elapsed.Seconds())
}

func (o *Observer) Failed(key tinyinject.Key, lifetime tinyinject.Lifetime, _ error) {
	o.failed.WithLabelValues(key.String(), lifetime.String()).Inc()
}

func (o *Observer) Disposed(key tinyinject.Key, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	o.disposed.WithLabelValues(key.String(), result).Inc()
}
