package backend

import (
	"io"
	"time"

	"github.com/ValentinKolb/privlock/lib/privacy"
	gometrics "github.com/rcrowley/go-metrics"
)

// instrumented wraps a backend and records latency and failures of every call.
// It forwards all optional capabilities of the wrapped backend; for backends
// without them the forwarded methods behave like a plain sync backend.
type instrumented struct {
	inner privacy.IBackend

	enableTimer     gometrics.Timer
	disableTimer    gometrics.Timer
	enableFailures  gometrics.Counter
	disableFailures gometrics.Counter
}

// Instrument wraps b so that its calls are timed in r under the given name:
// <name>.enable, <name>.disable, <name>.enable.failures, <name>.disable.failures.
func Instrument(b privacy.IBackend, r gometrics.Registry, name string) privacy.IBackend {
	return &instrumented{
		inner:           b,
		enableTimer:     gometrics.GetOrRegisterTimer(name+".enable", r),
		disableTimer:    gometrics.GetOrRegisterTimer(name+".disable", r),
		enableFailures:  gometrics.GetOrRegisterCounter(name+".enable.failures", r),
		disableFailures: gometrics.GetOrRegisterCounter(name+".disable.failures", r),
	}
}

func (i *instrumented) Enable() error {
	start := time.Now()
	err := i.inner.Enable()
	i.enableTimer.UpdateSince(start)
	if err != nil {
		i.enableFailures.Inc(1)
	}
	return err
}

func (i *instrumented) Disable() error {
	start := time.Now()
	err := i.inner.Disable()
	i.disableTimer.UpdateSince(start)
	if err != nil {
		i.disableFailures.Inc(1)
	}
	return err
}

func (i *instrumented) Init() error {
	if initializer, ok := i.inner.(privacy.Initializer); ok {
		return initializer.Init()
	}
	return nil
}

func (i *instrumented) IsAsync() bool {
	if a, ok := i.inner.(privacy.AsyncBackend); ok {
		return a.IsAsync()
	}
	return false
}

func (i *instrumented) Confirmed() (bool, error) {
	if c, ok := i.inner.(privacy.Confirmer); ok {
		return c.Confirmed()
	}
	return true, nil
}

func (i *instrumented) Close() error {
	if c, ok := i.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Snapshot flattens the timers and counters of r into a map that can be sent
// over the wire. Durations are reported in milliseconds.
func Snapshot(r gometrics.Registry) map[string]float64 {
	out := make(map[string]float64)
	r.Each(func(name string, metric interface{}) {
		switch m := metric.(type) {
		case gometrics.Timer:
			out[name+".count"] = float64(m.Count())
			out[name+".mean_ms"] = m.Mean() / float64(time.Millisecond)
			out[name+".p99_ms"] = m.Percentile(0.99) / float64(time.Millisecond)
		case gometrics.Counter:
			out[name] = float64(m.Count())
		}
	})
	return out
}
