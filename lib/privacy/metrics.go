package privacy

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// lockMetrics holds the counters of a single lock. Every lock has its own set
// so independent locks never share counters.
type lockMetrics struct {
	set *metrics.Set

	acquireOk                 *metrics.Counter
	acquireReentrant          *metrics.Counter
	acquireAlreadyHeld        *metrics.Counter
	acquireBackendUnavailable *metrics.Counter
	acquireCancelled          *metrics.Counter

	releaseOk            *metrics.Counter
	releaseNoop          *metrics.Counter
	releaseBackendFailed *metrics.Counter
}

func newLockMetrics(implKey string, held func() bool) *lockMetrics {
	s := metrics.NewSet()

	acquire := func(result string) *metrics.Counter {
		return s.NewCounter(fmt.Sprintf(`privlock_acquire_total{impl=%q,result=%q}`, implKey, result))
	}
	release := func(result string) *metrics.Counter {
		return s.NewCounter(fmt.Sprintf(`privlock_release_total{impl=%q,result=%q}`, implKey, result))
	}

	s.NewGauge(fmt.Sprintf(`privlock_held{impl=%q}`, implKey), func() float64 {
		if held() {
			return 1
		}
		return 0
	})

	return &lockMetrics{
		set:                       s,
		acquireOk:                 acquire("ok"),
		acquireReentrant:          acquire("reentrant"),
		acquireAlreadyHeld:        acquire("already_held"),
		acquireBackendUnavailable: acquire("backend_unavailable"),
		acquireCancelled:          acquire("cancelled"),
		releaseOk:                 release("ok"),
		releaseNoop:               release("noop"),
		releaseBackendFailed:      release("backend_failed"),
	}
}
