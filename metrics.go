package vring

import "github.com/rcrowley/go-metrics"

// queueMetrics carries the per-process counters the engine maintains. When
// metrics are disabled every counter is a [metrics.NilCounter] so the hot
// path stays free of registry lookups and branches.
type queueMetrics struct {
	chainsPopped     metrics.Counter
	completions      metrics.Counter
	notifySignalled  metrics.Counter
	notifySuppressed metrics.Counter
	guestViolations  metrics.Counter
}

func newQueueMetrics(enabled bool) queueMetrics {
	if !enabled {
		return queueMetrics{
			chainsPopped:     metrics.NilCounter{},
			completions:      metrics.NilCounter{},
			notifySignalled:  metrics.NilCounter{},
			notifySuppressed: metrics.NilCounter{},
			guestViolations:  metrics.NilCounter{},
		}
	}

	return queueMetrics{
		chainsPopped:     metrics.GetOrRegisterCounter("vring.chains.popped", nil),
		completions:      metrics.GetOrRegisterCounter("vring.completions.published", nil),
		notifySignalled:  metrics.GetOrRegisterCounter("vring.notify.signalled", nil),
		notifySuppressed: metrics.GetOrRegisterCounter("vring.notify.suppressed", nil),
		guestViolations:  metrics.GetOrRegisterCounter("vring.guest.violations", nil),
	}
}
