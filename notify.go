package vring

import "github.com/slackhq/vring/virtio"

// DisableNotification advises the driver to stop kicking the device, for use
// while the device is actively draining the queue anyway. Without
// [virtio.FeatureEventIdx] this sets the no-notify flag in the used ring;
// with it, suppression is automatic (the avail_event watermark armed by
// [Queue.PopChain] already lags on purpose) and this is a no-op.
//
// The advice is unreliable by design. Drivers may kick regardless.
func (q *Queue) DisableNotification() {
	if q.state != stateActive {
		return
	}
	if q.features.Has(virtio.FeatureEventIdx) {
		return
	}
	q.usedFlags |= usedRingFlagNoNotify
	q.used.store(q.usedFlags, q.lastUsedIdx)
}

// EnableNotification asks the driver to kick the device for the next
// descriptor chain it publishes and reports whether the queue is currently
// empty. A false return means chains were published concurrently and the
// caller must drain the queue once more before sleeping: the re-check closes
// the race between arming the notification and the driver's last kick being
// suppressed.
func (q *Queue) EnableNotification() (empty bool, err error) {
	if q.state != stateActive {
		return false, q.inactiveError()
	}

	if q.features.Has(virtio.FeatureEventIdx) {
		_, availIdx := q.avail.load()
		q.used.storeAvailEvent(availIdx)
	} else {
		q.usedFlags &^= usedRingFlagNoNotify
		q.used.store(q.usedFlags, q.lastUsedIdx)
	}

	// The arming store must be visible to the driver before the index is
	// re-read, otherwise both sides can go idle at once.
	fence()

	_, availIdx := q.avail.load()
	return availIdx == q.lastAvailIdx, nil
}

// ShouldNotify decides whether the driver must be interrupted after a batch
// of [Queue.PushUsed] calls. It has a side effect: every call advances the
// signalled watermark to the current used index, so it must be called exactly
// once per evaluation point. Calling it twice in a row yields true then
// false for an unchanged queue.
//
// A broken or torn down queue never warrants an interrupt.
func (q *Queue) ShouldNotify() bool {
	if q.state != stateActive {
		return false
	}

	// Flush the used index publication before inspecting the driver's
	// suppression state; this pairs with the barrier the driver executes
	// when enabling interrupts.
	fence()

	availFlags, availIdx := q.avail.load()

	if q.features.Has(virtio.FeatureNotifyOnEmpty) && availIdx == q.lastAvailIdx {
		q.metrics.notifySignalled.Inc(1)
		return true
	}

	if !q.features.Has(virtio.FeatureEventIdx) {
		if availFlags&availableRingFlagNoInterrupt != 0 {
			q.metrics.notifySuppressed.Inc(1)
			return false
		}
		q.metrics.notifySignalled.Inc(1)
		return true
	}

	old := q.signalledUsed
	wasValid := q.signalledUsedValid
	q.signalledUsed = q.lastUsedIdx
	q.signalledUsedValid = true

	// First evaluation since the watermark was invalidated: there is no
	// window to test against, so always signal.
	if !wasValid {
		q.metrics.notifySignalled.Inc(1)
		return true
	}

	if needEvent(q.avail.loadUsedEvent(), q.lastUsedIdx, old) {
		q.metrics.notifySignalled.Inc(1)
		return true
	}
	q.metrics.notifySuppressed.Inc(1)
	return false
}
