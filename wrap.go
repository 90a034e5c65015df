package vring

// The ring indices are free-running 16-bit counters that are expected to
// overflow. Positions are derived with "index modulo queue size", which is
// exact because the queue size is always a power of two, and distances are
// derived with wrapping subtraction, never with direct comparison.

// wrapDelta returns how far ahead a is of b in 16-bit wraparound arithmetic.
// wrapDelta(0x0001, 0xffff) is 2, not a huge value.
func wrapDelta(a, b uint16) uint16 {
	return a - b
}

// needEvent reports whether the driver asked to be notified for an index in
// the window (old, new]. event is the used_event watermark the driver
// published.
//
// This is the vring_need_event test from the virtio specification: it holds
// exactly when wrapDelta(new, event+1) < wrapDelta(new, old).
func needEvent(event, newIdx, oldIdx uint16) bool {
	return newIdx-event-1 < newIdx-oldIdx
}
