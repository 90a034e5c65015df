package vring

// PushUsed publishes a completion for the descriptor chain with the given
// head index, telling the driver that written bytes were stored in the
// chain's device-writable buffers. The head must come from a successful
// [Queue.PopChain] on this queue.
//
// PushUsed never fails; on a queue that is broken or torn down it does
// nothing. Whether the driver should be interrupted afterwards is a separate
// decision, see [Queue.ShouldNotify].
func (q *Queue) PushUsed(head uint16, written uint32) {
	if q.state != stateActive {
		return
	}

	q.used.set(q.lastUsedIdx, UsedElement{
		DescriptorIndex: uint32(head),
		Length:          written,
	})

	// The atomic index store releases the element write above: the driver
	// can never observe the new index without the completed slot.
	q.lastUsedIdx++
	q.used.store(q.usedFlags, q.lastUsedIdx)

	// If the index caught up with or passed the last signalled watermark,
	// the watermark no longer means anything. Invalidating it forces the
	// next notification decision to signal unconditionally, so a driver
	// that raced us on the previous batch cannot be left hanging.
	if int16(q.lastUsedIdx-q.signalledUsed) < 1 {
		q.signalledUsedValid = false
	}

	q.metrics.completions.Inc(1)
}
