package vring

import (
	"github.com/sirupsen/logrus"
	"github.com/slackhq/vring/virtio"
)

// PopChain consumes the next descriptor chain from the available ring and
// resolves it into host-accessible segments. The chain's buffers are stored
// in segs: first the device-readable segments, then the device-writable ones.
// len(segs) is the capacity the caller grants; the slice is not grown.
//
// On success the returned head identifies the chain for the matching
// [Queue.PushUsed] call, out and in are the number of device-readable and
// device-writable segments, and segs[:out+in] is valid until the chain is
// pushed.
//
// Two errors are ordinary control flow: [ErrQueueEmpty] when the driver has
// nothing new, and [ErrSegmentSpace] when segs is too short for this chain.
// In both cases the chain (if any) stays on the available ring and the
// contents of segs are undefined. Every other error wraps
// [ErrGuestViolation] and permanently breaks the queue.
func (q *Queue) PopChain(segs [][]byte) (head uint16, out, in int, err error) {
	if q.state != stateActive {
		return 0, 0, 0, q.inactiveError()
	}

	// Snapshot both indices up front. The atomic load of the available index
	// synchronizes with the driver's publication, so the ring slot and
	// descriptor reads below see everything the driver wrote before it.
	lastAvail := q.lastAvailIdx
	_, availIdx := q.avail.load()

	// The driver can never be more than a full ring ahead of us.
	if wrapDelta(availIdx, lastAvail) > q.size {
		return 0, 0, 0, q.violation(logrus.Fields{
			"availIdx":     availIdx,
			"lastAvailIdx": lastAvail,
		}, "driver moved available index from %d to %d", lastAvail, availIdx)
	}

	if availIdx == lastAvail {
		return 0, 0, 0, ErrQueueEmpty
	}

	head = q.avail.entry(lastAvail)
	if head >= q.size {
		return 0, 0, 0, q.violation(logrus.Fields{
			"head":      head,
			"queueSize": q.size,
		}, "driver offered descriptor index %d on a queue of size %d", head, q.size)
	}

	if q.features.Has(virtio.FeatureEventIdx) {
		// Tell the driver to kick us again once it advances past everything
		// we just observed. This arms the suppression for the next batch
		// regardless of how far we get with this chain.
		q.used.storeAvailEvent(availIdx)
	}

	// Walk the chain. The hop budget catches next-field cycles: a valid
	// chain can never be longer than the queue itself.
	var hops uint16
	index := head
	for {
		if index >= q.size {
			return 0, 0, 0, q.violation(logrus.Fields{
				"head":      head,
				"index":     index,
				"queueSize": q.size,
			}, "descriptor chain %d links to index %d outside the table", head, index)
		}
		hops++
		if hops > q.size {
			return 0, 0, 0, q.violation(logrus.Fields{
				"head":      head,
				"queueSize": q.size,
			}, "loop in descriptor chain %d", head)
		}

		desc := q.descTable[index]

		if desc.isIndirect() {
			if out, in, err = q.walkIndirect(desc, segs, out, in); err != nil {
				return 0, 0, 0, err
			}
		} else {
			if out, in, err = q.appendSegment(desc, segs, out, in); err != nil {
				return 0, 0, 0, err
			}
		}

		// For an indirect descriptor this resumes the outer chain after the
		// fully consumed table; indirection is an expansion point, not a
		// chain link.
		if !desc.hasNext() {
			break
		}
		index = desc.next
	}

	q.lastAvailIdx++
	q.metrics.chainsPopped.Inc(1)
	return head, out, in, nil
}

// appendSegment translates one data descriptor and stores the resulting host
// segment in segs, keeping device-readable segments strictly before
// device-writable ones.
func (q *Queue) appendSegment(desc Descriptor, segs [][]byte, out, in int) (int, int, error) {
	if out+in == len(segs) {
		return out, in, ErrSegmentSpace
	}

	data, ok := q.mem.Translate(desc.address, desc.length, desc.isWritable())
	if !ok {
		return out, in, q.violation(logrus.Fields{
			"address":  desc.address,
			"length":   desc.length,
			"writable": desc.isWritable(),
		}, "descriptor buffer at %#x (%d bytes) is not mappable", desc.address, desc.length)
	}

	if desc.isWritable() {
		segs[out+in] = data
		return out, in + 1, nil
	}

	// Device-readable buffers are required to come before all
	// device-writable ones within a chain.
	if in > 0 {
		return out, in, q.violation(logrus.Fields{
			"readable": out,
			"writable": in,
		}, "descriptor chain has a device-readable buffer after a device-writable one")
	}
	segs[out] = data
	return out + 1, in, nil
}

// walkIndirect expands an indirect descriptor: its buffer holds a secondary
// table of descriptors which form their own chain via next indices into that
// table. The table is bounded by the descriptor length and must not contain
// further indirection.
func (q *Queue) walkIndirect(ind Descriptor, segs [][]byte, out, in int) (int, int, error) {
	if ind.length == 0 || ind.length%descriptorSize != 0 {
		return out, in, q.violation(logrus.Fields{
			"length": ind.length,
		}, "indirect table length %d is not a positive multiple of %d", ind.length, descriptorSize)
	}

	count := ind.length / descriptorSize
	// Descriptors are chained via 16-bit next fields, so a larger table
	// could never be fully addressed anyway.
	if count > 1<<16 {
		return out, in, q.violation(logrus.Fields{
			"length": ind.length,
		}, "indirect table with %d entries is too large", count)
	}

	var found uint32
	index := uint32(0)
	for {
		if index >= count {
			return out, in, q.violation(logrus.Fields{
				"index":   index,
				"entries": count,
			}, "indirect chain links to entry %d outside the table of %d", index, count)
		}
		found++
		if found > count {
			return out, in, q.violation(logrus.Fields{
				"entries": count,
			}, "loop in indirect table of %d entries", count)
		}

		raw, ok := q.mem.Translate(ind.address+uint64(index)*descriptorSize, descriptorSize, false)
		if !ok {
			return out, in, q.violation(logrus.Fields{
				"address": ind.address,
				"index":   index,
			}, "indirect table entry %d at %#x is not mappable", index, ind.address)
		}
		desc := decodeDescriptor(raw)

		if desc.isIndirect() {
			return out, in, q.violation(logrus.Fields{
				"index": index,
			}, "nested indirect descriptor at entry %d", index)
		}

		var err error
		if out, in, err = q.appendSegment(desc, segs, out, in); err != nil {
			return out, in, err
		}

		if !desc.hasNext() {
			return out, in, nil
		}
		index = uint32(desc.next)
	}
}
