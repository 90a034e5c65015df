package vring

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// availableRingFlag is a flag that describes an available ring.
type availableRingFlag uint16

const (
	// availableRingFlagNoInterrupt is set by the driver to advise the device
	// to not interrupt it when returning a buffer. It's unreliable, so it's
	// simply an optimization. Only meaningful when [virtio.FeatureEventIdx]
	// was not negotiated.
	availableRingFlagNoInterrupt availableRingFlag = 1 << iota
)

// availableRing is the device-side view of the ring the driver uses to offer
// descriptor chains. Each ring entry refers to the head of a descriptor
// chain. It is only written by the driver and read by the device, which makes
// every field untrusted input.
//
// Because the size of the ring depends on the queue size, we cannot define a
// Go struct with a static size that maps to the memory of the ring. Instead,
// this struct only contains pointers to the corresponding memory areas.
type availableRing struct {
	// header covers the flags and ring index fields. They share one aligned
	// 32-bit word so both can be snapshotted with a single atomic load, which
	// also gives the acquire ordering the protocol demands: the index is read
	// before any ring slot it refers to.
	header *uint32
	// ring references chains using the index of the head of the descriptor
	// chain in the descriptor table. It wraps around at queue size.
	ring []uint16
	// usedEvent is the used ring index at which the driver wants to be
	// interrupted next. Only valid when [virtio.FeatureEventIdx] was
	// negotiated.
	usedEvent *uint16
}

// newAvailableRing creates the device-side view of an available ring over the
// given guest memory. The length of the memory slice must match the size
// needed for the ring (see [availableRingSize]) for the given queue size.
func newAvailableRing(queueSize int, mem []byte) *availableRing {
	size := availableRingSize(queueSize)
	if len(mem) != size {
		panic(fmt.Sprintf("memory size (%v) does not match required size "+
			"for available ring: %v", len(mem), size))
	}

	return &availableRing{
		header:    (*uint32)(unsafe.Pointer(&mem[0])),
		ring:      unsafe.Slice((*uint16)(unsafe.Pointer(&mem[4])), queueSize),
		usedEvent: (*uint16)(unsafe.Pointer(&mem[size-2])),
	}
}

// load returns a consistent snapshot of the driver-owned flags and ring index
// fields. The load synchronizes with the driver's index publication, so ring
// slots up to the returned index may be read afterwards.
func (r *availableRing) load() (availableRingFlag, uint16) {
	header := atomic.LoadUint32(r.header)
	return availableRingFlag(header), uint16(header >> 16)
}

// entry returns the descriptor chain head the driver stored at the given
// free-running ring position.
func (r *availableRing) entry(position uint16) uint16 {
	return r.ring[int(position)%len(r.ring)]
}

// loadUsedEvent returns the used_event watermark. Callers must fence before
// reading it so the driver's latest value is observed.
func (r *availableRing) loadUsedEvent() uint16 {
	return *r.usedEvent
}
