package vring

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// usedRingFlag is a flag that describes a used ring.
type usedRingFlag uint16

const (
	// usedRingFlagNoNotify is set by the device to advise the driver to not
	// kick it when offering a buffer. It's unreliable, so it's simply an
	// optimization. Only meaningful when [virtio.FeatureEventIdx] was not
	// negotiated.
	usedRingFlagNoNotify usedRingFlag = 1 << iota
)

// usedRing is the device-side view of the ring the device uses to return
// descriptor chains once it is done with them. Each ring entry is a
// [UsedElement]. It is only written by the device and read by the driver.
//
// Because the size of the ring depends on the queue size, we cannot define a
// Go struct with a static size that maps to the memory of the ring. Instead,
// this struct only contains pointers to the corresponding memory areas.
type usedRing struct {
	// header covers the flags and ring index fields. They share one aligned
	// 32-bit word so both can be published with a single atomic store, which
	// also gives the release ordering the protocol demands: a ring slot is
	// fully written before the index that exposes it.
	header *uint32
	// ring contains the [UsedElement]s. It wraps around at queue size.
	ring []UsedElement
	// availEvent is where the device publishes the available ring index at
	// which it wants to be kicked next. Only valid when
	// [virtio.FeatureEventIdx] was negotiated.
	availEvent *uint16
}

// newUsedRing creates the device-side view of a used ring over the given
// guest memory. The length of the memory slice must match the size needed for
// the ring (see [usedRingSize]) for the given queue size.
func newUsedRing(queueSize int, mem []byte) *usedRing {
	size := usedRingSize(queueSize)
	if len(mem) != size {
		panic(fmt.Sprintf("memory size (%v) does not match required size "+
			"for used ring: %v", len(mem), size))
	}

	return &usedRing{
		header:     (*uint32)(unsafe.Pointer(&mem[0])),
		ring:       unsafe.Slice((*UsedElement)(unsafe.Pointer(&mem[4])), queueSize),
		availEvent: (*uint16)(unsafe.Pointer(&mem[size-2])),
	}
}

// set writes the used element at the given free-running ring position. The
// element only becomes visible to the driver with the next [usedRing.store].
func (r *usedRing) set(position uint16, elem UsedElement) {
	r.ring[int(position)%len(r.ring)] = elem
}

// store publishes the device-owned flags and ring index fields. The store
// synchronizes with the driver's index read, making all previously written
// ring slots visible.
func (r *usedRing) store(flags usedRingFlag, index uint16) {
	atomic.StoreUint32(r.header, uint32(flags)|uint32(index)<<16)
}

// storeAvailEvent publishes the available ring index at which the device
// wants to be kicked next.
func (r *usedRing) storeAvailEvent(index uint16) {
	*r.availEvent = index
}
