package vring

import (
	"fmt"
	"unsafe"

	"github.com/sirupsen/logrus"
	"github.com/slackhq/vring/virtio"
)

// GuestMemory translates guest-physical address ranges into host-accessible
// byte slices. It is the trust boundary of the engine: implementations must
// enforce bounds and, when writable is set, write permission.
//
// A false return means the range is not mapped or not allowed. The engine
// treats that as guest corruption, never as a transient condition, because an
// address a driver advertises must be one it actually owns.
type GuestMemory interface {
	Translate(address uint64, length uint32, writable bool) ([]byte, bool)
}

// queueState tracks the lifecycle of a [Queue].
type queueState uint8

const (
	// stateActive is the normal operating state.
	stateActive queueState = iota
	// stateBroken is entered on the first guest protocol violation and is
	// terminal. A broken queue rejects every operation without touching
	// guest memory.
	stateBroken
	// stateTornDown is the graceful terminal state entered by
	// [Queue.Teardown].
	stateTornDown
)

// Queue is the device-side of one split virtqueue. It consumes descriptor
// chains from the available ring, resolves their buffers through the
// configured [GuestMemory] and publishes completions on the used ring.
//
// A Queue must only be driven by one goroutine at a time. The driver side may
// run concurrently in another thread of control (typically a guest vCPU); the
// ring index words are the only memory both sides write, and those are
// accessed with the ordering the virtio specification requires.
type Queue struct {
	mem      GuestMemory
	size     uint16
	features virtio.Feature

	// Views into the ring region, valid while state == stateActive.
	descTable []Descriptor
	avail     *availableRing
	used      *usedRing

	// lastAvailIdx is the next available ring position this side will
	// consume.
	lastAvailIdx uint16
	// lastUsedIdx is the next used ring position this side will publish. It
	// mirrors the index field written to the used ring.
	lastUsedIdx uint16
	// usedFlags shadows the device-owned flags word of the used ring.
	usedFlags usedRingFlag

	// signalledUsed is the used index for which the notification condition
	// was last evaluated. When signalledUsedValid is false the next
	// evaluation counts as the first one and always signals.
	signalledUsed      uint16
	signalledUsedValid bool

	state queueState

	l       *logrus.Logger
	metrics queueMetrics
}

// NewQueue maps the ring region of an already configured virtqueue and
// returns the device-side engine for it. The queue size, ring address and
// negotiated features are expected to come from the device model's
// configuration handshake; see [WithQueueSize], [WithRingAddress] and
// [WithFeatures].
func NewQueue(mem GuestMemory, options ...Option) (*Queue, error) {
	opts := optionDefaults
	opts.apply(options)
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if mem == nil {
		return nil, fmt.Errorf("invalid options: guest memory is required")
	}

	size := opts.queueSize
	region, ok := mem.Translate(opts.ringAddress, uint32(ringSize(size, opts.ringAlign)), true)
	if !ok {
		return nil, fmt.Errorf("map ring region at %#x (%d bytes): address is not mappable",
			opts.ringAddress, ringSize(size, opts.ringAlign))
	}
	// The header words of both rings are accessed atomically, which needs
	// them naturally aligned. The guest lays the region out page-aligned;
	// a translator returning something less aligned is misconfigured.
	if uintptr(unsafe.Pointer(&region[0]))%8 != 0 {
		return nil, fmt.Errorf("map ring region at %#x: host mapping is not 8-byte aligned",
			opts.ringAddress)
	}

	logger := opts.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	availOffset := descriptorTableSize(size)
	usedOffset := usedRingOffset(size, opts.ringAlign)

	q := &Queue{
		mem:      mem,
		size:     uint16(size),
		features: opts.features,
		descTable: unsafe.Slice(
			(*Descriptor)(unsafe.Pointer(&region[0])), size),
		avail:   newAvailableRing(size, region[availOffset:availOffset+availableRingSize(size)]),
		used:    newUsedRing(size, region[usedOffset:usedOffset+usedRingSize(size)]),
		state:   stateActive,
		l:       logger,
		metrics: newQueueMetrics(opts.metricsEnabled),
	}

	return q, nil
}

// Size returns the number of descriptors the queue holds.
func (q *Queue) Size() uint16 {
	return q.size
}

// Broken returns true once a guest protocol violation permanently disabled
// the queue.
func (q *Queue) Broken() bool {
	return q.state == stateBroken
}

// MoreAvail reports whether the driver has published descriptor chains that
// were not yet consumed. It is a cheap probe for polling loops; false on a
// queue that is not active.
func (q *Queue) MoreAvail() bool {
	if q.state != stateActive {
		return false
	}
	_, availIdx := q.avail.load()
	return availIdx != q.lastAvailIdx
}

// Teardown detaches the queue from guest memory. The queue rejects all
// operations afterwards. It is the caller's responsibility to make sure no
// other call is in flight; teardown is only safe once the queue is idle.
func (q *Queue) Teardown() {
	if q.state == stateActive {
		q.state = stateTornDown
	}
	q.descTable = nil
	q.avail = nil
	q.used = nil
}

// inactiveError returns the error corresponding to a non-active state.
func (q *Queue) inactiveError() error {
	if q.state == stateBroken {
		return ErrQueueBroken
	}
	return ErrQueueNotActive
}

// violation marks the queue broken, logs what the driver did and returns the
// wrapped [ErrGuestViolation]. After this, no operation touches guest memory
// again.
func (q *Queue) violation(fields logrus.Fields, format string, args ...any) error {
	q.state = stateBroken
	q.metrics.guestViolations.Inc(1)
	msg := fmt.Sprintf(format, args...)
	q.l.WithFields(fields).Error(msg)
	return fmt.Errorf("%w: %s", ErrGuestViolation, msg)
}
