package vring

import "errors"

var (
	// ErrQueueEmpty is returned by [Queue.PopChain] when the driver has not
	// published any new descriptor chains. This is the ordinary idle state,
	// not a failure. Callers should wait for the next doorbell or poll again.
	ErrQueueEmpty = errors.New("no descriptor chains are available")

	// ErrSegmentSpace is returned by [Queue.PopChain] when the caller-supplied
	// segment slice is too short for the chain being walked. The chain stays
	// on the available ring. Callers should finish the chains they already
	// hold and retry with more room.
	ErrSegmentSpace = errors.New("not enough room for all segments of the descriptor chain")

	// ErrGuestViolation is returned (wrapped) when the driver broke the
	// virtqueue protocol: a bogus index, a descriptor loop, a nested or
	// misaligned indirect table, an unmappable address. The queue is broken
	// afterwards and every later operation returns [ErrQueueBroken].
	ErrGuestViolation = errors.New("virtqueue protocol violation by the driver")

	// ErrQueueBroken is returned by every operation after a guest protocol
	// violation was detected. A broken queue never touches guest memory
	// again; the only way out is a device reset with a fresh queue.
	ErrQueueBroken = errors.New("virtqueue is broken")

	// ErrQueueNotActive is returned when an operation is attempted on a queue
	// that was already torn down.
	ErrQueueNotActive = errors.New("virtqueue is not active")
)
