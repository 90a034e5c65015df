package vring

import (
	"errors"
	"fmt"
)

// ErrQueueSizeInvalid is returned when a queue size is invalid.
var ErrQueueSizeInvalid = errors.New("queue size is invalid")

// ErrRingAlignInvalid is returned when a ring alignment is invalid.
var ErrRingAlignInvalid = errors.New("ring alignment is invalid")

// defaultRingAlign is the used ring alignment of the legacy virtio interface.
// The driver lays out the three ring structures back to back with the used
// ring starting at the next multiple of this value.
const defaultRingAlign = 4096

// CheckQueueSize checks if the given value would be a valid size for a
// virtqueue and returns an [ErrQueueSizeInvalid], if not.
func CheckQueueSize(queueSize int) error {
	if queueSize <= 0 {
		return fmt.Errorf("%w: %d is too small", ErrQueueSizeInvalid, queueSize)
	}

	// The queue size must always be a power of 2.
	// This ensures that ring indexes wrap correctly when the 16-bit integers
	// overflow.
	if queueSize&(queueSize-1) != 0 {
		return fmt.Errorf("%w: %d is not a power of 2", ErrQueueSizeInvalid, queueSize)
	}

	// The largest power of 2 that fits into a 16-bit integer is 32768.
	// 2 * 32768 would be 65536 which no longer fits.
	if queueSize > 32768 {
		return fmt.Errorf("%w: %d is larger than the maximum possible queue size 32768",
			ErrQueueSizeInvalid, queueSize)
	}

	return nil
}

// checkRingAlign checks that the given used ring alignment is a power of two
// that can hold the 4-byte used ring header.
func checkRingAlign(align int) error {
	if align < 4 || align&(align-1) != 0 {
		return fmt.Errorf("%w: %d is not a power of 2 of at least 4", ErrRingAlignInvalid, align)
	}
	return nil
}

// descriptorTableSize is the number of bytes needed to store the descriptor
// table for the given queue size in memory.
func descriptorTableSize(queueSize int) int {
	return descriptorSize * queueSize
}

// availableRingSize is the number of bytes needed to store an available ring
// with the given queue size in memory, including the trailing used_event
// field.
func availableRingSize(queueSize int) int {
	return 6 + 2*queueSize
}

// usedRingSize is the number of bytes needed to store a used ring with the
// given queue size in memory, including the trailing avail_event field.
func usedRingSize(queueSize int) int {
	return 6 + usedElementSize*queueSize
}

// usedRingOffset returns the offset of the used ring from the start of the
// ring region. The descriptor table and available ring are packed back to
// back; the used ring starts at the next alignment boundary.
func usedRingOffset(queueSize, align int) int {
	return alignUp(descriptorTableSize(queueSize)+availableRingSize(queueSize), align)
}

// ringSize returns the total number of bytes the guest lays out for a queue
// of the given size: descriptor table, available ring, alignment padding and
// used ring.
func ringSize(queueSize, align int) int {
	return usedRingOffset(queueSize, align) + usedRingSize(queueSize)
}

func alignUp(index, alignment int) int {
	remainder := index % alignment
	if remainder == 0 {
		return index
	}
	return index + alignment - remainder
}
