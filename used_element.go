package vring

// usedElementSize is the number of bytes a [UsedElement] occupies in guest
// memory.
const usedElementSize = 8

// UsedElement is an element of the used ring and describes a descriptor chain
// the device is done with.
type UsedElement struct {
	// DescriptorIndex is the index of the head of the used descriptor chain
	// in the descriptor table.
	// The index is 32-bit here for padding reasons.
	DescriptorIndex uint32
	// Length is the number of bytes written into the device-writable portion
	// of the buffer described by the descriptor chain.
	Length uint32
}
