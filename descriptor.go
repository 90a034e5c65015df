package vring

import "encoding/binary"

// descriptorFlag is a flag that describes a [Descriptor].
type descriptorFlag uint16

const (
	// descriptorFlagHasNext marks a descriptor chain as continuing via the
	// next field.
	descriptorFlagHasNext descriptorFlag = 1 << iota
	// descriptorFlagWritable marks a buffer as device write-only (otherwise
	// device read-only).
	descriptorFlagWritable
	// descriptorFlagIndirect means the buffer contains a table of further
	// buffer descriptors to provide an additional layer of indirection.
	// Only allowed when the [virtio.FeatureIndirectDescriptors] feature was
	// negotiated.
	descriptorFlagIndirect
)

// descriptorSize is the number of bytes a [Descriptor] occupies in guest
// memory.
const descriptorSize = 16

// Descriptor describes (a part of) a buffer which is either read-only for the
// device or write-only for the device (depending on [descriptorFlagWritable]).
// The driver chains descriptors to form one logical request; device-readable
// descriptors always come before device-writable ones within a chain.
//
// The in-memory layout is fixed by the virtio specification, so the struct
// doubles as a view type for the descriptor table. Every field is
// driver-controlled and therefore untrusted.
type Descriptor struct {
	// address of the buffer in guest-physical memory.
	address uint64
	// length of the buffer in bytes. For an indirect descriptor this is the
	// size of the indirect table and must be a multiple of descriptorSize.
	length uint32
	// flags that describe this descriptor.
	flags descriptorFlag
	// next contains the index of the descriptor continuing this chain when
	// the [descriptorFlagHasNext] flag is set.
	next uint16
}

func (d Descriptor) hasNext() bool {
	return d.flags&descriptorFlagHasNext != 0
}

func (d Descriptor) isWritable() bool {
	return d.flags&descriptorFlagWritable != 0
}

func (d Descriptor) isIndirect() bool {
	return d.flags&descriptorFlagIndirect != 0
}

// decodeDescriptor reads a [Descriptor] from its wire representation.
// Indirect table entries live in arbitrary guest buffers, so unlike the
// descriptor table they are decoded field by field instead of being viewed
// through a struct pointer.
func decodeDescriptor(raw []byte) Descriptor {
	_ = raw[descriptorSize-1]
	return Descriptor{
		address: binary.LittleEndian.Uint64(raw[0:8]),
		length:  binary.LittleEndian.Uint32(raw[8:12]),
		flags:   descriptorFlag(binary.LittleEndian.Uint16(raw[12:14])),
		next:    binary.LittleEndian.Uint16(raw[14:16]),
	}
}
