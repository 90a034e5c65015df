// Package guestmem provides a simple guest memory translator backed by an
// anonymous memory mapping. It models a single contiguous window of
// guest-physical address space, which is all a vhost-style in-process backend
// needs, and enforces the bounds and write-permission checks the queue engine
// relies on.
package guestmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrRegionClosed is returned when a closed region is used.
var ErrRegionClosed = errors.New("guest memory region was closed")

// Region is one contiguous range of guest-physical memory, starting at a
// configurable base address, backed by an anonymous host mapping.
type Region struct {
	base uint64
	buf  []byte

	// readOnly holds guest-physical ranges for which writable translations
	// are refused. This is bookkeeping, not mprotect: it exists so device
	// models can mirror the guest's idea of read-only memory.
	readOnly []span
}

type span struct {
	start uint64
	end   uint64
}

// New allocates a region of the given size whose first byte has the given
// guest-physical address. The memory is page-backed and zeroed.
// Remember to call [Region.Close] after use to release the mapping.
func New(base uint64, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region size %d is not positive", size)
	}
	if base+uint64(size) < base {
		return nil, fmt.Errorf("region of %d bytes at %#x wraps the address space", size, base)
	}

	buf, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("allocate guest memory: %w", err)
	}

	return &Region{base: base, buf: buf}, nil
}

// Base returns the guest-physical address of the first byte of the region.
func (r *Region) Base() uint64 {
	return r.base
}

// Size returns the size of the region in bytes.
func (r *Region) Size() int {
	return len(r.buf)
}

// MarkReadOnly refuses future writable translations for the given
// guest-physical range. The range must lie within the region.
func (r *Region) MarkReadOnly(address uint64, length uint32) error {
	if _, ok := r.Translate(address, length, false); !ok {
		return fmt.Errorf("range at %#x (%d bytes) is outside the region", address, length)
	}
	r.readOnly = append(r.readOnly, span{start: address, end: address + uint64(length)})
	return nil
}

// Translate maps a guest-physical range to host memory. It returns false when
// the range is out of bounds, wraps around, or requests write access to a
// range marked read-only. A zero-length range translates to an empty slice as
// long as its address is in bounds.
func (r *Region) Translate(address uint64, length uint32, writable bool) ([]byte, bool) {
	if r.buf == nil {
		return nil, false
	}
	if address < r.base {
		return nil, false
	}
	offset := address - r.base
	end := offset + uint64(length)
	if end < offset || end > uint64(len(r.buf)) {
		return nil, false
	}
	if writable {
		for _, s := range r.readOnly {
			if address < s.end && address+uint64(length) > s.start {
				return nil, false
			}
		}
	}
	return r.buf[offset:end:end], true
}

// Close releases the mapping. The region and every slice previously returned
// by [Region.Translate] must no longer be used.
func (r *Region) Close() error {
	if r.buf == nil {
		return ErrRegionClosed
	}
	buf := r.buf
	r.buf = nil
	if err := unix.Munmap(buf); err != nil {
		return fmt.Errorf("release guest memory: %w", err)
	}
	return nil
}
