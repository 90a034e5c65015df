package vring

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// The struct is stored into the used ring in guest memory as-is, so its size
// and field offsets must match the wire layout exactly.
func TestUsedElementMemoryLayout(t *testing.T) {
	assert.EqualValues(t, usedElementSize, unsafe.Sizeof(UsedElement{}))
	assert.EqualValues(t, 0, unsafe.Offsetof(UsedElement{}.DescriptorIndex))
	assert.EqualValues(t, 4, unsafe.Offsetof(UsedElement{}.Length))
}
