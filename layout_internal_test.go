package vring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckQueueSize(t *testing.T) {
	tests := []struct {
		queueSize int
		valid     bool
	}{
		{queueSize: -1, valid: false},
		{queueSize: 0, valid: false},
		{queueSize: 1, valid: true},
		{queueSize: 3, valid: false},
		{queueSize: 8, valid: true},
		{queueSize: 24, valid: false},
		{queueSize: 256, valid: true},
		{queueSize: 32768, valid: true},
		{queueSize: 40000, valid: false},
		{queueSize: 65536, valid: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.queueSize), func(t *testing.T) {
			err := CheckQueueSize(tt.queueSize)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrQueueSizeInvalid)
			}
		})
	}
}

func TestCheckRingAlign(t *testing.T) {
	assert.NoError(t, checkRingAlign(4))
	assert.NoError(t, checkRingAlign(4096))
	assert.ErrorIs(t, checkRingAlign(0), ErrRingAlignInvalid)
	assert.ErrorIs(t, checkRingAlign(2), ErrRingAlignInvalid)
	assert.ErrorIs(t, checkRingAlign(24), ErrRingAlignInvalid)
}

func TestRingLayout(t *testing.T) {
	// The example layout from the legacy interface documentation: a queue of
	// 256 descriptors with page alignment.
	assert.Equal(t, 4096, descriptorTableSize(256))
	assert.Equal(t, 518, availableRingSize(256))
	assert.Equal(t, 2054, usedRingSize(256))
	assert.Equal(t, 8192, usedRingOffset(256, 4096))
	assert.Equal(t, 10246, ringSize(256, 4096))

	// A small queue still pads the used ring to the alignment boundary.
	assert.Equal(t, 128, descriptorTableSize(8))
	assert.Equal(t, 22, availableRingSize(8))
	assert.Equal(t, 70, usedRingSize(8))
	assert.Equal(t, 4096, usedRingOffset(8, 4096))
	assert.Equal(t, 152, usedRingOffset(8, 4))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, alignUp(0, 4096))
	assert.Equal(t, 4096, alignUp(1, 4096))
	assert.Equal(t, 4096, alignUp(4096, 4096))
	assert.Equal(t, 8192, alignUp(4097, 4096))
}
