package vring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapDelta(t *testing.T) {
	assert.Equal(t, uint16(0), wrapDelta(5, 5))
	assert.Equal(t, uint16(3), wrapDelta(8, 5))
	assert.Equal(t, uint16(2), wrapDelta(0x0001, 0xffff))
	assert.Equal(t, uint16(1), wrapDelta(0x0000, 0xffff))
	assert.Equal(t, uint16(0xffff), wrapDelta(0xffff, 0x0000))
}

func TestNeedEvent(t *testing.T) {
	tests := []struct {
		name                  string
		event, newIdx, oldIdx uint16
		want                  bool
	}{
		{"index moved past the event", 0, 1, 0, true},
		{"event not reached yet", 1, 1, 0, false},
		{"event just reached", 1, 2, 0, true},
		{"event inside a batch", 5, 10, 0, true},
		{"event before the batch", 5, 10, 6, false},
		{"empty window", 0, 0, 0, false},
		{"wrap through zero", 0xffff, 0x0000, 0xffff, true},
		{"wide window across the wrap", 0xfffe, 0x0002, 0xfffc, true},
		{"event outside window across the wrap", 0x0002, 0x0002, 0xfffc, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needEvent(tt.event, tt.newIdx, tt.oldIdx))
		})
	}
}
