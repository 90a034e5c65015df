package vring

import "sync/atomic"

// fenceWord exists only to give fence an address to operate on.
var fenceWord uint32

// fence is a full memory barrier. The atomic read-modify-write compiles to a
// locked instruction on amd64 and a sequentially consistent LDADDAL on arm64,
// both of which order all earlier loads and stores before all later ones.
//
// The acquire/release pairs on the ring index words cover the regular
// slot/index handoffs. A full fence is still needed at the two store-then-load
// points of the notification protocol: after arming avail_event (or clearing
// the no-notify flag) and before re-reading the available index, and after
// publishing the used index and before reading the driver's suppression
// state. Without it, the store and the load may be reordered against each
// other and a notification can be lost on both sides at once.
func fence() {
	atomic.AddUint32(&fenceWord, 0)
}
