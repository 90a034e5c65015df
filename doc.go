// Package vring implements the device-side of a split virtqueue as described
// in the specification:
// https://docs.oasis-open.org/virtio/virtio/v1.2/csd01/virtio-v1.2-csd01.html#x1-270006
// The driver (guest) owns the ring memory and publishes descriptor chains on
// the available ring; this package consumes them, resolves the referenced
// buffers through a caller-supplied address translator and publishes
// completions on the used ring. It does not make assumptions about how the
// ring addresses were negotiated or how notifications are delivered. It only
// decides whether a notification is warranted.
//
// Everything the guest can write is treated as hostile: every index,
// descriptor and address is validated before use, and the first violation
// permanently breaks the queue.
package vring
