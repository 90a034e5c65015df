// Package virtio holds device-independent virtio protocol constants shared by
// queue implementations and device models.
package virtio

// Feature contains feature bits that describe a virtio device or driver.
type Feature uint64

// Device-independent feature bits.
//
// Source: https://docs.oasis-open.org/virtio/virtio/v1.2/csd01/virtio-v1.2-csd01.html#x1-6600006
const (
	// FeatureNotifyOnEmpty indicates that the device will notify the driver
	// after it used the last available descriptor chain, even when
	// interrupts are suppressed. Legacy interface only.
	FeatureNotifyOnEmpty Feature = 1 << 24

	// FeatureIndirectDescriptors indicates that the driver can use
	// descriptors with an additional layer of indirection.
	FeatureIndirectDescriptors Feature = 1 << 28

	// FeatureEventIdx enables the used_event and avail_event fields: instead
	// of the coarse interrupt/notification suppression flags, each side
	// publishes the ring index at which it next wants to be signalled.
	FeatureEventIdx Feature = 1 << 29

	// FeatureVersion1 indicates compliance with version 1.0 of the virtio
	// specification.
	FeatureVersion1 Feature = 1 << 32
)

// Has returns true when all bits of other are set in f.
func (f Feature) Has(other Feature) bool {
	return f&other == other
}
