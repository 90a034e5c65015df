package vring

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/slackhq/vring/virtio"
)

type optionValues struct {
	queueSize      int
	ringAddress    uint64
	haveRingAddr   bool
	ringAlign      int
	features       virtio.Feature
	logger         *logrus.Logger
	metricsEnabled bool
}

func (o *optionValues) apply(options []Option) {
	for _, option := range options {
		option(o)
	}
}

func (o *optionValues) validate() error {
	if o.queueSize == -1 {
		return errors.New("queue size is required")
	}
	if err := CheckQueueSize(o.queueSize); err != nil {
		return err
	}
	if !o.haveRingAddr {
		return errors.New("ring address is required")
	}
	return checkRingAlign(o.ringAlign)
}

var optionDefaults = optionValues{
	// Required.
	queueSize: -1,
	ringAlign: defaultRingAlign,
}

// Option can be passed to [NewQueue] to influence queue creation.
type Option func(*optionValues)

// WithQueueSize returns an [Option] that sets the size of the queue, which is
// the number of descriptors the ring structures hold. This is required and
// must be an integer from 1 to 32768 that is also a power of 2. It must match
// the size the device model reported to the driver.
func WithQueueSize(queueSize int) Option {
	return func(o *optionValues) { o.queueSize = queueSize }
}

// WithRingAddress returns an [Option] that sets the guest-physical address of
// the ring region the driver laid out: descriptor table, available ring and
// used ring. This is required.
func WithRingAddress(address uint64) Option {
	return func(o *optionValues) {
		o.ringAddress = address
		o.haveRingAddr = true
	}
}

// WithRingAlign returns an [Option] that sets the alignment of the used ring
// within the ring region. Defaults to 4096, which is what the legacy
// interface mandates. Must be a power of 2.
func WithRingAlign(align int) Option {
	return func(o *optionValues) { o.ringAlign = align }
}

// WithFeatures returns an [Option] that sets the feature bits the device
// model negotiated with the driver. The engine honors
// [virtio.FeatureEventIdx] and [virtio.FeatureNotifyOnEmpty]; other bits are
// carried but ignored.
func WithFeatures(features virtio.Feature) Option {
	return func(o *optionValues) { o.features = features }
}

// WithLogger returns an [Option] that sets the logger used to report guest
// protocol violations. Defaults to the logrus standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *optionValues) { o.logger = l }
}

// WithMetrics returns an [Option] that enables go-metrics counters for
// chains, completions and notification decisions.
func WithMetrics(enabled bool) Option {
	return func(o *optionValues) { o.metricsEnabled = enabled }
}
