//go:build linux

// Package eventfd wraps the Linux eventfd and epoll syscalls into the two
// signalling primitives a virtqueue deployment needs: a kick descriptor the
// driver writes to ring the device's doorbell, and a call descriptor the
// device writes to inject an interrupt. The queue engine itself only decides
// whether to signal; this package is how the decision leaves the process.
package eventfd

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// EventFD is a host event file descriptor counter.
type EventFD struct {
	fd int
}

// New creates a non-blocking event file descriptor.
// Remember to call [EventFD.Close] after use.
func New() (EventFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return EventFD{}, fmt.Errorf("create eventfd: %w", err)
	}
	return EventFD{fd: fd}, nil
}

// Kick increments the event counter, waking up whoever waits on the
// descriptor.
func (e EventFD) Kick() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(e.fd, buf[:]); err != nil {
		return fmt.Errorf("kick eventfd %d: %w", e.fd, err)
	}
	return nil
}

// Ack consumes the pending event count and returns it. On a non-blocking
// descriptor with no pending events it returns zero.
func (e EventFD) Ack() (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(e.fd, buf[:])
	if err == unix.EAGAIN {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ack eventfd %d: %w", e.fd, err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("ack eventfd %d: short read of %d bytes", e.fd, n)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// FD returns the raw file descriptor, for registration with a poller or for
// handing to a kernel device. Use it with care to not interfere with this
// implementation.
func (e EventFD) FD() int {
	return e.fd
}

// Close releases the descriptor.
func (e EventFD) Close() error {
	if e.fd == 0 {
		return nil
	}
	return unix.Close(e.fd)
}

// Epoll waits for one or more [EventFD]s to be kicked.
type Epoll struct {
	fd     int
	events []unix.EpollEvent
}

// NewEpoll creates an epoll instance.
// Remember to call [Epoll.Close] after use.
func NewEpoll() (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("create epoll: %w", err)
	}
	return &Epoll{
		fd:     fd,
		events: make([]unix.EpollEvent, 1),
	}, nil
}

// Add registers an event file descriptor with the poller.
func (ep *Epoll) Add(e EventFD) error {
	event := unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(e.FD()),
	}
	if err := unix.EpollCtl(ep.fd, unix.EPOLL_CTL_ADD, e.FD(), &event); err != nil {
		return fmt.Errorf("add eventfd %d to epoll: %w", e.FD(), err)
	}
	return nil
}

// Wait blocks until a registered descriptor is kicked and returns its raw
// file descriptor. Interruptions by signals are retried.
func (ep *Epoll) Wait() (int, error) {
	for {
		n, err := unix.EpollWait(ep.fd, ep.events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, fmt.Errorf("epoll wait: %w", err)
		}
		if n > 0 {
			return int(ep.events[0].Fd), nil
		}
	}
}

// Close releases the epoll instance. Registered descriptors are unaffected.
func (ep *Epoll) Close() error {
	if ep.fd == 0 {
		return nil
	}
	return unix.Close(ep.fd)
}
