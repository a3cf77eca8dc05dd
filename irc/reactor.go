package irc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Interest is a bitmask over the readiness conditions a descriptor is
// registered for.
type Interest uint32

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

// Event is one readiness notification returned by Wait
type Event struct {
	FD       int
	Readable bool
	Writable bool
	Closed   bool // error or hang-up; the descriptor should be disconnected
}

// Poller is the readiness-notification facility the server loop blocks on.
// All registrations are edge-triggered: an event fires on the transition
// into readiness, and consumers must drain until the kernel signals
// exhaustion.
type Poller interface {
	Add(fd int, interest Interest) error
	Modify(fd int, interest Interest) error
	Remove(fd int) error
	Wait(events []Event, timeoutMs int) (int, error)
	Close() error
}

type epollPoller struct {
	epfd int
	buf  []unix.EpollEvent
}

// NewPoller creates an epoll-backed Poller
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &epollPoller{epfd: epfd}, nil
}

func epollEvents(interest Interest) uint32 {
	events := uint32(unix.EPOLLET | unix.EPOLLRDHUP)
	if interest&InterestRead != 0 {
		events |= unix.EPOLLIN
	}
	if interest&InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func (p *epollPoller) Add(fd int, interest Interest) error {
	event := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		return fmt.Errorf("epoll_ctl add fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Modify(fd int, interest Interest) error {
	event := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &event); err != nil {
		return fmt.Errorf("epoll_ctl mod fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Wait blocks until at least one event arrives or the timeout elapses.
// A wait interrupted by signal delivery is retried.
func (p *epollPoller) Wait(events []Event, timeoutMs int) (int, error) {
	if len(p.buf) < len(events) {
		p.buf = make([]unix.EpollEvent, len(events))
	}

	for {
		n, err := unix.EpollWait(p.epfd, p.buf[:len(events)], timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			raw := p.buf[i]
			events[i] = Event{
				FD:       int(raw.Fd),
				Readable: raw.Events&unix.EPOLLIN != 0,
				Writable: raw.Events&unix.EPOLLOUT != 0,
				Closed:   raw.Events&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
			}
		}
		return n, nil
	}
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
