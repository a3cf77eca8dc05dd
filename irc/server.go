package irc

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ftirc/ircserv/irc/config"
)

const (
	serverVersion = "1.0"
	serverCreated = "2025"

	// User modes and channel modes advertised in the 004 reply
	userModes    = "io"
	channelModes = "itkol"

	// Reactor wait timeout; bounds shutdown latency when idle
	waitTimeoutMs = 30000

	// Wait batch size
	maxEvents = 64
)

// ServerStats tracks in-process counters, logged on shutdown
type ServerStats struct {
	ConnectionsAccepted int
	PeakUsers           int
	MessagesReceived    int
	MessagesSent        int
}

// Outcome is the dispatch result for one message
type Outcome int

const (
	Continue Outcome = iota
	Disconnect
)

// Server is the whole IRC server: one reactor, one thread, no locks.
// Every map below is owned by the reactor loop and never shared, so
// check-and-set sequences (nickname uniqueness, channel creation) are
// race-free by construction.
type Server struct {
	name string
	cfg  *config.Config

	poller   Poller
	listenFD int

	users    map[int]*User       // keyed by descriptor
	nicks    map[string]int      // case-folded nickname -> descriptor
	channels map[string]*Channel // case-folded name -> channel

	// Descriptors that overflowed a buffer mid-dispatch; reaped between
	// wait batches
	doomed map[int]bool

	shutdown bool
	stats    ServerStats
}

// NewServer creates the poller and the listening socket. The listener is
// non-blocking and registered with read interest; everything else happens
// in Run.
func NewServer(cfg *config.Config) (*Server, error) {
	poller, err := NewPoller()
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		poller.Close()
		return nil, fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		poller.Close()
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	addr := &unix.SockaddrInet4{Port: cfg.Server.Port}
	if ip := net.ParseIP(cfg.Server.Host).To4(); ip != nil {
		copy(addr.Addr[:], ip)
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		poller.Close()
		return nil, fmt.Errorf("bind port %d: %w", cfg.Server.Port, err)
	}

	if err := unix.Listen(fd, cfg.Limits.Backlog); err != nil {
		unix.Close(fd)
		poller.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	if err := poller.Add(fd, InterestRead); err != nil {
		unix.Close(fd)
		poller.Close()
		return nil, err
	}

	return &Server{
		name:     cfg.Server.Name,
		cfg:      cfg,
		poller:   poller,
		listenFD: fd,
		users:    make(map[int]*User),
		nicks:    make(map[string]int),
		channels: make(map[string]*Channel),
		doomed:   make(map[int]bool),
	}, nil
}

// Run blocks in the reactor loop until a termination signal arrives or an
// unrecoverable error occurs. Signal delivery only feeds a channel; the
// loop polls it between waits, so handlers never observe a signal
// mid-flight.
func (s *Server) Run() error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	signal.Ignore(syscall.SIGPIPE)
	defer signal.Stop(sig)

	logSystem().Infof("listening on %s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	events := make([]Event, maxEvents)
	for !s.shutdown {
		select {
		case <-sig:
			s.shutdown = true
			continue
		default:
		}

		n, err := s.poller.Wait(events, waitTimeoutMs)
		if err != nil {
			s.Stop()
			return err
		}

		for i := 0; i < n; i++ {
			event := events[i]

			if event.FD == s.listenFD {
				if err := s.acceptClients(); err != nil {
					s.Stop()
					return err
				}
				continue
			}

			user, ok := s.users[event.FD]
			if !ok {
				// Disconnected earlier in this batch
				continue
			}

			if event.Closed {
				s.disconnect(user, "Connection closed")
				continue
			}
			if event.Readable {
				if s.handleReadable(user) == Disconnect {
					continue
				}
			}
			if event.Writable {
				s.flush(user)
			}
		}

		s.reapDoomed()
	}

	logSystem().Info("shutdown signal received")
	s.Stop()
	return nil
}

// acceptClients drains the listening socket. Connections over the user
// cap are accepted and immediately closed so the backlog cannot wedge.
func (s *Server) acceptClients() error {
	for {
		fd, sa, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return nil
			}
			if err == unix.EINTR || err == unix.ECONNABORTED {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		if len(s.users) >= s.cfg.Limits.MaxClients {
			logConnection().Warnf("user limit %d reached, closing fd %d", s.cfg.Limits.MaxClients, fd)
			sysClose(fd)
			continue
		}

		ip := "unknown"
		if inet4, ok := sa.(*unix.SockaddrInet4); ok {
			ip = net.IP(inet4.Addr[:]).String()
		}

		s.attach(fd, ip)
	}
}

// attach registers a freshly accepted descriptor, creates its User record,
// and sends the greeting notice
func (s *Server) attach(fd int, ip string) *User {
	if err := s.poller.Add(fd, InterestRead); err != nil {
		logConnection().Errorf("register fd %d: %v", fd, err)
		sysClose(fd)
		return nil
	}

	user := newUser(fd, ip)
	s.users[fd] = user
	s.stats.ConnectionsAccepted++
	if len(s.users) > s.stats.PeakUsers {
		s.stats.PeakUsers = len(s.users)
	}

	logConnection().Infof("accepted fd %d from %s", fd, ip)
	s.sendRaw(user, fmt.Sprintf(":%s NOTICE * :Please authenticate with PASS command", s.name))
	return user
}

// handleReadable drains the descriptor, frames complete lines, and
// dispatches each. Dispatch of a QUIT stops processing of any lines the
// client pipelined after it.
func (s *Server) handleReadable(user *User) Outcome {
	result := user.readInput()
	if result == ioClosed {
		s.disconnect(user, "Connection closed")
		return Disconnect
	}
	if result == ioError {
		logConnection().Warnf("read error on fd %d", user.fd)
		s.disconnect(user, "Connection closed")
		return Disconnect
	}

	for _, line := range user.nextLines() {
		if s.handleLine(user, line) == Disconnect {
			return Disconnect
		}
	}
	return Continue
}

// handleLine parses and dispatches one framed line. A malformed line gets
// a single ERROR reply; the connection stays open.
func (s *Server) handleLine(user *User, line string) Outcome {
	s.stats.MessagesReceived++

	msg, err := ParseMessage(line)
	if err != nil {
		logCommand().Warnf("fd %d: %v", user.fd, err)
		s.sendRaw(user, "ERROR :Invalid message format")
		return Continue
	}

	return s.dispatch(user, msg)
}

// sendRaw enqueues one line for a user, flushes immediately when the
// buffer was empty, and arms write-interest for any remainder. A buffer
// over the cap marks the user for disconnection after the current
// dispatch completes, so broadcast iteration is never invalidated.
func (s *Server) sendRaw(user *User, line string) {
	wasEmpty := user.queue(line)
	s.stats.MessagesSent++

	if len(user.writeBuf) > maxWriteBuffer {
		logConnection().Warnf("write buffer overflow on fd %d", user.fd)
		s.doomed[user.fd] = true
		return
	}

	if wasEmpty {
		s.flush(user)
	}
}

// flush drains the write buffer and toggles write-interest to match
// whether anything is still pending
func (s *Server) flush(user *User) {
	if user.flushWrites() == ioError {
		s.doomed[user.fd] = true
		return
	}

	if len(user.writeBuf) > 0 {
		s.armWrite(user)
	} else {
		s.disarmWrite(user)
	}
}

func (s *Server) armWrite(user *User) {
	if user.writeArmed {
		return
	}
	if err := s.poller.Modify(user.fd, InterestRead|InterestWrite); err != nil {
		logNetwork().Errorf("arm write on fd %d: %v", user.fd, err)
		s.doomed[user.fd] = true
		return
	}
	user.writeArmed = true
}

func (s *Server) disarmWrite(user *User) {
	if !user.writeArmed {
		return
	}
	if err := s.poller.Modify(user.fd, InterestRead); err != nil {
		logNetwork().Errorf("disarm write on fd %d: %v", user.fd, err)
		s.doomed[user.fd] = true
		return
	}
	user.writeArmed = false
}

// reapDoomed disconnects users whose transport failed mid-dispatch
func (s *Server) reapDoomed() {
	for fd := range s.doomed {
		delete(s.doomed, fd)
		if user, ok := s.users[fd]; ok {
			s.disconnect(user, "Connection closed")
		}
	}
}

// disconnect removes a user everywhere: QUIT broadcast to peers in shared
// channels (once per observer), channel membership, both indices, the
// poller registration, and the descriptor. Idempotent; safe on a
// partially-registered user.
func (s *Server) disconnect(user *User, reason string) {
	if _, ok := s.users[user.fd]; !ok {
		return
	}
	delete(s.users, user.fd)
	delete(s.doomed, user.fd)

	if user.registered {
		quitLine := fmt.Sprintf(":%s QUIT :%s", user.prefix(), reason)

		notify := make(map[int]bool)
		for name := range user.channels {
			channel, ok := s.channels[name]
			if !ok {
				continue
			}
			for fd := range channel.members {
				if fd != user.fd {
					notify[fd] = true
				}
			}
		}
		for fd := range notify {
			if peer, ok := s.users[fd]; ok {
				s.sendRaw(peer, quitLine)
			}
		}
	}

	for name := range user.channels {
		channel, ok := s.channels[name]
		if !ok {
			continue
		}
		channel.removeMember(user.fd)
		if len(channel.members) == 0 {
			logChannel().Infof("channel %s destroyed", channel.name)
			delete(s.channels, name)
		}
	}

	if user.nickname != "" {
		delete(s.nicks, foldName(user.nickname))
	}

	s.poller.Remove(user.fd)
	sysClose(user.fd)
	logConnection().Infof("fd %d disconnected (%s)", user.fd, reason)
}

// Stop tears the server down leaves-first: every client is disconnected,
// then the listener and the poller are closed
func (s *Server) Stop() {
	for _, user := range s.usersSnapshot() {
		s.disconnect(user, "Server shutting down")
	}

	if s.listenFD >= 0 {
		s.poller.Remove(s.listenFD)
		sysClose(s.listenFD)
		s.listenFD = -1
		s.poller.Close()
	}

	logSystem().Infof("stopped: %d connections accepted, peak %d users, %d messages in, %d out",
		s.stats.ConnectionsAccepted, s.stats.PeakUsers, s.stats.MessagesReceived, s.stats.MessagesSent)
}

func (s *Server) usersSnapshot() []*User {
	users := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	return users
}
