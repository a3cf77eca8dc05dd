package irc

import (
	"bytes"
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	// Transient read chunk size per read(2) call
	readChunkSize = 4096

	// Hard cap on accumulated unframed input per user
	maxReadBuffer = 8192

	// Cap on the pending write buffer; a peer slower than this is dropped
	maxWriteBuffer = 64 * 1024

	// EOT (Ctrl-D) bytes are stripped from the input stream
	eotByte = 0x04
)

// Syscall indirection for unit tests
var (
	sysRead = unix.Read
	sysSend = func(fd int, p []byte) (int, error) {
		return unix.SendmsgN(fd, p, nil, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
	}
	sysClose = unix.Close
)

// ioResult classifies the outcome of draining a descriptor
type ioResult int

const (
	ioDrained ioResult = iota // kernel exhausted, connection healthy
	ioClosed                  // peer closed cleanly
	ioError                   // non-retriable error or buffer cap exceeded
)

// User represents one connected client
type User struct {
	fd       int
	ip       string
	nickname string
	username string
	realname string

	readBuf  []byte
	writeBuf []byte

	// True when write-interest is currently armed in the poller
	writeArmed bool

	authenticated bool
	registered    bool

	// Case-folded names of joined channels
	channels map[string]bool
}

func newUser(fd int, ip string) *User {
	return &User{
		fd:       fd,
		ip:       ip,
		channels: make(map[string]bool),
	}
}

// prefix returns the nick!user@ip source prefix for command echoes.
// Unregistered users echo with * in place of the nickname.
func (u *User) prefix() string {
	nick := u.nickname
	if nick == "" {
		nick = "*"
	}
	return fmt.Sprintf("%s!%s@%s", nick, u.username, u.ip)
}

// readInput drains the descriptor into the read buffer. Embedded EOT bytes
// are stripped as they arrive so a client pressing Ctrl-D cannot poison the
// stream. Exceeding the accumulation cap is an error; the caller
// disconnects the user.
func (u *User) readInput() ioResult {
	chunk := make([]byte, readChunkSize)

	for {
		n, err := sysRead(u.fd, chunk)
		if n > 0 {
			u.readBuf = append(u.readBuf, stripEOT(chunk[:n])...)
			if len(u.readBuf) > maxReadBuffer {
				return ioError
			}
			continue
		}
		if err == nil {
			return ioClosed
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return ioDrained
		}
		if err == unix.EINTR {
			continue
		}
		return ioError
	}
}

// flushWrites sends from the front of the write buffer until it empties or
// the kernel refuses. A partial send advances the buffer; the remainder
// stays pending and keeps write-interest armed.
func (u *User) flushWrites() ioResult {
	for len(u.writeBuf) > 0 {
		n, err := sysSend(u.fd, u.writeBuf)
		if n > 0 {
			u.writeBuf = u.writeBuf[n:]
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return ioDrained
			}
			if err == unix.EINTR {
				continue
			}
			return ioError
		}
	}
	return ioDrained
}

// queue appends one line plus CRLF to the write buffer and reports whether
// the buffer transitioned from empty to non-empty.
func (u *User) queue(line string) bool {
	wasEmpty := len(u.writeBuf) == 0
	u.writeBuf = append(u.writeBuf, line...)
	u.writeBuf = append(u.writeBuf, '\r', '\n')
	return wasEmpty
}

// nextLines extracts every complete CRLF-terminated line from the read
// buffer. Empty lines are discarded.
func (u *User) nextLines() []string {
	var lines []string

	for {
		idx := bytes.Index(u.readBuf, []byte("\r\n"))
		if idx < 0 {
			break
		}
		line := string(u.readBuf[:idx])
		u.readBuf = u.readBuf[idx+2:]
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(u.readBuf) == 0 {
		u.readBuf = nil
	}
	return lines
}

func stripEOT(chunk []byte) []byte {
	if !bytes.ContainsRune(chunk, eotByte) {
		return chunk
	}

	out := chunk[:0]
	for _, b := range chunk {
		if b != eotByte {
			out = append(out, b)
		}
	}
	return out
}
