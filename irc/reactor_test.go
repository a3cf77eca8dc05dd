package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestPipe(t *testing.T) (int, int) {
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPollerReadable(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	r, w := newTestPipe(t)
	require.NoError(t, p.Add(r, InterestRead))

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	events := make([]Event, 8)
	n, err := p.Wait(events, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, r, events[0].FD)
	assert.True(t, events[0].Readable)
	assert.False(t, events[0].Writable)

	// Edge-triggered: no further event until new bytes arrive
	n, err = p.Wait(events, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPollerWritable(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	_, w := newTestPipe(t)
	require.NoError(t, p.Add(w, InterestWrite))

	events := make([]Event, 8)
	n, err := p.Wait(events, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, w, events[0].FD)
	assert.True(t, events[0].Writable)
}

func TestPollerModify(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	_, w := newTestPipe(t)
	require.NoError(t, p.Add(w, InterestRead))

	events := make([]Event, 8)
	n, err := p.Wait(events, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "write end is not readable")

	require.NoError(t, p.Modify(w, InterestRead|InterestWrite))
	n, err = p.Wait(events, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.True(t, events[0].Writable)
}

func TestPollerRemove(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	r, w := newTestPipe(t)
	require.NoError(t, p.Add(r, InterestRead))
	require.NoError(t, p.Remove(r))

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	events := make([]Event, 8)
	n, err := p.Wait(events, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "removed descriptor reports nothing")

	assert.Error(t, p.Remove(r), "double remove fails")
}

func TestPollerHangup(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	r, w := newTestPipe(t)
	require.NoError(t, p.Add(r, InterestRead))

	require.NoError(t, unix.Close(w))

	events := make([]Event, 8)
	n, err := p.Wait(events, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.True(t, events[0].Closed, "peer close reports hang-up")
}
