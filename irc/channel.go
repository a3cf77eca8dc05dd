package irc

import (
	"strconv"
	"strings"
)

// Channel represents one named conversation. Members, operators, and
// pending invitations are sets of user descriptors; users are never held
// by reference, so removing a user can never leave a dangling handle.
type Channel struct {
	name  string // original case, echoed back to clients
	topic string

	members   map[int]bool
	operators map[int]bool
	invited   map[int]bool

	inviteOnly      bool
	topicRestricted bool // default true; only operators may change topic
	userLimit       int  // 0 means no limit
	key             string
}

func newChannel(name string) *Channel {
	return &Channel{
		name:            name,
		members:         make(map[int]bool),
		operators:       make(map[int]bool),
		invited:         make(map[int]bool),
		topicRestricted: true,
	}
}

// removeMember drops a descriptor from every set the channel keeps
func (ch *Channel) removeMember(fd int) {
	delete(ch.members, fd)
	delete(ch.operators, fd)
	delete(ch.invited, fd)
}

// modeParams returns the current mode string and its arguments, in the
// order the letters appear, for the 324 reply
func (ch *Channel) modeParams() []string {
	modes := "+"
	var args []string

	if ch.inviteOnly {
		modes += "i"
	}
	if ch.topicRestricted {
		modes += "t"
	}
	if ch.key != "" {
		modes += "k"
		args = append(args, ch.key)
	}
	if ch.userLimit > 0 {
		modes += "l"
		args = append(args, strconv.Itoa(ch.userLimit))
	}

	return append([]string{modes}, args...)
}

// isChannelTarget reports whether a message target names a channel
func isChannelTarget(target string) bool {
	return strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&")
}
