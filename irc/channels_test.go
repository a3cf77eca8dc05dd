package irc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCreatesChannel(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	f.clear()

	s.handleLine(alice, "JOIN #team")

	assert.Contains(t, f.lines(5), ":alice!alice@127.0.0.1 JOIN #team")
	channel := s.channels["#team"]
	require.NotNil(t, channel)
	assert.True(t, channel.operators[5], "the creator becomes operator")
	assert.True(t, channel.topicRestricted, "channels start +t")
	checkInvariants(t, s)
}

func TestJoinBroadcastsToMembers(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(bob, "JOIN #team")

	want := ":bob!bob@127.0.0.1 JOIN #team"
	assert.Contains(t, f.lines(5), want, "existing members see the join")
	assert.Contains(t, f.lines(6), want, "the joiner sees their own join")
	assert.False(t, s.channels["#team"].operators[6], "later joiners are not operators")
	checkInvariants(t, s)
}

func TestJoinIsIdempotent(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(alice, "JOIN #team")
	assert.Empty(t, f.lines(5), "re-joining produces nothing")
}

func TestJoinInvalidName(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	f.clear()

	s.handleLine(alice, "JOIN team")
	assert.Contains(t, f.lines(5), ":ft_irc 403 alice team :No such channel")
	assert.Empty(t, s.channels)
}

func TestJoinInviteOnly(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #priv")
	s.handleLine(alice, "MODE #priv +i")
	f.clear()

	s.handleLine(bob, "JOIN #priv")
	assert.Contains(t, f.lines(6), ":ft_irc 473 bob #priv :Cannot join channel (+i)")
	assert.False(t, s.channels["#priv"].members[6])

	// An invitation opens the door exactly once
	s.handleLine(alice, "INVITE bob #priv")
	s.handleLine(bob, "JOIN #priv")
	assert.True(t, s.channels["#priv"].members[6])
	assert.False(t, s.channels["#priv"].invited[6], "invitation consumed on join")
	checkInvariants(t, s)
}

func TestJoinWithKey(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #locked")
	s.handleLine(alice, "MODE #locked +k hunter2")
	f.clear()

	s.handleLine(bob, "JOIN #locked")
	assert.Contains(t, f.lines(6), ":ft_irc 475 bob #locked :Cannot join channel (+k)")

	s.handleLine(bob, "JOIN #locked wrongkey")
	assert.Contains(t, f.lines(6), ":ft_irc 475 bob #locked :Cannot join channel (+k)")

	s.handleLine(bob, "JOIN #locked hunter2")
	assert.True(t, s.channels["#locked"].members[6])
}

func TestJoinUserLimit(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	carol := register(t, s, 7, "carol")
	s.handleLine(alice, "JOIN #small")
	s.handleLine(alice, "MODE #small +l 2")
	s.handleLine(bob, "JOIN #small")
	f.clear()

	s.handleLine(carol, "JOIN #small")
	assert.Contains(t, f.lines(7), ":ft_irc 471 carol #small :Cannot join channel (+l)")
	assert.False(t, s.channels["#small"].members[7])
}

func TestPartBroadcastsBeforeRemoval(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(alice, "PART #team :gotta go")

	want := ":alice!alice@127.0.0.1 PART #team :gotta go"
	assert.Contains(t, f.lines(5), want, "the actor sees their own part")
	assert.Contains(t, f.lines(6), want)
	assert.False(t, s.channels["#team"].members[5])
	checkInvariants(t, s)
}

func TestPartLastMemberDestroysChannel(t *testing.T) {
	s, _ := newTestServer(t)
	alice := register(t, s, 5, "alice")
	s.handleLine(alice, "JOIN #team")

	s.handleLine(alice, "PART #team")
	_, exists := s.channels["#team"]
	assert.False(t, exists)
	assert.Empty(t, alice.channels)
}

func TestPartErrors(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(alice, "PART #nowhere")
	assert.Contains(t, f.lines(5), ":ft_irc 403 alice #nowhere :No such channel")

	s.handleLine(bob, "PART #team")
	assert.Contains(t, f.lines(6), ":ft_irc 442 bob #team :You're not on that channel")
}

func TestPrivmsgChannelExcludesSender(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	carol := register(t, s, 7, "carol")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	s.handleLine(carol, "JOIN #team")
	f.clear()

	s.handleLine(alice, "PRIVMSG #team :hello everyone")

	want := ":alice!alice@127.0.0.1 PRIVMSG #team :hello everyone"
	assert.NotContains(t, f.lines(5), want, "no echo to the sender")
	assert.Contains(t, f.lines(6), want)
	assert.Contains(t, f.lines(7), want)
}

func TestPrivmsgDirect(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	register(t, s, 6, "bob")
	f.clear()

	s.handleLine(alice, "PRIVMSG bob :psst over here")
	assert.Contains(t, f.lines(6), ":alice!alice@127.0.0.1 PRIVMSG bob :psst over here")
	assert.Empty(t, f.lines(5))
}

func TestPrivmsgErrors(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(alice, "PRIVMSG nobody :anyone there")
	assert.Contains(t, f.lines(5), ":ft_irc 401 alice nobody :No such nick/channel")

	s.handleLine(alice, "PRIVMSG #nowhere :anyone there")
	assert.Contains(t, f.lines(5), ":ft_irc 401 alice #nowhere :No such nick/channel")

	s.handleLine(alice, "PRIVMSG #team :not a member")
	assert.Contains(t, f.lines(5), ":ft_irc 404 alice #team :Cannot send to channel")

	s.handleLine(alice, "PRIVMSG")
	assert.Contains(t, f.lines(5), ":ft_irc 461 alice PRIVMSG :Not enough parameters")
}

func TestNoticeNeverReplies(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	register(t, s, 6, "bob")
	f.clear()

	s.handleLine(alice, "NOTICE nobody :hello there")
	s.handleLine(alice, "NOTICE #nowhere :hello there")
	s.handleLine(alice, "NOTICE")
	assert.Empty(t, f.lines(5), "NOTICE generates no error replies")

	s.handleLine(alice, "NOTICE bob :direct notice here")
	assert.Contains(t, f.lines(6), ":alice!alice@127.0.0.1 NOTICE bob :direct notice here")
}

func TestTopicQueryAndSet(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(alice, "TOPIC #team")
	assert.Contains(t, f.lines(5), ":ft_irc 331 alice #team :No topic is set")

	s.handleLine(alice, "TOPIC #team :release on friday")
	want := ":alice!alice@127.0.0.1 TOPIC #team :release on friday"
	assert.Contains(t, f.lines(5), want, "setter sees the broadcast")
	assert.Contains(t, f.lines(6), want)

	s.handleLine(bob, "TOPIC #team")
	assert.Contains(t, f.lines(6), ":ft_irc 332 bob #team :release on friday")
}

func TestTopicRestrictedToOperators(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	// +t is the default, so bob may not set
	s.handleLine(bob, "TOPIC #team :bob was here")
	assert.Contains(t, f.lines(6), ":ft_irc 482 bob #team :You're not channel operator")
	assert.Empty(t, s.channels["#team"].topic)

	// After -t anyone may set
	s.handleLine(alice, "MODE #team -t")
	s.handleLine(bob, "TOPIC #team :bob was here")
	assert.Equal(t, "bob was here", s.channels["#team"].topic)
}

func TestTopicErrors(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(alice, "TOPIC #nowhere")
	assert.Contains(t, f.lines(5), ":ft_irc 403 alice #nowhere :No such channel")

	s.handleLine(bob, "TOPIC #team")
	assert.Contains(t, f.lines(6), ":ft_irc 442 bob #team :You're not on that channel")
}

func TestInviteFlow(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(alice, "INVITE bob #team")
	assert.Contains(t, f.lines(5), ":ft_irc 341 alice bob #team")
	assert.Contains(t, f.lines(6), ":alice!alice@127.0.0.1 INVITE bob #team")
	assert.True(t, s.channels["#team"].invited[6])
}

func TestInviteErrors(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	carol := register(t, s, 7, "carol")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(alice, "INVITE nobody #team")
	assert.Contains(t, f.lines(5), ":ft_irc 401 alice nobody :No such nick/channel")

	s.handleLine(alice, "INVITE bob #team")
	assert.Contains(t, f.lines(5), ":ft_irc 443 alice bob #team :is already on channel")

	s.handleLine(carol, "INVITE bob #team")
	assert.Contains(t, f.lines(7), ":ft_irc 442 carol #team :You're not on that channel")

	// On +i channels only operators may invite
	s.handleLine(alice, "MODE #team +i")
	s.handleLine(bob, "INVITE carol #team")
	assert.Contains(t, f.lines(6), ":ft_irc 482 bob #team :You're not channel operator")
}

func TestKickBroadcastsToTarget(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	carol := register(t, s, 7, "carol")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	s.handleLine(carol, "JOIN #team")
	f.clear()

	s.handleLine(alice, "KICK #team bob :enough of that")

	want := ":alice!alice@127.0.0.1 KICK #team bob :enough of that"
	assert.Contains(t, f.lines(5), want)
	assert.Contains(t, f.lines(6), want, "the target sees their own kick")
	assert.Contains(t, f.lines(7), want)
	assert.False(t, s.channels["#team"].members[6])
	assert.Empty(t, bob.channels)
	checkInvariants(t, s)
}

func TestKickDefaultsReasonless(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(alice, "KICK #team bob")
	assert.Contains(t, f.lines(6), ":alice!alice@127.0.0.1 KICK #team bob")
}

func TestKickErrors(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	register(t, s, 7, "carol")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(bob, "KICK #team alice")
	assert.Contains(t, f.lines(6), ":ft_irc 482 bob #team :You're not channel operator")

	s.handleLine(alice, "KICK #team carol")
	assert.Contains(t, f.lines(5), ":ft_irc 441 alice carol #team :They aren't on that channel")

	s.handleLine(alice, "KICK #team nobody")
	assert.Contains(t, f.lines(5), ":ft_irc 441 alice nobody #team :They aren't on that channel")

	s.handleLine(alice, "KICK #nowhere bob")
	assert.Contains(t, f.lines(5), ":ft_irc 403 alice #nowhere :No such channel")
}

func TestModeQuery(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(alice, "MODE #team")
	assert.Equal(t, []string{":ft_irc 324 alice #team +t"}, f.lines(5))

	s.handleLine(alice, "MODE #team +k hunter2")
	s.handleLine(alice, "MODE #team +l 10")
	f.clear()

	s.handleLine(alice, "MODE #team")
	assert.Equal(t, []string{":ft_irc 324 alice #team +tkl hunter2 10"}, f.lines(5))
}

func TestModeToggleAndBroadcast(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(alice, "MODE #team +i")
	want := ":alice!alice@127.0.0.1 MODE #team +i"
	assert.Contains(t, f.lines(5), want)
	assert.Contains(t, f.lines(6), want)
	assert.True(t, s.channels["#team"].inviteOnly)

	s.handleLine(alice, "MODE #team -i")
	assert.False(t, s.channels["#team"].inviteOnly)
}

func TestModeSignFlipping(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(alice, "MODE #team +i-t+l 5")

	channel := s.channels["#team"]
	assert.True(t, channel.inviteOnly)
	assert.False(t, channel.topicRestricted)
	assert.Equal(t, 5, channel.userLimit)
	assert.Contains(t, f.lines(5), ":alice!alice@127.0.0.1 MODE #team +i-t+l 5")
}

func TestModeUnknownLetterContinues(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(alice, "MODE #team +ix")

	assert.Contains(t, f.lines(5), ":ft_irc 472 alice x :is unknown mode char to me")
	assert.Contains(t, f.lines(5), ":alice!alice@127.0.0.1 MODE #team +i", "applied letters still broadcast")
	assert.True(t, s.channels["#team"].inviteOnly)
}

func TestModeKeyValidation(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	badKey := strings.Repeat("k", 24)
	s.handleLine(alice, "MODE #team +k "+badKey)
	assert.Contains(t, f.lines(5), ":ft_irc 696 alice #team k "+badKey+" :Invalid channel key")
	assert.Empty(t, s.channels["#team"].key)

	s.handleLine(alice, "MODE #team +k hunter2")
	assert.Equal(t, "hunter2", s.channels["#team"].key)

	s.handleLine(alice, "MODE #team -k")
	assert.Empty(t, s.channels["#team"].key)
}

func TestModeLimitValidation(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	s.handleLine(alice, "MODE #team +l notanumber")
	assert.Contains(t, f.lines(5), ":ft_irc 696 alice #team l notanumber :Invalid limit")

	s.handleLine(alice, "MODE #team +l -3")
	assert.Contains(t, f.lines(5), ":ft_irc 696 alice #team l -3 :Invalid limit")

	f.clear()
	s.handleLine(alice, "MODE #team +l 0")
	assert.Empty(t, f.lines(5), "a zero limit changes nothing")
	assert.Equal(t, 0, s.channels["#team"].userLimit)
}

func TestModeMissingArgContinues(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	s.handleLine(alice, "JOIN #team")
	f.clear()

	// k consumes no argument, so it errors; i still applies
	s.handleLine(alice, "MODE #team +ki")
	assert.Contains(t, f.lines(5), ":ft_irc 461 alice MODE :Not enough parameters")
	assert.Contains(t, f.lines(5), ":alice!alice@127.0.0.1 MODE #team +i")
	assert.True(t, s.channels["#team"].inviteOnly)
}

func TestModeOperatorGrantAndRevoke(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(alice, "MODE #team +o bob")
	assert.True(t, s.channels["#team"].operators[6])
	assert.Contains(t, f.lines(6), ":alice!alice@127.0.0.1 MODE #team +o bob")

	s.handleLine(alice, "MODE #team -o bob")
	assert.False(t, s.channels["#team"].operators[6])

	s.handleLine(alice, "MODE #team +o nobody")
	assert.Contains(t, f.lines(5), ":ft_irc 441 alice nobody #team :They aren't on that channel")
	checkInvariants(t, s)
}

func TestModeSoleOperatorCannotDeopSelf(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(alice, "MODE #team -o alice")
	assert.Contains(t, f.lines(5), ":ft_irc 482 alice #team :You're not channel operator")
	assert.True(t, s.channels["#team"].operators[5], "the sole operator keeps the flag")

	// With a second operator the self-deop goes through
	s.handleLine(alice, "MODE #team +o bob")
	s.handleLine(alice, "MODE #team -o alice")
	assert.False(t, s.channels["#team"].operators[5])
	checkInvariants(t, s)
}

func TestModePermissions(t *testing.T) {
	s, f := newTestServer(t)
	alice := register(t, s, 5, "alice")
	bob := register(t, s, 6, "bob")
	carol := register(t, s, 7, "carol")
	s.handleLine(alice, "JOIN #team")
	s.handleLine(bob, "JOIN #team")
	f.clear()

	s.handleLine(bob, "MODE #team +i")
	assert.Contains(t, f.lines(6), ":ft_irc 482 bob #team :You're not channel operator")
	assert.False(t, s.channels["#team"].inviteOnly)

	s.handleLine(carol, "MODE #team +i")
	assert.Contains(t, f.lines(7), ":ft_irc 442 carol #team :You're not on that channel")

	// Mode queries are open to anyone, member or not
	f.clear()
	s.handleLine(carol, "MODE #team")
	assert.Contains(t, f.lines(7), ":ft_irc 324 carol #team +t")

	s.handleLine(alice, "MODE nickname +i")
	assert.Contains(t, f.lines(5), ":ft_irc 403 alice nickname :No such channel")
}
