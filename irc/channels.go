package irc

import (
	"strconv"
	"strings"
)

// handleJoin creates the channel on first join (the creator becomes
// operator) and enforces +i, +k, and +l on existing channels
func (s *Server) handleJoin(user *User, params []string) {
	if len(params) < 1 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "JOIN", "Not enough parameters")
		return
	}

	name := params[0]
	var key string
	if len(params) > 1 {
		key = params[1]
	}

	if !isValidChannelName(name) {
		s.sendNumeric(user, ERR_NOSUCHCHANNEL, name, "No such channel")
		return
	}

	folded := foldName(name)
	channel, exists := s.channels[folded]

	if exists {
		if channel.members[user.fd] {
			return
		}
		if channel.inviteOnly && !channel.invited[user.fd] {
			s.sendNumeric(user, ERR_INVITEONLYCHAN, channel.name, "Cannot join channel (+i)")
			return
		}
		if channel.key != "" && key != channel.key {
			s.sendNumeric(user, ERR_BADCHANNELKEY, channel.name, "Cannot join channel (+k)")
			return
		}
		if channel.userLimit > 0 && len(channel.members) >= channel.userLimit {
			s.sendNumeric(user, ERR_CHANNELISFULL, channel.name, "Cannot join channel (+l)")
			return
		}
	} else {
		channel = newChannel(name)
		s.channels[folded] = channel
		channel.operators[user.fd] = true
		logChannel().Infof("channel %s created by %s", name, user.nickname)
	}

	channel.members[user.fd] = true
	delete(channel.invited, user.fd)
	user.channels[folded] = true

	s.broadcast(channel, echo(user, "JOIN", channel.name), -1)
	logChannel().Infof("%s joined %s", user.nickname, channel.name)
}

// handlePart broadcasts the departure to all members, the actor included,
// before membership is removed
func (s *Server) handlePart(user *User, params []string) {
	if len(params) < 1 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "PART", "Not enough parameters")
		return
	}

	name := params[0]
	folded := foldName(name)
	channel, exists := s.channels[folded]
	if !exists {
		s.sendNumeric(user, ERR_NOSUCHCHANNEL, name, "No such channel")
		return
	}

	if !channel.members[user.fd] {
		s.sendNumeric(user, ERR_NOTONCHANNEL, channel.name, "You're not on that channel")
		return
	}

	var line string
	if len(params) > 1 {
		line = echo(user, "PART", channel.name, params[1])
	} else {
		line = echo(user, "PART", channel.name)
	}
	s.broadcast(channel, line, -1)

	channel.removeMember(user.fd)
	delete(user.channels, folded)
	if len(channel.members) == 0 {
		logChannel().Infof("channel %s destroyed", channel.name)
		delete(s.channels, folded)
	}
}

// handlePrivmsg forwards a message to a channel (members only, actor
// excluded from the fan-out) or to a single user
func (s *Server) handlePrivmsg(user *User, params []string) {
	if len(params) < 2 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "PRIVMSG", "Not enough parameters")
		return
	}

	target := params[0]
	text := params[1]

	if isChannelTarget(target) {
		channel, exists := s.channels[foldName(target)]
		if !exists {
			s.sendNumeric(user, ERR_NOSUCHNICK, target, "No such nick/channel")
			return
		}
		if !channel.members[user.fd] {
			s.sendNumeric(user, ERR_CANNOTSENDTOCHAN, channel.name, "Cannot send to channel")
			return
		}
		s.broadcast(channel, echo(user, "PRIVMSG", channel.name, text), user.fd)
		return
	}

	fd, exists := s.nicks[foldName(target)]
	if !exists {
		s.sendNumeric(user, ERR_NOSUCHNICK, target, "No such nick/channel")
		return
	}
	if peer, ok := s.users[fd]; ok {
		s.sendRaw(peer, echo(user, "PRIVMSG", peer.nickname, text))
	}
}

// handleNotice routes like PRIVMSG but never generates error replies
func (s *Server) handleNotice(user *User, params []string) {
	if len(params) < 2 {
		return
	}

	target := params[0]
	text := params[1]

	if isChannelTarget(target) {
		channel, exists := s.channels[foldName(target)]
		if !exists || !channel.members[user.fd] {
			return
		}
		s.broadcast(channel, echo(user, "NOTICE", channel.name, text), user.fd)
		return
	}

	fd, exists := s.nicks[foldName(target)]
	if !exists {
		return
	}
	if peer, ok := s.users[fd]; ok {
		s.sendRaw(peer, echo(user, "NOTICE", peer.nickname, text))
	}
}

// handleTopic returns the topic with no argument, or sets it; +t restricts
// setting to operators
func (s *Server) handleTopic(user *User, params []string) {
	if len(params) < 1 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "TOPIC", "Not enough parameters")
		return
	}

	name := params[0]
	channel, exists := s.channels[foldName(name)]
	if !exists {
		s.sendNumeric(user, ERR_NOSUCHCHANNEL, name, "No such channel")
		return
	}

	if !channel.members[user.fd] {
		s.sendNumeric(user, ERR_NOTONCHANNEL, channel.name, "You're not on that channel")
		return
	}

	if len(params) == 1 {
		if channel.topic == "" {
			s.sendNumeric(user, RPL_NOTOPIC, channel.name, "No topic is set")
		} else {
			s.sendNumeric(user, RPL_TOPIC, channel.name, channel.topic)
		}
		return
	}

	if channel.topicRestricted && !channel.operators[user.fd] {
		logPermission().Warnf("%s may not set topic on %s", user.nickname, channel.name)
		s.sendNumeric(user, ERR_CHANOPRIVSNEEDED, channel.name, "You're not channel operator")
		return
	}

	channel.topic = params[1]
	s.broadcast(channel, echo(user, "TOPIC", channel.name, channel.topic), -1)
	logChannel().Infof("%s set topic on %s", user.nickname, channel.name)
}

// handleInvite grants a pending invitation; on +i channels only operators
// may invite
func (s *Server) handleInvite(user *User, params []string) {
	if len(params) < 2 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "INVITE", "Not enough parameters")
		return
	}

	targetNick := params[0]
	name := params[1]

	channel, exists := s.channels[foldName(name)]
	if !exists {
		s.sendNumeric(user, ERR_NOSUCHCHANNEL, name, "No such channel")
		return
	}

	if !channel.members[user.fd] {
		s.sendNumeric(user, ERR_NOTONCHANNEL, channel.name, "You're not on that channel")
		return
	}

	if channel.inviteOnly && !channel.operators[user.fd] {
		logPermission().Warnf("%s may not invite to %s", user.nickname, channel.name)
		s.sendNumeric(user, ERR_CHANOPRIVSNEEDED, channel.name, "You're not channel operator")
		return
	}

	targetFD, exists := s.nicks[foldName(targetNick)]
	if !exists {
		s.sendNumeric(user, ERR_NOSUCHNICK, targetNick, "No such nick/channel")
		return
	}
	target := s.users[targetFD]

	if channel.members[targetFD] {
		s.sendNumeric(user, ERR_USERONCHANNEL, target.nickname, channel.name, "is already on channel")
		return
	}

	channel.invited[targetFD] = true

	s.sendNumeric(user, RPL_INVITING, target.nickname, channel.name)
	s.sendRaw(target, echo(user, "INVITE", target.nickname, channel.name))
	logChannel().Infof("%s invited %s to %s", user.nickname, target.nickname, channel.name)
}

// handleKick removes a member; the KICK is broadcast to everyone,
// the target included, before removal
func (s *Server) handleKick(user *User, params []string) {
	if len(params) < 2 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "KICK", "Not enough parameters")
		return
	}

	name := params[0]
	targetNick := params[1]

	folded := foldName(name)
	channel, exists := s.channels[folded]
	if !exists {
		s.sendNumeric(user, ERR_NOSUCHCHANNEL, name, "No such channel")
		return
	}

	if !channel.members[user.fd] {
		s.sendNumeric(user, ERR_NOTONCHANNEL, channel.name, "You're not on that channel")
		return
	}

	if !channel.operators[user.fd] {
		logPermission().Warnf("%s may not kick on %s", user.nickname, channel.name)
		s.sendNumeric(user, ERR_CHANOPRIVSNEEDED, channel.name, "You're not channel operator")
		return
	}

	targetFD, known := s.nicks[foldName(targetNick)]
	if !known || !channel.members[targetFD] {
		s.sendNumeric(user, ERR_USERNOTINCHANNEL, targetNick, channel.name, "They aren't on that channel")
		return
	}
	target := s.users[targetFD]

	var line string
	if len(params) > 2 {
		line = echo(user, "KICK", channel.name, target.nickname, params[2])
	} else {
		line = echo(user, "KICK", channel.name, target.nickname)
	}
	s.broadcast(channel, line, -1)

	channel.removeMember(targetFD)
	delete(target.channels, folded)
	if len(channel.members) == 0 {
		logChannel().Infof("channel %s destroyed", channel.name)
		delete(s.channels, folded)
	}
	logChannel().Infof("%s kicked %s from %s", user.nickname, target.nickname, channel.name)
}

// handleMode lists channel modes with no mode string, or applies a
// sign-flipping sequence of changes. Unknown letters get a 472 and
// processing continues; the final broadcast reflects only the letters
// actually applied, in order.
func (s *Server) handleMode(user *User, params []string) {
	if len(params) < 1 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "MODE", "Not enough parameters")
		return
	}

	name := params[0]
	if !isChannelTarget(name) {
		s.sendNumeric(user, ERR_NOSUCHCHANNEL, name, "No such channel")
		return
	}

	channel, exists := s.channels[foldName(name)]
	if !exists {
		s.sendNumeric(user, ERR_NOSUCHCHANNEL, name, "No such channel")
		return
	}

	if len(params) == 1 {
		s.sendNumeric(user, RPL_CHANNELMODEIS, append([]string{channel.name}, channel.modeParams()...)...)
		return
	}

	if !channel.members[user.fd] {
		s.sendNumeric(user, ERR_NOTONCHANNEL, channel.name, "You're not on that channel")
		return
	}
	if !channel.operators[user.fd] {
		logPermission().Warnf("%s may not change modes on %s", user.nickname, channel.name)
		s.sendNumeric(user, ERR_CHANOPRIVSNEEDED, channel.name, "You're not channel operator")
		return
	}

	modeStr := params[1]
	modeArgs := params[2:]
	argIndex := 0
	adding := true

	var appliedModes string
	var appliedArgs []string

	nextArg := func() (string, bool) {
		if argIndex >= len(modeArgs) {
			return "", false
		}
		arg := modeArgs[argIndex]
		argIndex++
		return arg, true
	}

	applied := func(letter byte, arg string) {
		if adding {
			appliedModes += "+"
		} else {
			appliedModes += "-"
		}
		appliedModes += string(letter)
		if arg != "" {
			appliedArgs = append(appliedArgs, arg)
		}
	}

	for i := 0; i < len(modeStr); i++ {
		letter := modeStr[i]
		switch letter {
		case '+':
			adding = true
		case '-':
			adding = false

		case 'i':
			channel.inviteOnly = adding
			applied(letter, "")

		case 't':
			channel.topicRestricted = adding
			applied(letter, "")

		case 'k':
			if !adding {
				channel.key = ""
				applied(letter, "")
				continue
			}
			key, ok := nextArg()
			if !ok {
				s.sendNumeric(user, ERR_NEEDMOREPARAMS, "MODE", "Not enough parameters")
				continue
			}
			if !isValidChannelKey(key) {
				s.sendNumeric(user, ERR_INVALIDMODEPARAM, channel.name, "k", key, "Invalid channel key")
				continue
			}
			channel.key = key
			applied(letter, key)

		case 'l':
			if !adding {
				channel.userLimit = 0
				applied(letter, "")
				continue
			}
			arg, ok := nextArg()
			if !ok {
				s.sendNumeric(user, ERR_NEEDMOREPARAMS, "MODE", "Not enough parameters")
				continue
			}
			limit, err := strconv.Atoi(arg)
			if err != nil || limit < 0 {
				s.sendNumeric(user, ERR_INVALIDMODEPARAM, channel.name, "l", arg, "Invalid limit")
				continue
			}
			if limit == 0 {
				// +l 0 is a no-op
				continue
			}
			channel.userLimit = limit
			applied(letter, arg)

		case 'o':
			nick, ok := nextArg()
			if !ok {
				s.sendNumeric(user, ERR_NEEDMOREPARAMS, "MODE", "Not enough parameters")
				continue
			}
			targetFD, known := s.nicks[foldName(nick)]
			if !known || !channel.members[targetFD] {
				s.sendNumeric(user, ERR_USERNOTINCHANNEL, nick, channel.name, "They aren't on that channel")
				continue
			}
			if adding {
				channel.operators[targetFD] = true
			} else {
				// Deopping the sole operator would orphan the channel
				if targetFD == user.fd && len(channel.operators) == 1 {
					s.sendNumeric(user, ERR_CHANOPRIVSNEEDED, channel.name, "You're not channel operator")
					continue
				}
				delete(channel.operators, targetFD)
			}
			applied(letter, s.users[targetFD].nickname)

		default:
			s.sendNumeric(user, ERR_UNKNOWNMODE, string(letter), "is unknown mode char to me")
		}
	}

	if appliedModes != "" {
		line := echo(user, "MODE", append([]string{channel.name, appliedModes}, appliedArgs...)...)
		s.broadcast(channel, line, -1)
		logChannel().Infof("%s set mode %s %s on %s",
			user.nickname, appliedModes, strings.Join(appliedArgs, " "), channel.name)
	}
}
