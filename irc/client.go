package irc

import (
	"fmt"
)

// Commands an unregistered client may issue; everything else is dropped
// silently until registration completes
var preRegistration = map[string]bool{
	"PASS": true,
	"NICK": true,
	"USER": true,
	"CAP":  true,
	"PING": true,
	"QUIT": true,
}

// dispatch routes one parsed message to its handler. Unknown commands get
// a single 421 and nothing else changes.
func (s *Server) dispatch(user *User, msg *Message) Outcome {
	command := msg.Command

	if !user.registered && !preRegistration[command] {
		logCommand().Debugf("fd %d: dropping %s before registration", user.fd, command)
		return Continue
	}

	logCommand().Debugf("fd %d <= %s", user.fd, msg.String())

	switch command {
	case "PASS":
		s.handlePass(user, msg.Params)
	case "NICK":
		s.handleNick(user, msg.Params)
	case "USER":
		s.handleUser(user, msg.Params)
	case "CAP":
		s.handleCap(user, msg.Params)
	case "PING":
		s.handlePing(user, msg.Params)
	case "JOIN":
		s.handleJoin(user, msg.Params)
	case "PART":
		s.handlePart(user, msg.Params)
	case "PRIVMSG":
		s.handlePrivmsg(user, msg.Params)
	case "NOTICE":
		s.handleNotice(user, msg.Params)
	case "TOPIC":
		s.handleTopic(user, msg.Params)
	case "INVITE":
		s.handleInvite(user, msg.Params)
	case "KICK":
		s.handleKick(user, msg.Params)
	case "MODE":
		s.handleMode(user, msg.Params)
	case "QUIT":
		return s.handleQuit(user, msg.Params)
	default:
		s.sendNumeric(user, ERR_UNKNOWNCOMMAND, command, "Unknown command")
	}

	return Continue
}

// handlePass checks the connection password. A mismatch is never fatal;
// the client may retry.
func (s *Server) handlePass(user *User, params []string) {
	if user.registered {
		s.sendNumeric(user, ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}

	if len(params) < 1 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "PASS", "Not enough parameters")
		return
	}

	if params[0] != s.cfg.Server.Password {
		logAuth().Warnf("fd %d: wrong password", user.fd)
		s.sendNumeric(user, ERR_PASSWDMISMATCH, "Password incorrect")
		return
	}

	user.authenticated = true
	logAuth().Infof("fd %d authenticated", user.fd)
}

// handleNick validates and claims a nickname. A change after registration
// is echoed to the user and to every member of each shared channel once.
func (s *Server) handleNick(user *User, params []string) {
	if len(params) < 1 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "NICK", "Not enough parameters")
		return
	}

	newNick := params[0]
	if !isValidNickname(newNick) {
		s.sendNumeric(user, ERR_ERRONEUSNICKNAME, newNick, "Erroneous nickname")
		return
	}

	folded := foldName(newNick)
	if owner, exists := s.nicks[folded]; exists && owner != user.fd {
		s.sendNumeric(user, ERR_NICKNAMEINUSE, newNick, "Nickname is already in use")
		return
	}

	oldNick := user.nickname
	if oldNick != "" {
		delete(s.nicks, foldName(oldNick))
	}
	user.nickname = newNick
	s.nicks[folded] = user.fd

	if user.registered && oldNick != "" && oldNick != newNick {
		line := fmt.Sprintf(":%s!%s@%s NICK :%s", oldNick, user.username, user.ip, newNick)
		s.sendRaw(user, line)

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
				s.sendRaw(peer, line)
			}
		}
	}

	s.tryCompleteRegistration(user)
}

// handleUser records username and realname
func (s *Server) handleUser(user *User, params []string) {
	if user.registered {
		s.sendNumeric(user, ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}

	if len(params) < 4 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "USER", "Not enough parameters")
		return
	}

	user.username = params[0]
	user.realname = params[3]

	s.tryCompleteRegistration(user)
}

// tryCompleteRegistration emits the welcome burst once PASS, NICK, and
// USER have all succeeded
func (s *Server) tryCompleteRegistration(user *User) {
	if user.registered {
		return
	}
	if !user.authenticated || user.nickname == "" || user.username == "" {
		return
	}

	user.registered = true
	logAuth().Infof("fd %d registered as %s", user.fd, user.nickname)

	s.sendNumeric(user, RPL_WELCOME,
		fmt.Sprintf("Welcome to the %s Network %s", s.name, user.prefix()))
	s.sendNumeric(user, RPL_YOURHOST,
		fmt.Sprintf("Your host is %s, running version %s", s.name, serverVersion))
	s.sendNumeric(user, RPL_CREATED,
		fmt.Sprintf("This server was created %s", serverCreated))
	s.sendNumeric(user, RPL_MYINFO, s.name, serverVersion, userModes, channelModes)
}

// handleCap is a compatibility shim: capability negotiation is
// acknowledged by doing nothing, so modern clients proceed to NICK/USER
func (s *Server) handleCap(user *User, params []string) {
	logCommand().Debugf("fd %d: ignoring CAP %v", user.fd, params)
}

// handlePing answers with a PONG carrying the client's token
func (s *Server) handlePing(user *User, params []string) {
	if len(params) < 1 {
		s.sendNumeric(user, ERR_NEEDMOREPARAMS, "PING", "Not enough parameters")
		return
	}

	s.sendRaw(user, fmt.Sprintf(":%s PONG %s :%s", s.name, s.name, params[0]))
}

// handleQuit broadcasts the departure and reports the explicit disconnect
// outcome to the reactor loop
func (s *Server) handleQuit(user *User, params []string) Outcome {
	reason := "Client quit"
	if len(params) > 0 {
		reason = params[0]
	}

	s.disconnect(user, reason)
	return Disconnect
}

// sendNumeric sends a numeric reply. The first parameter is always the
// receiver's nickname, or * before one is chosen.
func (s *Server) sendNumeric(user *User, code string, params ...string) {
	target := user.nickname
	if target == "" {
		target = "*"
	}

	msg := &Message{
		Prefix:  s.name,
		Command: code,
		Params:  append([]string{target}, params...),
	}
	s.sendRaw(user, msg.String())
}

// echo formats a command line originating from a user, for broadcast to
// channel members
func echo(user *User, command string, params ...string) string {
	msg := &Message{
		Prefix:  user.prefix(),
		Command: command,
		Params:  params,
	}
	return msg.String()
}

// broadcast enqueues a line for every member of a channel, except the
// descriptor given (pass -1 to reach everyone)
func (s *Server) broadcast(channel *Channel, line string, except int) {
	for fd := range channel.members {
		if fd == except {
			continue
		}
		if member, ok := s.users[fd]; ok {
			s.sendRaw(member, line)
		}
	}
}
