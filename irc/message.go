package irc

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Maximum payload per line, excluding the CRLF terminator
	maxLineLength = 510

	// Maximum number of parameters per message
	maxParams = 15
)

// Message represents one parsed IRC message
type Message struct {
	Prefix  string
	Command string
	Params  []string
}

// ParseMessage parses a single line (without CRLF) into a Message.
// Grammar: [":" prefix SPACE] command (SPACE param)* [SPACE ":" trailing]
func ParseMessage(line string) (*Message, error) {
	if line == "" {
		return nil, errors.New("empty message")
	}
	if len(line) > maxLineLength {
		return nil, fmt.Errorf("message exceeds %d bytes", maxLineLength)
	}
	if line[0] == ' ' {
		return nil, errors.New("message starts with a space")
	}

	msg := &Message{}
	pos := 0

	// Optional prefix
	if line[0] == ':' {
		spacePos := strings.IndexByte(line, ' ')
		if spacePos < 0 {
			return nil, errors.New("prefix without a command")
		}
		msg.Prefix = line[1:spacePos]
		if msg.Prefix == "" {
			return nil, errors.New("empty prefix")
		}
		pos = skipSpaces(line, spacePos)
	}

	if pos >= len(line) {
		return nil, errors.New("no command")
	}

	// Command token: letters only, or exactly three digits
	end := pos
	for end < len(line) && line[end] != ' ' {
		end++
	}
	command := line[pos:end]
	if !isValidCommand(command) {
		return nil, fmt.Errorf("invalid command %q", command)
	}
	msg.Command = strings.ToUpper(command)
	pos = skipSpaces(line, end)

	// Parameters; a leading colon starts the trailing parameter, which
	// absorbs the rest of the line verbatim.
	for pos < len(line) {
		if line[pos] == ':' {
			msg.Params = append(msg.Params, line[pos+1:])
			break
		}
		end = pos
		for end < len(line) && line[end] != ' ' {
			end++
		}
		msg.Params = append(msg.Params, line[pos:end])
		pos = skipSpaces(line, end)
	}

	if len(msg.Params) > maxParams {
		return nil, fmt.Errorf("too many parameters (max %d)", maxParams)
	}
	for _, param := range msg.Params {
		if strings.ContainsAny(param, "\x00\r\n") {
			return nil, errors.New("parameter contains NUL, CR, or LF")
		}
	}

	return msg, nil
}

// String returns the wire form of the message, without CRLF
func (m *Message) String() string {
	var builder strings.Builder

	if m.Prefix != "" {
		builder.WriteString(":")
		builder.WriteString(m.Prefix)
		builder.WriteString(" ")
	}

	builder.WriteString(m.Command)

	for i, param := range m.Params {
		builder.WriteString(" ")

		// The last parameter becomes the trailing parameter when it
		// contains a space, is empty, or starts with a colon
		if i == len(m.Params)-1 && (strings.Contains(param, " ") || param == "" || strings.HasPrefix(param, ":")) {
			builder.WriteString(":")
			builder.WriteString(param)
		} else {
			builder.WriteString(param)
		}
	}

	return builder.String()
}

// ParseHostmask parses a hostmask (nick!user@host)
func ParseHostmask(hostmask string) (nick, user, host string) {
	nickParts := strings.SplitN(hostmask, "!", 2)
	if len(nickParts) < 2 {
		nick = hostmask
		return
	}
	nick = nickParts[0]

	userHostParts := strings.SplitN(nickParts[1], "@", 2)
	if len(userHostParts) < 2 {
		user = nickParts[1]
		return
	}
	user = userHostParts[0]
	host = userHostParts[1]

	return
}

// FormatHostmask formats a hostmask
func FormatHostmask(nick, user, host string) string {
	return fmt.Sprintf("%s!%s@%s", nick, user, host)
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && s[pos] == ' ' {
		pos++
	}
	return pos
}

// isValidCommand reports whether a command token is a run of letters or
// exactly three decimal digits
func isValidCommand(command string) bool {
	if command == "" {
		return false
	}

	if command[0] >= '0' && command[0] <= '9' {
		if len(command) != 3 {
			return false
		}
		for i := 0; i < 3; i++ {
			if command[i] < '0' || command[i] > '9' {
				return false
			}
		}
		return true
	}

	for i := 0; i < len(command); i++ {
		ch := command[i]
		if !((ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')) {
			return false
		}
	}
	return true
}
