package irc

import (
	"fmt"
	"strings"
)

// ValidatePort checks a command-line port argument: exactly four decimal
// digits in the range 6665-6669.
func ValidatePort(arg string) (int, error) {
	if len(arg) != 4 {
		return 0, fmt.Errorf("port must be exactly four digits: %q", arg)
	}

	port := 0
	for i := 0; i < len(arg); i++ {
		if arg[i] < '0' || arg[i] > '9' {
			return 0, fmt.Errorf("port must be numeric: %q", arg)
		}
		port = port*10 + int(arg[i]-'0')
	}

	if port < 6665 || port > 6669 {
		return 0, fmt.Errorf("port %d out of range (6665-6669)", port)
	}
	return port, nil
}

// ValidatePassword checks a command-line password argument: 8-64 bytes,
// every byte printable and not a space.
func ValidatePassword(arg string) error {
	if len(arg) < 8 || len(arg) > 64 {
		return fmt.Errorf("password must be 8-64 characters, got %d", len(arg))
	}

	for i := 0; i < len(arg); i++ {
		if arg[i] <= ' ' || arg[i] > '~' {
			return fmt.Errorf("password contains a non-printable or space character")
		}
	}
	return nil
}

// isValidNickname checks an RFC 1459 nickname: nonempty, at most 9 bytes,
// first byte alphabetic, the rest alphanumeric or one of -[]\`^{}
func isValidNickname(nick string) bool {
	if len(nick) < 1 || len(nick) > 9 {
		return false
	}

	for i := 0; i < len(nick); i++ {
		ch := nick[i]
		alpha := (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
		if i == 0 {
			if !alpha {
				return false
			}
			continue
		}
		if !alpha && !(ch >= '0' && ch <= '9') && !strings.ContainsRune("-[]\\`^{}", rune(ch)) {
			return false
		}
	}

	return true
}

// isValidChannelName checks a channel name: nonempty, at most 200 bytes,
// first byte # or &, no space, comma, or BEL anywhere
func isValidChannelName(name string) bool {
	if len(name) < 1 || len(name) > 200 {
		return false
	}

	if name[0] != '#' && name[0] != '&' {
		return false
	}

	return !strings.ContainsAny(name, " ,\x07")
}

// isValidChannelKey checks a channel key for +k: 1-23 bytes, no space,
// comma, or control characters
func isValidChannelKey(key string) bool {
	if len(key) < 1 || len(key) > 23 {
		return false
	}

	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == ',' || key[i] == 0x7f {
			return false
		}
	}
	return true
}

// foldName case-folds a nickname or channel name for table lookups.
// ASCII lowercase only; the RFC 2812 {|} and [\] mapping is not applied.
func foldName(name string) string {
	b := []byte(name)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
