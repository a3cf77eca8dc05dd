package main

import (
	"fmt"
	"strings"
	"time"
)

var rpsMoves = []string{"rock", "paper", "scissors"}

// rpsBeats maps each move to the move it defeats
var rpsBeats = map[string]string{
	"rock":     "scissors",
	"paper":    "rock",
	"scissors": "paper",
}

// botResponse computes the reply for one !command, or "" for text the bot
// does not recognize. The clock and the random source are injected so
// tests stay deterministic.
func botResponse(text string, now time.Time, roll func(int) int) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	switch fields[0] {
	case "!help":
		return "Available commands: !help, !time, !ping, !about, !rps"
	case "!time":
		return "Current time: " + now.Format("2006-01-02 15:04:05")
	case "!ping":
		return "Pong!"
	case "!about":
		return "I am an IRC bot built for ft_irc"
	case "!rps":
		return playRPS(fields[1:], roll)
	default:
		return ""
	}
}

// playRPS plays one round of rock-paper-scissors against the caller
func playRPS(args []string, roll func(int) int) string {
	if len(args) != 1 {
		return "Usage: !rps <rock|paper|scissors>"
	}

	move := strings.ToLower(args[0])
	if _, ok := rpsBeats[move]; !ok {
		return "Usage: !rps <rock|paper|scissors>"
	}

	botMove := rpsMoves[roll(len(rpsMoves))]
	switch {
	case botMove == move:
		return fmt.Sprintf("I chose %s too. It's a draw!", botMove)
	case rpsBeats[move] == botMove:
		return fmt.Sprintf("I chose %s. You win!", botMove)
	default:
		return fmt.Sprintf("I chose %s. I win!", botMove)
	}
}
