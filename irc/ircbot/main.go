package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/lrstanley/girc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxRetries = 5

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) != 5 {
		usage()
		os.Exit(1)
	}

	host := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprintf(os.Stderr, "ircbot: invalid port %q\n", args[1])
		os.Exit(1)
	}
	password := args[2]
	nickname := args[3]
	channel := args[4]

	initLogger(*debug)
	log := zap.S()

	client := girc.New(girc.Config{
		Server:     host,
		Port:       port,
		ServerPass: password,
		Nick:       nickname,
		User:       nickname,
		Name:       "ft_irc bot",
	})

	client.Handlers.AddBg(girc.CONNECTED, func(c *girc.Client, e girc.Event) {
		log.Infof("connected, joining %s", channel)
		c.Cmd.Join(channel)
	})

	client.Handlers.AddBg(girc.PRIVMSG, func(c *girc.Client, e girc.Event) {
		text := strings.TrimSpace(e.Last())
		if !strings.HasPrefix(text, "!") {
			return
		}

		response := botResponse(text, time.Now(), rand.Intn)
		if response == "" {
			return
		}

		log.Infof(">> %s", text)
		c.Cmd.Reply(e, response)
	})

	// Reconnect loop
	for i := 0; i < maxRetries; i++ {
		log.Infow("connecting to server", "server", host, "port", port)

		if err := client.Connect(); err != nil {
			log.Errorw("connection failed", "error", err)
			log.Infof("reconnecting in 5 seconds (attempt %d/%d)", i+1, maxRetries)
			time.Sleep(5 * time.Second)
			continue
		}
		return
	}

	log.Errorf("failed to connect after %d attempts", maxRetries)
	os.Exit(1)
}

func initLogger(verbose bool) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("[2006-01-02 15:04:05]")
	config.DisableStacktrace = !verbose
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	l, err := config.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(l)
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ircbot [flags] <host> <port> <password> <nickname> <channel>")
	flag.PrintDefaults()
}
