package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/ftirc/ircserv/irc"
	"github.com/ftirc/ircserv/irc/config"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", "", "Optional configuration file (yaml, toml, or json)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		usage()
		os.Exit(1)
	}

	// Validate the positional arguments before anything else starts
	port, err := irc.ValidatePort(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ircserv: %v\n", err)
		os.Exit(1)
	}
	if err := irc.ValidatePassword(args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "ircserv: %v\n", err)
		os.Exit(1)
	}

	// Load configuration; positional arguments take precedence
	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ircserv: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.FromEnv()
	}
	cfg.Server.Port = port
	cfg.Server.Password = args[1]
	if *debug {
		cfg.Log.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ircserv: %v\n", err)
		os.Exit(1)
	}

	irc.InitLogger(cfg.Log.Verbose)

	server, err := irc.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Run blocks until SIGINT or SIGTERM
	if err := server.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ircserv [flags] <port> <password>")
	fmt.Fprintln(os.Stderr, "  port      four decimal digits in 6665-6669")
	fmt.Fprintln(os.Stderr, "  password  8-64 printable non-space characters")
	flag.PrintDefaults()
}
