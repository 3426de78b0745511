// Package main implements the rpcpeer demo CLI: a tiny echo server and
// client exercising pkg/rpcpeer over a real TCP connection.
// file: cmd/rpcpeer/main.go
package main

import (
	"fmt"
	"log"
	"os"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// Command is one CLI subcommand.
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
}

// RegisterCommands returns the CLI's subcommand table.
func RegisterCommands() map[string]Command {
	return map[string]Command{
		"serve": {
			Name:        "serve",
			Description: "Run a demo echo/notify server",
			Run:         serveCommand,
		},
		"client": {
			Name:        "client",
			Description: "Connect to a demo server and send one request",
			Run:         clientCommand,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Run:         versionCommand,
		},
		"help": {
			Name:        "help",
			Description: "Show help for commands",
			Run:         helpCommand,
		},
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("[rpcpeer] ")

	commands := RegisterCommands()

	if len(os.Args) < 2 {
		if err := commands["help"].Run(nil); err != nil {
			log.Fatalf("main: error running help command: %v", err)
		}
		return
	}

	cmdName := os.Args[1]
	if cmdName == "-v" || cmdName == "--version" {
		printVersion()
		return
	}

	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Printf("Unknown command: %s\n\n", cmdName)
		_ = commands["help"].Run(nil)
		os.Exit(1)
	}

	if err := cmd.Run(os.Args[2:]); err != nil {
		log.Fatalf("main: %s: %v", cmdName, err)
	}
}

func printVersion() {
	fmt.Printf("rpcpeer demo CLI\nVersion: %s\nBuilt:   %s\n", version, buildDate)
}
