package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/lumina/internal/cli"
	"github.com/mrlokans/lumina/internal/config"
	"github.com/mrlokans/lumina/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	cfg := config.NewConfig()

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "drive-auth":
		cmd = cli.NewDriveAuthCommand(cfg)
	case "sync":
		cmd = cli.NewSyncCommand(cfg)
	case "library":
		cmd = cli.NewLibraryCommand(cfg)
	case "download":
		cmd = cli.NewDownloadCommand(cfg)
	case "version":
		fmt.Printf("lumina %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve       Start the HTTP API, scheduled sync and downloads (default)\n")
	fmt.Fprintf(os.Stderr, "  drive-auth  Connect a Google Drive account\n")
	fmt.Fprintf(os.Stderr, "  sync        Run one sync round\n")
	fmt.Fprintf(os.Stderr, "  library     List books, optionally refreshing from Drive\n")
	fmt.Fprintf(os.Stderr, "  download    Download or evict a book's content\n")
	fmt.Fprintf(os.Stderr, "  version     Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
