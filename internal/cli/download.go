package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/lumina/internal/config"
	"github.com/mrlokans/lumina/internal/utils"
)

// DownloadCommand fetches a book into the local cache, or evicts it
type DownloadCommand struct {
	cfg     *config.Config
	BookID  string
	Evict   bool
	Output  string
	Timeout time.Duration
}

// NewDownloadCommand creates a new DownloadCommand
func NewDownloadCommand(cfg *config.Config) *DownloadCommand {
	return &DownloadCommand{cfg: cfg}
}

// ParseFlags parses command line flags
func (cmd *DownloadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	fs.BoolVar(&cmd.Evict, "evict", false, "Remove the cached content instead of downloading")
	fs.StringVar(&cmd.Output, "o", "", "Also write the EPUB into this directory")
	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Minute, "Upper bound for the download")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s download [options] <book-id>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Download a book's EPUB into the local cache.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one book id is required")
	}
	cmd.BookID = fs.Arg(0)
	return nil
}

// Run executes the command
func (cmd *DownloadCommand) Run() error {
	app, closeApp, err := openApp(cmd.cfg)
	if err != nil {
		return err
	}
	defer closeApp()

	if cmd.Evict {
		if err := app.Library.EvictContent(cmd.BookID); err != nil {
			return err
		}
		fmt.Printf("Removed cached content of %s\n", cmd.BookID)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	book, err := app.Library.Download(ctx, cmd.BookID)
	if err != nil {
		return err
	}
	fmt.Printf("Downloaded %q (%s)\n", book.Title, book.LocalPath)

	if cmd.Output == "" {
		return nil
	}
	return cmd.export(app.Library.Open, book.FileID, book.Title)
}

func (cmd *DownloadCommand) export(open func(id string) ([]byte, error), id, title string) error {
	data, err := open(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cmd.Output, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(cmd.Output, utils.EPUBFilename(title))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
