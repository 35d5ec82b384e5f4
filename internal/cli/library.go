package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mrlokans/lumina/internal/config"
)

// LibraryCommand lists the local library, optionally refreshing it from Drive first
type LibraryCommand struct {
	cfg     *config.Config
	Refresh bool
	Folder  string
}

// NewLibraryCommand creates a new LibraryCommand
func NewLibraryCommand(cfg *config.Config) *LibraryCommand {
	return &LibraryCommand{cfg: cfg}
}

// ParseFlags parses command line flags
func (cmd *LibraryCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("library", flag.ExitOnError)

	fs.BoolVar(&cmd.Refresh, "refresh", false, "Re-read the Drive listing before printing")
	fs.StringVar(&cmd.Folder, "folder", "", "Drive folder ID to list (default: configured folder)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s library [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print the books known to this device.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s library\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s library -refresh -folder 1AbCdEf\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the command
func (cmd *LibraryCommand) Run() error {
	app, closeApp, err := openApp(cmd.cfg)
	if err != nil {
		return err
	}
	defer closeApp()

	if cmd.Refresh {
		folder := cmd.Folder
		if folder == "" {
			folder = app.Settings.GetDriveFolderID()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		count, err := app.Library.RefreshFromRemote(ctx, folder)
		if err != nil {
			return fmt.Errorf("failed to refresh library: %w", err)
		}
		fmt.Printf("Listed %d books from Google Drive\n\n", count)
	}

	books, err := app.Library.List()
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Printf("Library is empty. Run '%s library -refresh' to list your Drive books.\n", os.Args[0])
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tUNSYNCED\tPOSITION")
	for _, b := range books {
		unsynced := ""
		if b.IsDirty {
			unsynced = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.FileID, b.Title, b.DownloadStatus, unsynced, b.LastCFI)
	}
	return w.Flush()
}
