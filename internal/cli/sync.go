package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/lumina/internal/config"
	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
)

// SyncCommand runs a single sync round
type SyncCommand struct {
	cfg    *config.Config
	Device string
}

// NewSyncCommand creates a new SyncCommand
func NewSyncCommand(cfg *config.Config) *SyncCommand {
	return &SyncCommand{cfg: cfg}
}

// ParseFlags parses command line flags
func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	fs.StringVar(&cmd.Device, "device", "", "Device label written to the sync document (default: configured device name)")
	fs.DurationVar(&cmd.cfg.Sync.RoundTimeout, "timeout", cmd.cfg.Sync.RoundTimeout, "Upper bound for the round")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Merge local reading positions with the sync document in Google Drive.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the round and prints its decisions
func (cmd *SyncCommand) Run() error {
	app, closeApp, err := openApp(cmd.cfg)
	if err != nil {
		return err
	}
	defer closeApp()

	device := cmd.Device
	if device == "" {
		device = app.Settings.GetDeviceName()
	}

	ctx := context.Background()
	if cmd.cfg.Sync.RoundTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.cfg.Sync.RoundTimeout)
		defer cancel()
	}

	result, err := app.Syncer.Sync(ctx, entities.SyncTriggerManual, device)
	if err != nil {
		kind := failure.KindOf(err)
		if kind.RequiresReauth() {
			return fmt.Errorf("%s Run '%s drive-auth'. (%w)", kind.UserMessage(), os.Args[0], err)
		}
		return err
	}

	for _, d := range result.Decisions {
		fmt.Printf("  %-5s %s\n", d.Action, d.BookID)
	}
	fmt.Printf("\nPulled %d, pushed %d, unchanged %d", result.Pulled, result.Pushed, result.Unchanged)
	if result.Uploaded {
		fmt.Print(", document uploaded")
	}
	fmt.Println()
	return nil
}
