package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mrlokans/lumina/internal/config"
	"github.com/mrlokans/lumina/internal/oauth2"
	"github.com/mrlokans/lumina/internal/tokenstore"
)

// DriveAuthCommand connects a Google Drive account
type DriveAuthCommand struct {
	cfg     *config.Config
	Port    int
	Timeout time.Duration
}

// NewDriveAuthCommand creates a new DriveAuthCommand
func NewDriveAuthCommand(cfg *config.Config) *DriveAuthCommand {
	return &DriveAuthCommand{cfg: cfg}
}

// ParseFlags parses command line flags
func (cmd *DriveAuthCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("drive-auth", flag.ExitOnError)

	fs.StringVar(&cmd.cfg.Drive.ClientID, "client-id", cmd.cfg.Drive.ClientID, "Google OAuth client ID (or set GOOGLE_CLIENT_ID)")
	fs.StringVar(&cmd.cfg.Drive.ClientSecret, "client-secret", cmd.cfg.Drive.ClientSecret, "Google OAuth client secret (or set GOOGLE_CLIENT_SECRET)")
	fs.IntVar(&cmd.Port, "port", cmd.cfg.Drive.CallbackPort, "Local port for the OAuth callback server")
	fs.DurationVar(&cmd.Timeout, "timeout", 5*time.Minute, "How long to wait for the browser authorization")
	fs.StringVar(&cmd.cfg.Database.Path, "db", cmd.cfg.Database.Path, "Path to the database for storing tokens")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s drive-auth [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Authorize read access to Google Drive and store the credential.\n\n")
		fmt.Fprintf(os.Stderr, "The flow uses PKCE with a loopback redirect. Add\n")
		fmt.Fprintf(os.Stderr, "http://localhost:%d%s to the client's redirect URIs.\n\n", oauth2.DefaultCallbackPort, oauth2.CallbackPath)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.cfg.Drive.ClientID == "" {
		return fmt.Errorf("google client id required: set GOOGLE_CLIENT_ID environment variable or use -client-id flag")
	}
	return nil
}

// Run executes the OAuth flow
func (cmd *DriveAuthCommand) Run() error {
	fmt.Println("Google Drive Authorization")
	fmt.Println("==========================")

	app, closeApp, err := openApp(cmd.cfg)
	if err != nil {
		return err
	}
	defer closeApp()

	handler := oauth2.NewFlowHandler(app.Google, app.Tokens)

	result, err := handler.RunCLIFlow(context.Background(), oauth2.CLIFlowConfig{
		Port:    cmd.Port,
		Timeout: cmd.Timeout,
	})
	app.Audit.LogAuth("drive_connected", "Google Drive authorization", err)
	if err != nil {
		return err
	}

	fmt.Println("\nGoogle Drive connected.")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("  Account:        %s\n", result.AccountID)
	if result.ExpiresAt != nil {
		fmt.Printf("  Access expires: %s\n", result.ExpiresAt.Local().Format(time.RFC1123))
	}
	if result.Scope != "" {
		fmt.Printf("  Scope:          %s\n", result.Scope)
	}
	if !result.CanRefresh {
		fmt.Println("  Warning:        no refresh token was issued; run drive-auth again once access expires")
	}
	fmt.Printf("  Database:       %s\n", cmd.cfg.Database.Path)
	fmt.Printf("  Encryption key: %s\n", tokenstore.GetKeyFilePath(cmd.cfg.Credential.KeyFile))
	return nil
}
