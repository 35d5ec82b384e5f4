package cli

import (
	"fmt"

	"github.com/mrlokans/lumina/internal/config"
	"github.com/mrlokans/lumina/internal/entrypoint"
	"github.com/mrlokans/lumina/internal/logging"
)

// openApp wires the engine for a one-shot command. The returned func
// closes everything it opened.
func openApp(cfg *config.Config) (*entrypoint.App, func(), error) {
	logger, logCloser := logging.New(cfg.Logging)

	app, err := entrypoint.Build(cfg, logger)
	if err != nil {
		logCloser.Close()
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}

	return app, func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing stores")
		}
		logCloser.Close()
	}, nil
}
