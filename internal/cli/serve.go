package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/glimpse/internal/app"
	"github.com/MrSnakeDoc/glimpse/internal/config"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the glimpse web app",
		Example: `  # Listen on the configured port (GLIMPSE_LISTEN_PORT, default :8080)
  glimpse serve

  # Override the listen address
  glimpse serve --listen :3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if listen != "" {
				cfg.ListenPort = listen
			}

			log := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("failed to start", logger.Error(err))
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, overrides GLIMPSE_LISTEN_PORT")

	return cmd
}
