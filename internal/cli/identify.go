package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/glimpse/internal/config"
	"github.com/MrSnakeDoc/glimpse/internal/identify"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

func newIdentifyCmd() *cobra.Command {
	var (
		webhook string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "identify <image-file>",
		Short: "Identify one image and print the artwork as JSON",
		Example: `  glimpse identify ./photo.jpg
  glimpse identify --webhook https://hooks.example.com/identify ./photo.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if webhook != "" {
				cfg.WebhookURL = webhook
			}
			if timeout > 0 {
				cfg.WebhookTimeout = timeout
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			contentType, err := identify.ValidateImageBytes(raw, cfg.MaxImageBytes)
			if err != nil {
				return err
			}

			log := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			client := identify.NewClient(cfg.WebhookURL, cfg.WebhookTimeout, log)
			result, err := client.Identify(cmd.Context(), identify.EncodeDataURL(contentType, raw))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result.ToArtworkRecord(result.ID, cfg.PlaceholderImage))
		},
	}

	cmd.Flags().StringVar(&webhook, "webhook", "", "Webhook URL, overrides GLIMPSE_WEBHOOK_URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Webhook timeout, overrides GLIMPSE_WEBHOOK_TIMEOUT")

	return cmd
}
