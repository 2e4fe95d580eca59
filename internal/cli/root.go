// Package cli defines the glimpse command line.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the glimpse command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glimpse",
		Short: "Identify artworks from a photo and keep a list of favourites",
		Long: `glimpse sends a photo of an artwork to an identification webhook,
shows what it found and lets you bookmark artworks in a favourites list.

Configuration comes from GLIMPSE_* environment variables, a .env file in the
working directory, or a YAML file named by GLIMPSE_CONFIG_FILE.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIdentifyCmd())

	return cmd
}
