package main

import (
	"log"

	"github.com/spf13/cobra"

	"dieti-tracker/internal/config"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "dieti",
		Short: "Diet tracking service and Telegram session",
		Long: `dieti tracks daily food intake against macro goals.
The api command serves the HTTP store, the bot command runs the Telegram
session that records food and draws history charts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			return err
		},
	}
)

func init() {
	rootCmd.AddCommand(apiCmd, botCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
