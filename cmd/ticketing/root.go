package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ticketing",
	Short: "Payment-gated event registration",
	Long: `Runs the event registration API and the background worker that
reconciles card and crypto payments with registrations.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
