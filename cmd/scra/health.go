package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := verifyClient.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("server unreachable at %s: %w", httpURL, err)
		}
		if jsonOutput {
			return printJSON(map[string]string{"status": status, "url": httpURL})
		}
		fmt.Printf("%s: %s\n", httpURL, status)
		return nil
	},
}
