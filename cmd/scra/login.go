package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillpoint/scraverify/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:   "login [remote]",
	Short: "Store a bearer token for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}

		name := cfg.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active remote; run 'scra remote add' and 'scra remote use' first")
		}
		r, ok := cfg.Remotes[name]
		if !ok {
			return fmt.Errorf("remote %q not found", name)
		}

		token, err := ui.PromptPassword(fmt.Sprintf("Token for %s (%s): ", name, r.URL))
		if err != nil {
			return err
		}
		if token == "" {
			return fmt.Errorf("empty token")
		}

		r.Token = token
		cfg.Remotes[name] = r
		if err := saveRemotesConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("token saved for remote %q\n", name)
		return nil
	},
}
