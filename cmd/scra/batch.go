package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillpoint/scraverify/internal/batch"
	"github.com/quillpoint/scraverify/internal/ui"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Validate and convert multi-record request files",
}

var batchValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a CSV or fixed-width file without converting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		res, err := verifyClient.ValidateBatch(cmd.Context(), string(content))
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(res)
		}
		printRowErrors(res.Errors)
		if !res.Valid {
			return fmt.Errorf("%d rows failed validation", res.ErrorCount)
		}
		fmt.Printf("%d records valid\n", res.RecordCount)
		return nil
	},
}

var batchSubmitCmd = &cobra.Command{
	Use:     "submit <file>",
	Aliases: []string{"encode"},
	Short:   "Submit a request file for batch verification",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		res, err := verifyClient.SubmitBatch(cmd.Context(), string(content))
		if err != nil {
			return err
		}

		if !res.Valid {
			if jsonOutput {
				if err := printJSON(res); err != nil {
					return err
				}
			} else {
				printRowErrors(res.Errors)
			}
			return fmt.Errorf("batch rejected: %d rows failed validation", res.ErrorCount)
		}

		if outPath == "" {
			outPath = res.Filename
		}
		if err := os.WriteFile(outPath, []byte(res.Content), 0o644); err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(map[string]any{
				"valid":        res.Valid,
				"session_id":   res.SessionID,
				"record_count": res.RecordCount,
				"file":         outPath,
			})
		}
		fmt.Printf("%d records written to %s\n", res.RecordCount, outPath)
		if res.SessionID != "" {
			fmt.Printf("verification started, session %s\n", res.SessionID)
		}
		return nil
	},
}

func printRowErrors(errs []batch.RowError) {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderMuted(fmt.Sprintf("row %d:", e.Row)), e.Message)
	}
}

func init() {
	batchSubmitCmd.Flags().StringP("out", "o", "", "output path for the converted file (defaults to the server-assigned name)")

	batchCmd.AddCommand(batchValidateCmd)
	batchCmd.AddCommand(batchSubmitCmd)
}
