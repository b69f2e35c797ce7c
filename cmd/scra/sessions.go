package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillpoint/scraverify/internal/client"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect verification sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		sort, _ := cmd.Flags().GetString("sort")

		req := &client.ListSessionsRequest{
			UserID: userID,
			Sort:   sort,
			Limit:  limit,
			Offset: offset,
		}
		if status != "" {
			req.Status = strings.Split(status, ",")
		}

		resp, err := verifyClient.ListSessions(cmd.Context(), req)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(resp)
		}
		return printSessionTable(resp.Sessions, resp.Total)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := verifyClient.GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(st)
		}
		return printSessionDetail(st)
	},
}

var sessionsScreenshotsCmd = &cobra.Command{
	Use:   "screenshots <session-id>",
	Short: "List a session's checkpoint screenshots with signed URLs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		shots, err := verifyClient.ListScreenshots(cmd.Context(), args[0], refresh)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(shots)
		}
		return printScreenshotTable(shots)
	},
}

func init() {
	sessionsListCmd.Flags().String("status", "", "filter by status (comma-separated)")
	sessionsListCmd.Flags().Int("limit", 50, "maximum sessions to return")
	sessionsListCmd.Flags().Int("offset", 0, "pagination offset")
	sessionsListCmd.Flags().String("sort", "", "sort order (created_asc, created_desc)")

	sessionsScreenshotsCmd.Flags().Bool("refresh", false, "force new signed URLs, bypassing the cache")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsScreenshotsCmd)
}
