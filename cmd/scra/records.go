package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillpoint/scraverify/internal/client"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect finished verification records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List verification records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		sessionID, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		req := &client.ListRecordsRequest{
			UserID:    userID,
			SessionID: sessionID,
			Limit:     limit,
			Offset:    offset,
		}
		if status != "" {
			req.Status = strings.Split(status, ",")
		}

		resp, err := verifyClient.ListRecords(cmd.Context(), req)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(resp)
		}
		return printRecordTable(resp.Records, resp.Total)
	},
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show one verification record with its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record ID %q", args[0])
		}

		rec, err := verifyClient.GetRecord(cmd.Context(), id)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(rec)
		}
		return printRecordDetail(rec)
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record you own, including its stored screenshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record ID %q", args[0])
		}
		if userID == "" {
			return fmt.Errorf("--user (or SCRAV_USER_ID) is required to delete a record")
		}

		if err := verifyClient.DeleteRecord(cmd.Context(), id, userID); err != nil {
			return err
		}
		fmt.Printf("record %d deleted\n", id)
		return nil
	},
}

func init() {
	recordsListCmd.Flags().String("status", "", "filter by status (comma-separated)")
	recordsListCmd.Flags().String("session", "", "filter by session ID")
	recordsListCmd.Flags().Int("limit", 50, "maximum records to return")
	recordsListCmd.Flags().Int("offset", 0, "pagination offset")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsShowCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
}
