package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillpoint/scraverify/internal/client"
	"github.com/quillpoint/scraverify/internal/model"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Submit a single active-duty verification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ssn, _ := cmd.Flags().GetString("ssn")
		first, _ := cmd.Flags().GetString("first")
		last, _ := cmd.Flags().GetString("last")
		middle, _ := cmd.Flags().GetString("middle")
		suffix, _ := cmd.Flags().GetString("suffix")
		dob, _ := cmd.Flags().GetString("dob")
		dutyDate, _ := cmd.Flags().GetString("duty-date")
		recordID, _ := cmd.Flags().GetString("record-id")
		wait, _ := cmd.Flags().GetBool("wait")

		req := &client.CreateVerificationRequest{
			UserID: userID,
			Person: model.Person{
				SSN:              ssn,
				FirstName:        first,
				LastName:         last,
				MiddleName:       middle,
				Suffix:           suffix,
				DateOfBirth:      dob,
				ActiveDutyDate:   dutyDate,
				CustomerRecordID: recordID,
			},
		}

		session, err := verifyClient.CreateVerification(cmd.Context(), req)
		if err != nil {
			return err
		}

		if !wait {
			if jsonOutput {
				return printJSON(session)
			}
			fmt.Printf("session %s submitted\n", session.SessionID)
			fmt.Printf("follow it with: scra watch %s\n", session.SessionID)
			return nil
		}

		return watchSession(cmd, session.SessionID)
	},
}

func init() {
	verifyCmd.Flags().String("ssn", "", "social security number (9 digits)")
	verifyCmd.Flags().String("first", "", "first name")
	verifyCmd.Flags().String("last", "", "last name")
	verifyCmd.Flags().String("middle", "", "middle name")
	verifyCmd.Flags().String("suffix", "", "name suffix (JR, SR, III)")
	verifyCmd.Flags().String("dob", "", "date of birth")
	verifyCmd.Flags().String("duty-date", "", "active duty status date")
	verifyCmd.Flags().String("record-id", "", "customer record ID")
	verifyCmd.Flags().Bool("wait", false, "follow the session until it finishes")

	verifyCmd.MarkFlagRequired("last")
	verifyCmd.MarkFlagRequired("first")
	verifyCmd.MarkFlagRequired("duty-date")
}
