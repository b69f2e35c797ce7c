package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/quillpoint/scraverify/internal/client"
	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/ui"
)

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printSessionTable(sessions []*model.Session, total int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTATUS\tPROGRESS\tSTEP\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%s\n",
			s.SessionID,
			ui.RenderStatus(s.Status.String()),
			s.Progress,
			s.CurrentStep,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d sessions (%d total)\n", len(sessions), total)
	return nil
}

func printSessionDetail(st *client.SessionStatus) error {
	s := st.Session
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "session:\t%s\n", s.SessionID)
	if s.UserID != "" {
		fmt.Fprintf(w, "user:\t%s\n", s.UserID)
	}
	fmt.Fprintf(w, "status:\t%s\n", ui.RenderStatus(s.Status.String()))
	fmt.Fprintf(w, "progress:\t%d%%\n", s.Progress)
	if s.CurrentStep != "" {
		fmt.Fprintf(w, "step:\t%s\n", s.CurrentStep)
	}
	if s.ErrorMessage != "" {
		fmt.Fprintf(w, "error:\t%s\n", s.ErrorMessage)
	}
	fmt.Fprintf(w, "active:\t%t\n", st.Active)
	fmt.Fprintf(w, "created:\t%s\n", s.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "updated:\t%s\n", s.UpdatedAt.Local().Format(time.RFC3339))
	return w.Flush()
}

func printScreenshotTable(shots []*model.Screenshot) error {
	if len(shots) == 0 {
		fmt.Println("no screenshots")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tFILENAME\tSIZE\tUPLOADED\tURL")
	for _, s := range shots {
		url := s.URL
		if url == "" {
			url = ui.RenderMuted("(unsigned)")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			s.Step,
			s.Filename,
			s.FileSize,
			s.UploadedAt.Local().Format("2006-01-02 15:04:05"),
			url,
		)
	}
	return w.Flush()
}

func printRecordTable(records []*model.VerificationRecord, total int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSESSION\tSTATUS\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			r.ID,
			r.SessionID,
			ui.RenderStatus(r.Status.String()),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d records (%d total)\n", len(records), total)
	return nil
}

func printRecordDetail(r *model.VerificationRecord) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "record:\t%d\n", r.ID)
	fmt.Fprintf(w, "session:\t%s\n", r.SessionID)
	if r.UserID != "" {
		fmt.Fprintf(w, "user:\t%s\n", r.UserID)
	}
	fmt.Fprintf(w, "status:\t%s\n", ui.RenderStatus(r.Status.String()))
	fmt.Fprintf(w, "created:\t%s\n", r.CreatedAt.Local().Format(time.RFC3339))
	if err := w.Flush(); err != nil {
		return err
	}

	var res model.Result
	if err := json.Unmarshal(r.Result, &res); err != nil {
		fmt.Println(ui.RenderMuted("result: (unparseable)"))
		return nil
	}
	fmt.Println()
	fmt.Fprintf(w, "success:\t%t\n", res.Success)
	if res.TransactionID != "" {
		fmt.Fprintf(w, "transaction:\t%s\n", res.TransactionID)
	}
	if res.Error != "" {
		fmt.Fprintf(w, "error:\t%s\n", res.Error)
	}
	if len(res.Eligibility) > 0 {
		var elig model.Eligibility
		if err := json.Unmarshal(res.Eligibility, &elig); err == nil {
			fmt.Fprintf(w, "covered:\t%t\n", elig.Covered)
			fmt.Fprintf(w, "active duty:\t%t\n", elig.ActiveDutyCovered)
			if elig.ActiveDutyStartDate != "" {
				fmt.Fprintf(w, "active duty start:\t%s\n", elig.ActiveDutyStartDate)
			}
			if elig.EligibilityType != "" {
				fmt.Fprintf(w, "eligibility type:\t%s\n", elig.EligibilityType)
			}
		}
	}
	return w.Flush()
}
