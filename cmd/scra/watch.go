package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/quillpoint/scraverify/internal/client"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/tracking"
	"github.com/quillpoint/scraverify/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow a verification session until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		once, _ := cmd.Flags().GetBool("once")
		return runWatch(cmd.Context(), args[0], interval, once)
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "poll interval when no event bus is configured")
	watchCmd.Flags().Bool("once", false, "print the current state and exit")
}

func watchSession(cmd *cobra.Command, sessionID string) error {
	return runWatch(cmd.Context(), sessionID, 5*time.Second, false)
}

func watchNATSURL() string {
	if s := os.Getenv("SCRAV_NATS_URL"); s != "" {
		return s
	}
	return activeRemoteNATSURL()
}

func runWatch(ctx context.Context, sessionID string, interval time.Duration, once bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		return watchOnce(ctx, sessionID)
	}

	natsURL := watchNATSURL()
	if natsURL == "" {
		return watchPoll(ctx, sessionID, interval)
	}
	return watchEvents(ctx, sessionID, natsURL)
}

func watchOnce(ctx context.Context, sessionID string) error {
	st, err := verifyClient.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(st)
	}
	printProgress(st.Session.SessionID, st.Session.Status.String(), st.Session.Progress, st.Session.CurrentStep, st.Session.ErrorMessage)
	return nil
}

// watchEvents follows the session over the event bus, re-snapshotting
// after a reconnect so nothing missed during the outage is lost.
func watchEvents(ctx context.Context, sessionID, natsURL string) error {
	reconnectCh := make(chan struct{}, 1)
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.ReconnectHandler(func(*nats.Conn) {
			select {
			case reconnectCh <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", natsURL, err)
	}
	defer sub.Close()

	tracker := tracking.New(sub, &clientSnapshotter{c: verifyClient}, slog.Default())
	defer tracker.Stop(sessionID)

	updates, err := tracker.Start(ctx, sessionID)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reconnectCh:
			// Starting again tears down the stale watch and takes a
			// fresh snapshot.
			updates, err = tracker.Start(ctx, sessionID)
			if err != nil {
				return err
			}
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Err != nil {
				fmt.Fprintf(os.Stderr, "watch: %v\n", u.Err)
				continue
			}
			done, err := printUpdate(u.View)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// watchPoll queries the session on an interval and prints when it
// changes. Used when no NATS URL is configured.
func watchPoll(ctx context.Context, sessionID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastUpdated time.Time
	query := func() (bool, error) {
		st, err := verifyClient.GetSession(ctx, sessionID)
		if err != nil {
			return false, err
		}
		s := st.Session
		if s.UpdatedAt.Equal(lastUpdated) && !lastUpdated.IsZero() {
			return false, nil
		}
		lastUpdated = s.UpdatedAt
		if jsonOutput {
			if err := printJSON(st); err != nil {
				return false, err
			}
		} else {
			printProgress(s.SessionID, s.Status.String(), s.Progress, s.CurrentStep, s.ErrorMessage)
		}
		return s.Status.IsTerminal(), nil
	}

	if done, err := query(); err != nil || done {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			done, err := query()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func printUpdate(v *tracking.View) (bool, error) {
	if v == nil || v.Session == nil {
		return false, nil
	}
	s := v.Session
	if jsonOutput {
		if err := printJSON(v); err != nil {
			return false, err
		}
	} else {
		printProgress(s.SessionID, s.Status.String(), s.Progress, s.CurrentStep, s.ErrorMessage)
	}
	return s.Status.IsTerminal(), nil
}

func printProgress(sessionID, status string, progress int, step, errMsg string) {
	line := fmt.Sprintf("%s  %s  %3d%%", sessionID, ui.RenderStatus(status), progress)
	if step != "" {
		line += "  " + ui.RenderMuted(step)
	}
	fmt.Println(line)
	if errMsg != "" {
		fmt.Fprintf(os.Stderr, "  error: %s\n", errMsg)
	}
}

// clientSnapshotter backs the tracker's snapshots with the HTTP API
// instead of direct store access.
type clientSnapshotter struct {
	c client.VerifyClient
}

func (s *clientSnapshotter) Snapshot(ctx context.Context, sessionID string) (*tracking.View, error) {
	st, err := s.c.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	shots, err := s.c.ListScreenshots(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}
	return &tracking.View{Session: st.Session, Screenshots: shots}, nil
}
