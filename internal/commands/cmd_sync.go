package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/daygap/pkg/iojson"
)

type SyncCmd struct {
	flags *Flags
	app   *App

	json      bool
	recompute bool
}

// NewSyncCmd creates a new sync command
func NewSyncCmd(flags *Flags, app *App) *SyncCmd {
	return &SyncCmd{flags: flags, app: app}
}

// Register adds the sync command to the application
func (cmd *SyncCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sync",
		Usage:     "Reconcile local data with the remote backend",
		UsageText: "daygap sync [--recompute] [--json]",
		Description: `Pulls tasks, gaps, and preferences from the configured remote, merges
them into local storage, and pushes the merged state back. A remote
that cannot be reached leaves local data untouched.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "recompute",
				Usage:       "recompute the whole window after the merge",
				Destination: &cmd.recompute,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the sync report as JSON",
				Destination: &cmd.json,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SyncCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.app.Recon == nil {
		return fmt.Errorf("no remote configured, set remote.base_url in the config file")
	}

	report, err := cmd.app.Recon.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if cmd.recompute {
		if err := cmd.app.Service.RecomputeWindow(ctx); err != nil {
			return fmt.Errorf("recompute window: %w", err)
		}
	}

	if cmd.json {
		view := struct {
			RunID        string `json:"run_id"`
			TasksMerged  int    `json:"tasks_merged"`
			GapDates     int    `json:"gap_dates"`
			PrefsUpdated bool   `json:"prefs_updated"`
			RemoteErr    string `json:"remote_err,omitempty"`
			PushErr      string `json:"push_err,omitempty"`
		}{
			RunID:        report.RunID,
			TasksMerged:  report.TasksMerged,
			GapDates:     report.GapDates,
			PrefsUpdated: report.PrefsUpdated,
		}
		if report.RemoteErr != nil {
			view.RemoteErr = report.RemoteErr.Error()
		}
		if report.PushErr != nil {
			view.PushErr = report.PushErr.Error()
		}
		return iojson.Write(view)
	}

	if report.LocalOnly() {
		fmt.Println("Remote unreachable, local data kept as-is")
		return nil
	}
	fmt.Printf("Sync %s: %d task(s) merged, %d gap date(s) updated", report.RunID, report.TasksMerged, report.GapDates)
	if report.PrefsUpdated {
		fmt.Print(", preferences updated")
	}
	fmt.Println()
	if report.PushErr != nil {
		fmt.Printf("Push failed: %s\n", report.PushErr)
	}
	return nil
}
