package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/pkg/iojson"
)

type StatusCmd struct {
	flags *Flags
	app   *App

	json bool
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, app *App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show window, storage, and cache health",
		UsageText: "daygap status [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.json,
			},
		},
		Action: cmd.run,
	})

	return app
}

type statusView struct {
	Window        string   `json:"window"`
	GapDates      int      `json:"gap_dates"`
	TaskCount     int      `json:"task_count"`
	CachedDates   int      `json:"cached_dates"`
	DedupeRecords int      `json:"dedupe_records"`
	NeedsCleanup  bool     `json:"needs_cleanup"`
	Violations    []string `json:"violations,omitempty"`
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	win := cmd.app.Service.Window()

	gapDates, err := cmd.app.Gaps.Dates(ctx)
	if err != nil {
		return fmt.Errorf("list gap dates: %w", err)
	}
	taskCount, err := cmd.app.Tasks.Count(ctx)
	if err != nil {
		return fmt.Errorf("count tasks: %w", err)
	}
	dedupeCount, err := cmd.app.Decisions.Count(ctx)
	if err != nil {
		return fmt.Errorf("count dedupe records: %w", err)
	}

	// The guard starts each process with an empty usage map; feed it current
	// sizes before reading its verdicts.
	cmd.app.Guard.Observe(cache.CollectionTasks, taskCount, 0)
	cmd.app.Guard.Observe(cache.CollectionBusyBlocks, cmd.app.Busy.BlockCount(), 0)
	cmd.app.Guard.Observe(cache.CollectionValidationResults, dedupeCount, 0)
	cmd.app.Service.CheckPressure()

	view := statusView{
		Window:        win.String(),
		GapDates:      len(gapDates),
		TaskCount:     taskCount,
		CachedDates:   cmd.app.Busy.Len(),
		DedupeRecords: dedupeCount,
		NeedsCleanup:  cmd.app.Guard.NeedsCleanup(),
	}
	for _, v := range cmd.app.Guard.CheckViolations() {
		if v.Percent == 0 {
			continue
		}
		line := fmt.Sprintf("%s: %d entries (%.0f%% of limit)", v.Collection, v.Count, v.Percent)
		if v.Exceeded {
			line += " EXCEEDED"
		}
		view.Violations = append(view.Violations, line)
	}

	if cmd.json {
		return iojson.Write(view)
	}

	fmt.Printf("Window:         %s\n", view.Window)
	fmt.Printf("Gap dates:      %d\n", view.GapDates)
	fmt.Printf("Tasks:          %d\n", view.TaskCount)
	fmt.Printf("Cached dates:   %d\n", view.CachedDates)
	fmt.Printf("Dedupe records: %d\n", view.DedupeRecords)
	if view.NeedsCleanup {
		fmt.Println("Cache pressure: cleanup recommended")
		for _, v := range view.Violations {
			fmt.Printf("  %s\n", v)
		}
	} else {
		fmt.Println("Cache pressure: ok")
	}
	return nil
}
