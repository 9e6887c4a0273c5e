package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/pkg/iojson"
)

type GapsCmd struct {
	flags *Flags
	app   *App

	date      string
	recompute bool
	json      bool
}

// NewGapsCmd creates a new gaps command
func NewGapsCmd(flags *Flags, app *App) *GapsCmd {
	return &GapsCmd{flags: flags, app: app}
}

// Register adds the gaps command to the application
func (cmd *GapsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "gaps",
		Usage:     "Show free time gaps for a date",
		UsageText: "daygap gaps [--date YYYY-MM-DD] [--recompute] [--json]",
		Description: `Shows the free time gaps between scheduled tasks and calendar busy
blocks for one date. Gaps are computed on demand when none are stored.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "date",
				Aliases:     []string{"d"},
				Usage:       "date to show (defaults to today)",
				Destination: &cmd.date,
			},
			&cli.BoolFlag{
				Name:        "recompute",
				Usage:       "force a fresh computation, ignoring stored gaps",
				Destination: &cmd.recompute,
			},
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

func (cmd *GapsCmd) run(ctx context.Context, c *cli.Command) error {
	date := timeutil.DateOf(time.Now())
	if cmd.date != "" {
		var err error
		date, err = timeutil.ParseDate(cmd.date)
		if err != nil {
			return fmt.Errorf("parse date: %w", err)
		}
	}

	var (
		gaps []gap.Gap
		err  error
	)
	if cmd.recompute {
		gaps, err = cmd.app.Service.RecomputeDate(ctx, date)
	} else {
		gaps, err = cmd.app.Service.GapsForDate(ctx, date)
	}
	if err != nil {
		return fmt.Errorf("gaps for %s: %w", date, err)
	}

	if cmd.json {
		return iojson.Write(gaps)
	}

	if len(gaps) == 0 {
		fmt.Printf("No gaps on %s\n", date)
		return nil
	}

	fmt.Printf("Gaps on %s:\n", date)
	for _, g := range gaps {
		fmt.Printf("  %s - %s  (%d min)\n", g.Start.Clock(), g.End.Clock(), int(g.DurationMinutes))
	}
	return nil
}
