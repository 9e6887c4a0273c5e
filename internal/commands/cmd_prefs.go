package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/pkg/iojson"
)

type PrefsCmd struct {
	flags *Flags
	app   *App

	json   bool
	reader iojson.FileReader[prefs.WorkPreferences]
}

// NewPrefsCmd creates a new prefs command
func NewPrefsCmd(flags *Flags, app *App) *PrefsCmd {
	return &PrefsCmd{flags: flags, app: app}
}

// Register adds the prefs command with its subcommands to the application
func (cmd *PrefsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "prefs",
		Usage:     "Show or update work preferences",
		UsageText: "daygap prefs <subcommand>",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show the effective work preferences",
				UsageText: "daygap prefs show [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON",
						Destination: &cmd.json,
					},
				},
				Action: cmd.runShow,
			},
			{
				Name:      "set",
				Usage:     "Replace work preferences from a JSON file or stdin",
				UsageText: "daygap prefs set [-f prefs.json]",
				Description: `Validates and stores the new preferences, classifies the change
against the previous snapshot, and recomputes every affected date.`,
				Flags:  []cli.Flag{cmd.reader.Flag()},
				Action: cmd.runSet,
			},
		},
	})

	return app
}

func (cmd *PrefsCmd) runShow(ctx context.Context, c *cli.Command) error {
	p, err := cmd.app.Prefs.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	if cmd.json {
		return iojson.Write(p)
	}

	fmt.Printf("Work hours:     %s - %s\n", p.WorkStart.Clock(), p.WorkEnd.Clock())
	fmt.Printf("Working days:   %s\n", p.WorkingDays)
	fmt.Printf("Min gap:        %d min\n", int(p.MinGapMinutes))
	fmt.Printf("Buffer:         %d min\n", int(p.BufferMinutes))
	fmt.Printf("Subtract busy:  %t\n", p.SubtractBusyBlocks)
	fmt.Printf("All-day policy: %s (%d min, %s)\n", p.AllDayBlockMode, int(p.AllDayBlockMinutes), p.AllDayBlockPosition)
	fmt.Printf("Dedupe:         %s\n", p.DedupeStrategy)
	if len(p.IncludedCalendars) > 0 {
		fmt.Printf("Calendars:      %v\n", p.IncludedCalendars)
	}
	return nil
}

func (cmd *PrefsCmd) runSet(ctx context.Context, c *cli.Command) error {
	newPrefs, err := cmd.reader.Read()
	if err != nil {
		return err
	}

	oldPrefs, err := cmd.app.Prefs.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("load current preferences: %w", err)
	}

	if err := cmd.app.Prefs.Save(ctx, newPrefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}

	result, err := cmd.app.Service.ApplyPreferenceChange(ctx, oldPrefs, newPrefs)
	if err != nil {
		return fmt.Errorf("apply preference change: %w", err)
	}

	fmt.Printf("Preferences saved: %s\n", result.Summary)
	if !result.RequiresRecalculation {
		return nil
	}

	// Dispatch through the scheduler so a burst of edits debounces into one
	// pass, then hold the process open until the recompute lands.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cmd.app.Scheduler.Run(runCtx)

	cmd.app.Scheduler.Trigger(result.AffectedDates, result.RequiresImmediateUpdate)
	cmd.app.Scheduler.Wait()

	fmt.Printf("Recomputed %d date(s)\n", len(result.AffectedDates))
	return nil
}
