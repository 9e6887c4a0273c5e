package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/daygap/internal/core/eventbus"
	"github.com/hay-kot/daygap/internal/profiler"
)

type SweepCmd struct {
	flags *Flags
	app   *App

	watch     bool
	pprofPort int
}

// NewSweepCmd creates a new sweep command
func NewSweepCmd(flags *Flags, app *App) *SweepCmd {
	return &SweepCmd{flags: flags, app: app}
}

// Register adds the sweep command to the application
func (cmd *SweepCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sweep",
		Usage:     "Clean up data outside the rolling window",
		UsageText: "daygap sweep [--watch]",
		Description: `Deletes stored gaps and cached busy blocks for dates that have left
the 15-day rolling window. With --watch, stays running and sweeps on
the configured schedule until interrupted.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "watch",
				Usage:       "keep running and sweep on the configured schedule",
				Destination: &cmd.watch,
			},
			&cli.IntFlag{
				Name:        "pprof-port",
				Usage:       "serve pprof on this port while watching (0 disables)",
				Destination: &cmd.pprofPort,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SweepCmd) run(ctx context.Context, c *cli.Command) error {
	if !cmd.watch {
		cmd.app.Sweeper.Run(ctx)
		fmt.Println("Sweep complete")
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Preference edits that reach this process recompute through the
	// scheduler so rapid edits debounce into one pass.
	cmd.app.Bus.SubscribePreferenceChanged(func(p eventbus.PreferenceChangedPayload) {
		if p.Result.RequiresRecalculation {
			cmd.app.Scheduler.Trigger(p.Result.AffectedDates, p.Result.RequiresImmediateUpdate)
		}
	})

	go cmd.app.Bus.Run(ctx)
	go cmd.app.Scheduler.Run(ctx)

	if cmd.pprofPort > 0 {
		srv := profiler.New(cmd.pprofPort)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Shutdown(context.Background()) //nolint:errcheck
	}

	if err := cmd.app.Sweeper.Start(ctx, cmd.app.Config.Sweep.Schedule); err != nil {
		return err
	}
	defer cmd.app.Sweeper.Stop()

	fmt.Printf("Sweeping on schedule %q, ctrl-c to stop\n", cmd.app.Config.Sweep.Schedule)
	<-ctx.Done()
	return nil
}
