package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/pkg/iojson"
)

type TaskCmd struct {
	flags *Flags
	app   *App

	date   string
	json   bool
	reader iojson.FileReader[[]task.Task]
}

// NewTaskCmd creates a new task command
func NewTaskCmd(flags *Flags, app *App) *TaskCmd {
	return &TaskCmd{flags: flags, app: app}
}

// Register adds the task command with its subcommands to the application
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "task",
		Usage:     "List and import scheduled tasks",
		UsageText: "daygap task <subcommand>",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List tasks, optionally for one date",
				UsageText: "daygap task ls [--date YYYY-MM-DD] [--json]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "date",
						Aliases:     []string{"d"},
						Usage:       "only tasks due on this date",
						Destination: &cmd.date,
					},
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON",
						Destination: &cmd.json,
					},
				},
				Action: cmd.runLs,
			},
			{
				Name:      "import",
				Usage:     "Import tasks from a JSON file or stdin",
				UsageText: "daygap task import [-f tasks.json]",
				Description: `Upserts tasks by ID and queues gap recomputation for every affected
date. Input is a JSON array of task objects.`,
				Flags:  []cli.Flag{cmd.reader.Flag()},
				Action: cmd.runImport,
			},
		},
	})

	return app
}

func (cmd *TaskCmd) runLs(ctx context.Context, c *cli.Command) error {
	var (
		tasks []task.Task
		err   error
	)
	if cmd.date != "" {
		date, perr := timeutil.ParseDate(cmd.date)
		if perr != nil {
			return fmt.Errorf("parse date: %w", perr)
		}
		tasks, err = cmd.app.Tasks.TasksForDate(ctx, date)
	} else {
		tasks, err = cmd.app.Tasks.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if cmd.json {
		return iojson.Write(tasks)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks")
		return nil
	}
	for _, t := range tasks {
		due := "unscheduled"
		if t.DueTime != nil {
			due = t.DueTime.Clock()
		}
		fmt.Printf("  %-36s  %s %s  %-9s  %s\n", t.ID, t.DueDate, due, t.Status, t.Title)
	}
	return nil
}

func (cmd *TaskCmd) runImport(ctx context.Context, c *cli.Command) error {
	tasks, err := cmd.reader.Read()
	if err != nil {
		return err
	}

	dates := make(map[timeutil.Date]bool, len(tasks))
	now := time.Now()
	for i := range tasks {
		if tasks[i].ID == "" {
			return fmt.Errorf("task %d: missing id", i)
		}
		if tasks[i].UpdatedAt.IsZero() {
			tasks[i].UpdatedAt = now
		}
		dates[tasks[i].DueDate] = true
	}

	if err := cmd.app.Tasks.Upsert(ctx, tasks); err != nil {
		return fmt.Errorf("upsert tasks: %w", err)
	}

	win := cmd.app.Service.Window()
	recomputed := 0
	for d := range dates {
		if !win.Contains(d) {
			continue
		}
		if _, err := cmd.app.Service.RecomputeDate(ctx, d); err != nil {
			return fmt.Errorf("recompute %s: %w", d, err)
		}
		recomputed++
	}

	fmt.Printf("Imported %d task(s), recomputed %d date(s)\n", len(tasks), recomputed)
	return nil
}
