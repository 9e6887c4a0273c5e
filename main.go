package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/internal/commands"
	"github.com/hay-kot/daygap/internal/config"
	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/eventbus"
	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/engine"
	"github.com/hay-kot/daygap/internal/providers/google"
	"github.com/hay-kot/daygap/internal/providers/ics"
	"github.com/hay-kot/daygap/internal/store"
	"github.com/hay-kot/daygap/internal/store/jsonfile"
	"github.com/hay-kot/daygap/internal/sweep"
	"github.com/hay-kot/daygap/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		gapApp    = &commands.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "daygap",
		Usage:     "Find the free time between your tasks and calendars",
		UsageText: "daygap [global options] command [command options]",
		Description: `Daygap computes the free time gaps in your working day by reconciling
scheduled tasks with calendar busy blocks across a 15-day rolling window.

Run 'daygap gaps' to see today's free time.
Run 'daygap sync' to reconcile with the remote backend.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("DAYGAP_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/daygap.log)",
				Sources:     cli.EnvVars("DAYGAP_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("DAYGAP_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("DAYGAP_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/daygap.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "daygap.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			loc, err := cfg.Location()
			if err != nil {
				return ctx, err
			}

			gaps := jsonfile.NewGapStore(filepath.Join(cfg.DataDir, "gaps.json"))
			tasks := jsonfile.NewTaskStore(filepath.Join(cfg.DataDir, "tasks.json"))
			prefStore := jsonfile.NewPrefStore(filepath.Join(cfg.DataDir, "prefs.json"))
			decisions := jsonfile.NewDecisionStore(filepath.Join(cfg.DataDir, "dedupe_decisions.json"), 500)

			bus := eventbus.New(0)
			busy := cache.NewBusyBlocks(cfg.BusyBlockTTL())
			guard := cache.NewGuard(map[cache.Collection]cache.Limit{
				cache.CollectionTasks:             {MaxCount: cfg.Cache.MaxTasks},
				cache.CollectionGaps:              {MaxCount: cfg.Cache.MaxGaps},
				cache.CollectionBusyBlocks:        {MaxCount: cfg.Cache.MaxBusyBlocks},
				cache.CollectionValidationResults: {MaxCount: 500},
			}, 0, 0)

			providers, err := buildProviders(ctx, cfg, flags, loc)
			if err != nil {
				return ctx, err
			}

			busySource := engine.NewBusySource(providers, busy, decisions)
			busySource.SetTimeouts(
				time.Duration(cfg.Fetch.TodayTimeoutSeconds)*time.Second,
				time.Duration(cfg.Fetch.OtherTimeoutSeconds)*time.Second,
			)

			service := engine.NewService(gaps, tasks, prefStore, busySource, bus, guard)
			scheduler := engine.NewScheduler(service, cfg.Debounce())

			var recon *store.ReconciliationStore
			if cfg.Remote.BaseURL != "" {
				remote := store.NewHTTPRemote(cfg.Remote.BaseURL, cfg.Remote.UserID, cfg.Remote.Token)
				recon = store.NewReconciliationStore(tasks, gaps, prefStore, remote, bus)
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*gapApp = commands.App{
				Config:    cfg,
				Bus:       bus,
				Service:   service,
				Scheduler: scheduler,
				Busy:      busy,
				Guard:     guard,
				Sweeper:   sweep.New(service, busy, guard, tasks),
				Gaps:      gaps,
				Tasks:     tasks,
				Prefs:     prefStore,
				Decisions: decisions,
				Recon:     recon,
			}

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewGapsCmd(flags, gapApp).Register(app)
	app = commands.NewTaskCmd(flags, gapApp).Register(app)
	app = commands.NewPrefsCmd(flags, gapApp).Register(app)
	app = commands.NewSyncCmd(flags, gapApp).Register(app)
	app = commands.NewStatusCmd(flags, gapApp).Register(app)
	app = commands.NewSweepCmd(flags, gapApp).Register(app)
	app = commands.NewAuthCmd(flags, gapApp).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}

// buildProviders assembles the configured calendar providers. A Google
// provider that cannot authenticate is skipped with a warning so offline use
// keeps working.
func buildProviders(ctx context.Context, cfg *config.Config, flags *commands.Flags, loc *time.Location) ([]calendar.Provider, error) {
	var providers []calendar.Provider

	if len(cfg.ICSFeeds) > 0 {
		feeds := make([]ics.Feed, 0, len(cfg.ICSFeeds))
		for _, f := range cfg.ICSFeeds {
			feeds = append(feeds, ics.Feed{ID: f.ID, URL: f.URL})
		}
		providers = append(providers, ics.New(feeds, loc))
	}

	if cfg.Google.Enabled {
		configDir := filepath.Dir(flags.ConfigPath)
		client, err := google.Client(ctx, configDir)
		if err != nil {
			log.Warn().Err(err).Msg("google calendar unavailable, run 'daygap auth google'")
		} else {
			provider, err := google.New(ctx, client, loc)
			if err != nil {
				return nil, fmt.Errorf("google provider: %w", err)
			}
			providers = append(providers, provider)
		}
	}

	return providers, nil
}
