// Package commands defines the CLI surface for daygap.
package commands

import (
	"os"
	"path/filepath"

	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/internal/config"
	"github.com/hay-kot/daygap/internal/core/eventbus"
	"github.com/hay-kot/daygap/internal/engine"
	"github.com/hay-kot/daygap/internal/store"
	"github.com/hay-kot/daygap/internal/store/jsonfile"
	"github.com/hay-kot/daygap/internal/sweep"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
}

// App carries the wired services. Populated in the root command's Before
// hook; commands hold a pointer to it and read it at action time.
type App struct {
	Config    *config.Config
	Bus       *eventbus.EventBus
	Service   *engine.Service
	Scheduler *engine.Scheduler
	Busy      *cache.BusyBlocks
	Guard     *cache.Guard
	Sweeper   *sweep.Sweeper

	Gaps      *jsonfile.GapStore
	Tasks     *jsonfile.TaskStore
	Prefs     *jsonfile.PrefStore
	Decisions *jsonfile.DecisionStore
	Recon     *store.ReconciliationStore
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "daygap", "config.yaml")
}

// configDirOf returns the directory holding the config file, where provider
// credentials also live.
func configDirOf(configPath string) string {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	return filepath.Dir(configPath)
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "daygap")
}
