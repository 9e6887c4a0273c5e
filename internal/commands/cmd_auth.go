package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/daygap/internal/providers/google"
)

type AuthCmd struct {
	flags *Flags
	app   *App
}

// NewAuthCmd creates a new auth command
func NewAuthCmd(flags *Flags, app *App) *AuthCmd {
	return &AuthCmd{flags: flags, app: app}
}

// Register adds the auth command to the application
func (cmd *AuthCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "auth",
		Usage:     "Authorize calendar providers",
		UsageText: "daygap auth <provider>",
		Commands: []*cli.Command{
			{
				Name:      "google",
				Usage:     "Run the Google Calendar authorization flow",
				UsageText: "daygap auth google",
				Description: `Opens a browser consent flow and stores the resulting token next to
credentials.json in the config directory.`,
				Action: cmd.runGoogle,
			},
		},
	})

	return app
}

func (cmd *AuthCmd) runGoogle(ctx context.Context, c *cli.Command) error {
	configDir := configDirOf(cmd.flags.ConfigPath)
	if err := google.Authorize(ctx, configDir); err != nil {
		return fmt.Errorf("google authorization: %w", err)
	}
	fmt.Println("Google Calendar authorized")
	return nil
}
