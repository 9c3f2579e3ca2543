package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/IamTinashe/personal-assistant-agent/pkg/orchestrator"
	"github.com/IamTinashe/personal-assistant-agent/pkg/skill/notes"
	"github.com/IamTinashe/personal-assistant-agent/pkg/skill/reminder"
	"github.com/IamTinashe/personal-assistant-agent/pkg/skill/tasks"
)

func skillsCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "skills",
		Usage: "List available skills",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			orch := orchestrator.New()
			orch.Register(ctx, reminder.New(filepath.Join(cfg.dataDir, "reminders.json")))
			orch.Register(ctx, notes.New(filepath.Join(cfg.dataDir, "notes.json")))
			orch.Register(ctx, tasks.New(filepath.Join(cfg.dataDir, "tasks.json")))

			w := c.Root().Writer
			for _, info := range orch.List() {
				fmt.Fprintf(w, "%s (%s priority)\n", info.Name, info.Priority)
				fmt.Fprintf(w, "  %s\n", info.Description)
				fmt.Fprintf(w, "  intents:")
				for _, intent := range info.Intents {
					fmt.Fprintf(w, " %s", intent)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}
