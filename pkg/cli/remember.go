package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func rememberCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:      "remember",
		Usage:     "Store a fact in long-term memory",
		ArgsUsage: "<fact>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			fact := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if fact == "" {
				return goerr.New("fact text is required")
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			mgr, err := cfg.newManager(gemini)
			if err != nil {
				return err
			}
			if err := mgr.Init(ctx); err != nil {
				return err
			}
			defer mgr.Close(ctx)

			id, err := mgr.StoreFact(ctx, fact, nil)
			if err != nil {
				return goerr.Wrap(err, "failed to store fact")
			}

			fmt.Fprintf(c.Root().Writer, "Remembered (%s): %s\n", id, fact)
			return nil
		},
	}
}
