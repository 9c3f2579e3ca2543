package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/IamTinashe/personal-assistant-agent/pkg/memory"
	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

func recallCommand() *cli.Command {
	var (
		cfg         config
		query       string
		limit       int64
		memoryTypes []string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Search query",
			Required:    true,
			Destination: &query,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of results",
			Value:       5,
			Destination: &limit,
		},
		&cli.StringSliceFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Filter by memory type (conversation, fact, preference, task, note, context)",
			Destination: &memoryTypes,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "recall",
		Usage: "Search long-term memory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			var types []model.MemoryType
			for _, t := range memoryTypes {
				mt := model.MemoryType(t)
				if err := mt.Validate(); err != nil {
					return goerr.Wrap(err, "invalid memory type", goerr.V("type", t))
				}
				types = append(types, mt)
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

			results, err := mgr.SearchMemories(ctx, query, int(limit), &memory.SearchOptions{
				MemoryTypes: types,
			})
			if err != nil {
				return goerr.Wrap(err, "search failed")
			}

			w := c.Root().Writer
			if len(results) == 0 {
				fmt.Fprintln(w, "No memories found.")
				return nil
			}

			for i, r := range results {
				fmt.Fprintf(w, "%d. [%.3f] [%s] %s\n", i+1, r.Score, r.Entry.MemoryType, r.Entry.Content)
			}
			return nil
		},
	}
}
