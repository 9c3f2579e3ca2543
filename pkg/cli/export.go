package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/IamTinashe/personal-assistant-agent/pkg/adapter"
)

func exportCommand() *cli.Command {
	var (
		cfg    config
		output string
		bucket string
		key    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Local output file",
			Value:       "memories.json",
			Destination: &output,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Cloud Storage bucket to upload the export to instead of a local file",
			Sources:     cli.EnvVars("ASSISTANT_EXPORT_BUCKET"),
			Destination: &bucket,
		},
		&cli.StringFlag{
			Name:        "key",
			Aliases:     []string{"k"},
			Usage:       "Object key within the bucket",
			Value:       "memories.json",
			Destination: &key,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export memories as JSON for backup",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

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

			entries, err := mgr.Export(ctx, nil)
			if err != nil {
				return goerr.Wrap(err, "export failed")
			}

			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal export")
			}

			w := c.Root().Writer
			if bucket != "" {
				store, err := adapter.NewStorage(ctx, bucket)
				if err != nil {
					return err
				}
				writer, err := store.Put(ctx, key)
				if err != nil {
					return goerr.Wrap(err, "failed to open storage object", goerr.V("key", key))
				}
				if _, err := writer.Write(data); err != nil {
					return goerr.Wrap(err, "failed to upload export")
				}
				if err := writer.Close(); err != nil {
					return goerr.Wrap(err, "failed to finalize upload")
				}
				fmt.Fprintf(w, "Exported %d memories to gs://%s/%s\n", len(entries), bucket, key)
				return nil
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return goerr.Wrap(err, "failed to write export", goerr.V("path", output))
			}
			fmt.Fprintf(w, "Exported %d memories to %s\n", len(entries), output)
			return nil
		},
	}
}
