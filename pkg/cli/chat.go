package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/IamTinashe/personal-assistant-agent/pkg/assistant"
)

func chatCommand() *cli.Command {
	var (
		cfg    config
		stream bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "stream",
			Aliases:     []string{"s"},
			Usage:       "Stream response chunks as they arrive",
			Sources:     cli.EnvVars("ASSISTANT_STREAM"),
			Destination: &stream,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation with the assistant",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			a, err := cfg.newAssistant(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Shutdown(ctx); err != nil {
					fmt.Fprintf(c.Root().ErrWriter, "shutdown error: %v\n", err)
				}
			}()

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open input")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintln(w, "Chat session started. Type 'exit' to quit, 'new' for a fresh session.")

			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					continue
				}
				if err == io.EOF {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				switch message {
				case "":
					continue
				case "exit", "quit":
					fmt.Fprintln(w, "\nChat session completed")
					return nil
				case "new":
					a.NewSession(ctx)
					fmt.Fprintln(w, "Started a new session.")
					continue
				}

				if stream {
					if err := streamReply(ctx, a, message, w); err != nil {
						fmt.Fprintf(c.Root().ErrWriter, "error: %v\n", err)
					}
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithWriter(c.Root().ErrWriter))
				sp.Suffix = " thinking..."
				sp.Start()
				response, err := a.Chat(ctx, message)
				sp.Stop()

				if err != nil {
					fmt.Fprintf(c.Root().ErrWriter, "error: %v\n", err)
					continue
				}
				fmt.Fprintf(w, "%s\n", response)
			}

			fmt.Fprintln(w, "\nChat session completed")
			return nil
		},
	}
}

func streamReply(ctx context.Context, a *assistant.Assistant, message string, w io.Writer) error {
	seq, err := a.ChatStream(ctx, message)
	if err != nil {
		return err
	}

	for chunk, err := range seq {
		if err != nil {
			fmt.Fprintln(w)
			return err
		}
		fmt.Fprint(w, chunk)
	}
	fmt.Fprintln(w)
	return nil
}
