package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "assistant",
		Usage: "Personal assistant with skills and long-term memory",
		Commands: []*cli.Command{
			chatCommand(),
			rememberCommand(),
			recallCommand(),
			exportCommand(),
			skillsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
