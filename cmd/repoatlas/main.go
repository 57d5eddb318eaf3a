// Command repoatlas drives diagram and wiki generation against a running
// generation service.
//
// Usage:
//
//	repoatlas <command> [options] owner/repo
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"repoatlas/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:           "repoatlas",
		Usage:          "Generate architecture diagrams and wikis for repositories",
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			diagramCommand(),
			wikiCommand(),
			askCommand(),
			projectsCommand(),
			languagesCommand(),
		},
	}
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		os.Exit(1)
	}
}

func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", exitCoder.ExitCode()) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitCoder.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// withApp builds the app for one command and closes it afterwards.
func withApp(fn func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := app.New()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}
