package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"repoatlas/internal/app"
	"repoatlas/internal/diagram"
	"repoatlas/internal/orchestrator"
	t "repoatlas/internal/types"
	"repoatlas/internal/wiki"
)

var refreshFlag = &cli.BoolFlag{Name: "refresh", Usage: "ignore cached results"}

func keyArg(c *cli.Context) (t.GenerationKey, error) {
	if c.NArg() != 1 {
		return t.GenerationKey{}, cli.Exit("expected exactly one owner/repo argument", 2)
	}
	return t.ParseKey(c.Args().First())
}

func inFlightExit(err error) error {
	if errors.Is(err, orchestrator.ErrInFlight) {
		return cli.Exit(err.Error(), 3)
	}
	return err
}

func diagramCommand() *cli.Command {
	return &cli.Command{
		Name:      "diagram",
		Usage:     "Stream an architecture diagram for a repository",
		ArgsUsage: "owner/repo",
		Flags: []cli.Flag{
			refreshFlag,
			&cli.StringFlag{Name: "token", Usage: "access token for private repositories", EnvVars: []string{"REPOATLAS_TOKEN"}},
		},
		Action: withApp(diagramAction),
	}
}

func diagramAction(c *cli.Context, a *app.App) error {
	key, err := keyArg(c)
	if err != nil {
		return err
	}
	last := t.StatusIdle
	res, err := a.Orchestrator.GenerateDiagram(c.Context, orchestrator.DiagramRequest{
		Key:       key,
		AuthToken: c.String("token"),
		Refresh:   c.Bool("refresh"),
	}, func(s diagram.Session) {
		if s.Status != last {
			last = s.Status
			fmt.Fprintf(os.Stderr, "[%s] %s\n", s.Status, s.Message)
		}
	})
	if err != nil {
		return inFlightExit(err)
	}
	s := res.Session
	if s.Status == t.StatusError {
		return cli.Exit("diagram generation failed: "+s.Error, 1)
	}
	if !s.Terminal() {
		return cli.Exit("diagram generation cancelled", 130)
	}
	if s.Explanation != "" {
		fmt.Println(strings.TrimSpace(s.Explanation))
		fmt.Println()
	}
	fmt.Println(s.Diagram)
	return nil
}

func wikiCommand() *cli.Command {
	return &cli.Command{
		Name:      "wiki",
		Usage:     "Generate a wiki for a repository and print it as JSON",
		ArgsUsage: "owner/repo",
		Flags: []cli.Flag{
			refreshFlag,
			&cli.StringFlag{Name: "repo-type", Usage: "github, gitlab or bitbucket"},
			&cli.StringFlag{Name: "repo-url", Usage: "clone URL when not on github.com"},
			&cli.StringFlag{Name: "token", Usage: "access token for private repositories", EnvVars: []string{"REPOATLAS_TOKEN"}},
		},
		Action: withApp(wikiAction),
	}
}

func wikiAction(c *cli.Context, a *app.App) error {
	key, err := keyArg(c)
	if err != nil {
		return err
	}
	res, err := a.Orchestrator.GenerateWiki(c.Context, orchestrator.WikiRequest{
		Key:      key,
		RepoType: c.String("repo-type"),
		RepoURL:  c.String("repo-url"),
		Token:    c.String("token"),
		Refresh:  c.Bool("refresh"),
	}, func(task wiki.Task) {
		fmt.Fprintf(os.Stderr, "[%s] %s pending=%d\n", task.Status, task.Message, len(task.Pending()))
	})
	if err != nil {
		return inFlightExit(err)
	}
	task := res.Task
	if task.Status == t.TaskError {
		return cli.Exit("wiki generation failed: "+task.Error, 1)
	}
	if !task.Terminal() {
		return cli.Exit("wiki generation cancelled", 130)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(t.WikiResult{WikiStructure: task.Structure, GeneratedPages: task.GeneratedPages})
}
