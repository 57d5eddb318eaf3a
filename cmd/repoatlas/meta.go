package main

import (
	"fmt"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"repoatlas/internal/app"
	"repoatlas/internal/ask"
)

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question about a repository",
		ArgsUsage: "question",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "repo-url", Usage: "repository to ask about", Required: true},
			&cli.StringFlag{Name: "repo-type", Usage: "github, gitlab or bitbucket"},
			&cli.StringFlag{Name: "file", Usage: "file in the repository to focus on"},
			&cli.StringFlag{Name: "token", Usage: "access token for private repositories", EnvVars: []string{"REPOATLAS_TOKEN"}},
		},
		Action: withApp(askAction),
	}
}

func askAction(c *cli.Context, a *app.App) error {
	if c.NArg() == 0 {
		return cli.Exit("expected a question", 2)
	}
	_, err := a.Ask.Ask(c.Context, ask.Request{
		RepoURL:  c.String("repo-url"),
		Messages: []ask.Message{{Role: "user", Content: c.Args().First()}},
		FilePath: c.String("file"),
		Token:    c.String("token"),
		Type:     c.String("repo-type"),
	}, func(chunk string) { fmt.Print(chunk) })
	fmt.Println()
	return err
}

func projectsCommand() *cli.Command {
	return &cli.Command{
		Name:   "projects",
		Usage:  "List wikis the service has already generated",
		Action: withApp(projectsAction),
	}
}

func projectsAction(c *cli.Context, a *app.App) error {
	projects, err := a.Client.ProcessedProjects(c.Context)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPO\tTYPE\tLANGUAGE\tSUBMITTED")
	for _, p := range projects {
		submitted := time.UnixMilli(p.SubmittedAt).Format(time.RFC3339)
		fmt.Fprintf(w, "%s/%s\t%s\t%s\t%s\n", p.Owner, p.Repo, p.RepoType, p.Language, submitted)
	}
	return w.Flush()
}

func languagesCommand() *cli.Command {
	return &cli.Command{
		Name:   "languages",
		Usage:  "List languages the service can write wikis in",
		Action: withApp(languagesAction),
	}
}

func languagesAction(c *cli.Context, a *app.App) error {
	cfg, err := a.Client.LanguageConfig(c.Context)
	if err != nil {
		return err
	}
	codes := make([]string, 0, len(cfg.SupportedLanguages))
	for code := range cfg.SupportedLanguages {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		marker := " "
		if code == cfg.Default {
			marker = "*"
		}
		fmt.Printf("%s %s\t%s\n", marker, code, cfg.SupportedLanguages[code])
	}
	return nil
}
