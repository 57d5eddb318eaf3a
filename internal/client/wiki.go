package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	t "repoatlas/internal/types"
)

type wikiTaskRequest struct {
	Owner    string         `json:"owner"`
	Repo     string         `json:"repo"`
	RepoType string         `json:"repo_type"`
	RepoURL  string         `json:"repo_url"`
	RepoInfo map[string]any `json:"repo_info"`
	Token    string         `json:"token,omitempty"`
}

type wikiTaskCreated struct {
	TaskID string `json:"task_id"`
}

// StartWiki creates a wiki generation task and returns its id.
func (c *Client) StartWiki(ctx context.Context, req t.WikiTaskRequest) (string, error) {
	repoURL := strings.TrimSpace(req.RepoURL)
	if repoURL == "" && req.RepoType == "github" {
		repoURL = "https://github.com/" + req.Key.String()
	}
	body := wikiTaskRequest{
		Owner:    req.Key.Owner,
		Repo:     req.Key.Repo,
		RepoType: req.RepoType,
		RepoURL:  repoURL,
		RepoInfo: map[string]any{
			"owner":     req.Key.Owner,
			"repo":      req.Key.Repo,
			"type":      req.RepoType,
			"repoUrl":   repoURL,
			"token":     nilIfEmpty(req.Token),
			"localPath": nil,
		},
		Token: req.Token,
	}
	var out wikiTaskCreated
	if err := c.doJSON(ctx, http.MethodPost, "/api/wiki/generate", nil, body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return "", fmt.Errorf("start wiki %s: empty task id", req.Key)
	}
	return out.TaskID, nil
}

// WikiStatus fetches the current state of a task.
func (c *Client) WikiStatus(ctx context.Context, taskID string) (t.WikiStatusReport, error) {
	var out t.WikiStatusReport
	path := "/api/wiki/status/" + url.PathEscape(strings.TrimSpace(taskID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return out, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return out, err
	}
	return out, nil
}

type wikiCacheRequest struct {
	Owner          string                `json:"owner"`
	Repo           string                `json:"repo"`
	RepoType       string                `json:"repo_type"`
	WikiStructure  *t.WikiStructure      `json:"wiki_structure"`
	GeneratedPages map[string]t.WikiPage `json:"generated_pages"`
}

// GetWikiCache returns ErrNotFound when nothing is cached.
func (c *Client) GetWikiCache(ctx context.Context, key t.GenerationKey, repoType string) (t.WikiResult, error) {
	var out t.WikiResult
	q := url.Values{"owner": {key.Owner}, "repo": {key.Repo}, "repo_type": {repoType}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/wiki_cache", q, nil, &out); err != nil {
		return t.WikiResult{}, err
	}
	if out.WikiStructure == nil {
		return t.WikiResult{}, ErrNotFound
	}
	return out, nil
}

func (c *Client) PutWikiCache(ctx context.Context, key t.GenerationKey, repoType string, data t.WikiResult) error {
	if data.WikiStructure == nil {
		return fmt.Errorf("cache wiki %s: wiki structure is required", key)
	}
	pages := data.GeneratedPages
	if pages == nil {
		pages = map[string]t.WikiPage{}
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/wiki_cache", nil, wikiCacheRequest{
		Owner:          key.Owner,
		Repo:           key.Repo,
		RepoType:       repoType,
		WikiStructure:  data.WikiStructure,
		GeneratedPages: pages,
	}, nil)
	return err
}

func nilIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
