package client

import (
	"context"
	"errors"
	"net/http"
	"sort"

	t "repoatlas/internal/types"
)

// ProcessedProjects lists previously generated wikis, newest first.
func (c *Client) ProcessedProjects(ctx context.Context) ([]t.ProcessedProject, error) {
	var out []t.ProcessedProject
	if err := c.doJSON(ctx, http.MethodGet, "/api/processed_projects", nil, nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []t.ProcessedProject{}, nil
		}
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt > out[j].SubmittedAt })
	return out, nil
}

func (c *Client) LanguageConfig(ctx context.Context) (t.LanguageConfig, error) {
	var out t.LanguageConfig
	if err := c.doJSON(ctx, http.MethodGet, "/lang/config", nil, nil, &out); err != nil {
		return t.LanguageConfig{}, err
	}
	return out, nil
}
