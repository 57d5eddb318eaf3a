package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	t "repoatlas/internal/types"
)

type diagramRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Token string `json:"token,omitempty"`
}

// StreamDiagram starts diagram generation and returns the event stream
// body. The caller owns and must close it.
func (c *Client) StreamDiagram(ctx context.Context, key t.GenerationKey, authToken string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/diagram/generate", nil, diagramRequest{
		Owner: key.Owner,
		Repo:  key.Repo,
		Token: authToken,
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("diagram stream opened",
		zap.String("owner", key.Owner),
		zap.String("repo", key.Repo),
		zap.String("proto", resp.Proto),
	)
	return resp.Body, nil
}

type cachedDiagram struct {
	Diagram string `json:"diagram"`
}

type cacheDiagramRequest struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Diagram string `json:"diagram"`
}

func (c *Client) GetCachedDiagram(ctx context.Context, key t.GenerationKey) (string, error) {
	var out cachedDiagram
	q := url.Values{"owner": {key.Owner}, "repo": {key.Repo}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/diagram/cached", q, nil, &out); err != nil {
		return "", err
	}
	if out.Diagram == "" {
		return "", ErrNotFound
	}
	return out.Diagram, nil
}

func (c *Client) PutCachedDiagram(ctx context.Context, key t.GenerationKey, diagram string) error {
	var ack struct {
		Message string `json:"message"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/diagram/cached", nil, cacheDiagramRequest{
		Owner:   key.Owner,
		Repo:    key.Repo,
		Diagram: diagram,
	}, &ack)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	// The service answers 200 even when it could not write the file.
	if ack.Message == "Failed to cache diagram." {
		return fmt.Errorf("cache diagram %s: %s", key, ack.Message)
	}
	return nil
}
