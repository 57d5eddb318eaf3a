// Package ask is the client of the service's repository chat socket. One
// request is sent per connection; the answer streams back as text frames
// until the server closes.
package ask

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"repoatlas/internal/logging"
)

const chatPath = "/ws/chat"

var ErrNoQuestion = errors.New("last message must be from the user")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	RepoURL  string    `json:"repo_url"`
	Messages []Message `json:"messages"`
	FilePath string    `json:"filePath,omitempty"`
	Token    string    `json:"token,omitempty"`
	Type     string    `json:"type,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Model    string    `json:"model,omitempty"`
	Language string    `json:"language,omitempty"`
}

// RemoteError is an answer the service sent in place of content.
type RemoteError struct {
	Text string
}

func (e *RemoteError) Error() string { return "ask: " + e.Text }

type Client struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger
}

// New derives the socket URL from the service base URL.
func New(baseURL string, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path += chatPath
	return &Client{
		url:    u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logging.OrNop(logger),
	}, nil
}

func (c *Client) URL() string { return c.url }

// Ask sends req and returns the concatenated answer. onChunk, when set, sees
// every frame as it arrives.
func (c *Client) Ask(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	if len(req.Messages) == 0 || req.Messages[len(req.Messages)-1].Role != "user" {
		return "", ErrNoQuestion
	}
	if req.Type == "" {
		req.Type = "github"
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		return "", fmt.Errorf("send ask request: %w", err)
	}
	c.logger.Debug("ask request sent", zap.String("repo_url", req.RepoURL), zap.Int("messages", len(req.Messages)))

	var b strings.Builder
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				break
			}
			if ctx.Err() != nil {
				return b.String(), ctx.Err()
			}
			return b.String(), fmt.Errorf("read ask answer: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		chunk := string(data)
		if b.Len() == 0 && strings.HasPrefix(chunk, "Error") {
			return "", &RemoteError{Text: chunk}
		}
		b.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	c.logger.Debug("ask answer complete", zap.Int("bytes", b.Len()))
	return b.String(), nil
}
