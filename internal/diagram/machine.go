package diagram

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"repoatlas/internal/logging"
	"repoatlas/internal/stream"
	t "repoatlas/internal/types"
)

// Streamer opens the diagram event stream. A non-nil error means no frame
// was received; the returned body belongs to the caller.
type Streamer interface {
	StreamDiagram(ctx context.Context, key t.GenerationKey, authToken string) (io.ReadCloser, error)
}

// Machine drives one diagram session per Run call.
type Machine struct {
	streamer Streamer
	logger   *zap.Logger
}

func NewMachine(streamer Streamer, logger *zap.Logger) *Machine {
	return &Machine{streamer: streamer, logger: logging.OrNop(logger)}
}

// Run streams a diagram for key and returns the final session. Failures end
// up in the session status, never in a returned error. When ctx is cancelled
// the session is returned as last applied and nothing later is applied.
func (m *Machine) Run(ctx context.Context, key t.GenerationKey, authToken string, onUpdate func(Session)) Session {
	logger := m.logger.With(
		zap.String("session_id", uuid.NewString()),
		zap.String("owner", key.Owner),
		zap.String("repo", key.Repo),
	)
	notify := func(s Session) {
		if onUpdate != nil {
			onUpdate(s)
		}
	}

	s := NewSession(key)
	body, err := m.streamer.StreamDiagram(ctx, key, authToken)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("diagram stream cancelled before start")
			return s
		}
		logger.Error("diagram stream request failed", zap.Error(err))
		s = s.Fail(fmt.Sprintf("diagram request failed: %v", err))
		notify(s)
		return s
	}

	dec := stream.NewDecoder(body, logger)
	defer dec.Close()
	stop := context.AfterFunc(ctx, func() { _ = dec.Close() })
	defer stop()

	for f, err := range dec.All() {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			logger.Error("diagram stream broke", zap.Error(err))
			s = s.Fail(err.Error())
			notify(s)
			break
		}
		s = Apply(s, f)
		notify(s)
		if s.Terminal() {
			break
		}
	}

	switch {
	case ctx.Err() != nil:
		logger.Info("diagram session cancelled", zap.String("status", string(s.Status)))
	case !s.Terminal():
		s = s.Fail("stream ended before completion")
		notify(s)
		logger.Warn("diagram stream ended without terminal frame")
	case s.Status == t.StatusError:
		logger.Warn("diagram generation failed", zap.String("error", s.Error))
	default:
		logger.Info("diagram generation complete",
			zap.Int("explanation_bytes", len(s.Explanation)),
			zap.Int("diagram_bytes", len(s.Diagram)),
			zap.Int("discarded_frames", dec.Discarded()),
		)
	}
	return s
}
