package diagram

import (
	"repoatlas/internal/stream"
	t "repoatlas/internal/types"
)

// Session is the client-side record of one diagram generation attempt.
type Session struct {
	Key         t.GenerationKey `json:"key"`
	Status      t.StatusTag     `json:"status"`
	Message     string          `json:"message,omitempty"`
	Explanation string          `json:"explanation"`
	Mapping     string          `json:"mapping"`
	Diagram     string          `json:"diagram"`
	Error       string          `json:"error,omitempty"`
}

func NewSession(key t.GenerationKey) Session {
	return Session{Key: key, Status: t.StatusIdle}
}

func (s Session) Terminal() bool { return s.Status.Terminal() }

// Fail moves a non-terminal session to error.
func (s Session) Fail(msg string) Session {
	if s.Terminal() {
		return s
	}
	s.Status = t.StatusError
	s.Error = msg
	return s
}

// Apply is the transition function. Frames reaching a terminal session are
// ignored.
func Apply(s Session, f stream.Frame) Session {
	if s.Terminal() || f == nil {
		return s
	}
	switch f := f.(type) {
	case stream.Failure:
		s.Status = t.StatusError
		s.Error = f.Error
	case stream.Chunk:
		s.Status = f.Tag
		switch f.Buffer {
		case t.BufferExplanation:
			s.Explanation += f.Text
		case t.BufferMapping:
			s.Mapping += f.Text
		case t.BufferDiagram:
			s.Diagram += f.Text
		}
	case stream.Complete:
		s.Status = t.StatusComplete
		if f.Explanation != "" {
			s.Explanation = f.Explanation
		}
		if f.Mapping != "" {
			s.Mapping = f.Mapping
		}
		if f.Diagram != "" {
			s.Diagram = f.Diagram
		}
	case stream.Progress:
		s.Status = f.Tag
		s.Message = f.Message
	}
	return s
}

// Replay folds frames over a fresh session.
func Replay(key t.GenerationKey, frames ...stream.Frame) Session {
	s := NewSession(key)
	for _, f := range frames {
		s = Apply(s, f)
	}
	return s
}
