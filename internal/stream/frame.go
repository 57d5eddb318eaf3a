// Package stream decodes the diagram generation event stream into typed
// frames.
//
// The wire format is newline-delimited text. Lines starting with "data:"
// carry one JSON payload each; every other line is ignored.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	t "repoatlas/internal/types"
)

// Frame is one decoded protocol unit. The concrete type is one of
// Progress, Chunk, Complete or Failure.
type Frame interface {
	Status() t.StatusTag
	isFrame()
}

// Progress carries a display message for stage markers
// (started, *_sent and bare stage names).
type Progress struct {
	Tag     t.StatusTag
	Message string
}

// Chunk carries text to append to one of the session buffers.
type Chunk struct {
	Tag    t.StatusTag
	Buffer t.Buffer
	Text   string
}

// Complete carries the final snapshots. Empty fields were not sent.
type Complete struct {
	Explanation string
	Mapping     string
	Diagram     string
}

// Failure is the protocol-level error frame. Always terminal.
type Failure struct {
	Error string
}

func (f Progress) Status() t.StatusTag { return f.Tag }
func (f Chunk) Status() t.StatusTag    { return f.Tag }
func (Complete) Status() t.StatusTag   { return t.StatusComplete }
func (Failure) Status() t.StatusTag    { return t.StatusError }

func (Progress) isFrame() {}
func (Chunk) isFrame()    {}
func (Complete) isFrame() {}
func (Failure) isFrame()  {}

var ErrUnknownStatus = errors.New("unknown frame status")

// wireFrame is the JSON shape emitted by the service.
type wireFrame struct {
	Status      string  `json:"status"`
	Chunk       *string `json:"chunk"`
	Message     string  `json:"message"`
	Explanation string  `json:"explanation"`
	Mapping     string  `json:"mapping"`
	Diagram     string  `json:"diagram"`
	Error       *string `json:"error"`
}

// ParsePayload converts one JSON payload into a Frame. A payload with a
// non-empty error field is a Failure whatever its status says.
func ParsePayload(payload []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if w.Error != nil && strings.TrimSpace(*w.Error) != "" {
		return Failure{Error: *w.Error}, nil
	}

	tag := t.StatusTag(strings.TrimSpace(w.Status))
	if !tag.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, w.Status)
	}
	if buf, ok := tag.ChunkBuffer(); ok {
		c := Chunk{Tag: tag, Buffer: buf}
		if w.Chunk != nil {
			c.Text = *w.Chunk
		}
		return c, nil
	}
	switch tag {
	case t.StatusComplete:
		return Complete{Explanation: w.Explanation, Mapping: w.Mapping, Diagram: w.Diagram}, nil
	case t.StatusError:
		// status "error" without a message still ends the session.
		return Failure{Error: firstNonEmpty(w.Message, "generation failed")}, nil
	default:
		return Progress{Tag: tag, Message: w.Message}, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
