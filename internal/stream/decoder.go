package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"go.uber.org/zap"

	"repoatlas/internal/logging"
)

// MaxLineSize bounds one stream line. Longer lines are discarded.
const MaxLineSize = 4 << 20

var dataPrefix = []byte("data:")

// Decoder turns a response body into a lazy, finite sequence of frames.
// It owns the body: Close releases it, and All releases it however the
// iteration ends.
type Decoder struct {
	body    io.ReadCloser
	r       *bufio.Reader
	logger  *zap.Logger
	maxLine int

	done      bool
	discarded int

	closeOnce sync.Once
	closeErr  error
}

func NewDecoder(body io.ReadCloser, logger *zap.Logger) *Decoder {
	return &Decoder{
		body:    body,
		r:       bufio.NewReaderSize(body, 64*1024),
		logger:  logging.OrNop(logger),
		maxLine: MaxLineSize,
	}
}

// Next returns the next well-formed frame. It returns io.EOF once the body
// is exhausted, or the transport error that ended the body early.
// Malformed lines are logged and skipped.
func (d *Decoder) Next() (Frame, error) {
	for {
		if d.done {
			return nil, io.EOF
		}
		line, tooLong, err := d.readLine()
		if err != nil {
			d.done = true
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read stream: %w", err)
			}
		}
		if tooLong {
			d.discarded++
			d.logger.Warn("stream: discarding malformed frame",
				zap.Error(errLineTooLong),
				zap.Int("limit", d.maxLine),
			)
			continue
		}
		if f, ok := d.decodeLine(line); ok {
			return f, nil
		}
	}
}

var errLineTooLong = errors.New("line exceeds size limit")

// readLine returns one line including its newline. A line longer than
// maxLine is consumed to its end and reported as tooLong without keeping
// its bytes.
func (d *Decoder) readLine() (line []byte, tooLong bool, err error) {
	for {
		chunk, err := d.r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > d.maxLine {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}

func (d *Decoder) decodeLine(line []byte) (Frame, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return nil, false
	}
	f, err := ParsePayload(payload)
	if err != nil {
		d.discarded++
		d.logger.Warn("stream: discarding malformed frame",
			zap.Error(err),
			zap.Int("bytes", len(payload)),
		)
		return nil, false
	}
	return f, true
}

// Discarded reports how many candidate lines failed to decode.
func (d *Decoder) Discarded() int { return d.discarded }

// Close releases the underlying body. Safe to call more than once and from
// another goroutine to unblock a pending Next.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.body.Close()
	})
	return d.closeErr
}

// All yields frames until the body ends. A transport failure is yielded
// once as a nil frame with a non-nil error. The body is closed when the
// sequence finishes or the consumer stops early.
func (d *Decoder) All() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		defer d.Close()
		for {
			f, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}
