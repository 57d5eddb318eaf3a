package types

// StatusTag is the progress status carried by diagram stream frames.
type StatusTag string

const (
	StatusIdle             StatusTag = "idle"
	StatusStarted          StatusTag = "started"
	StatusExplanationSent  StatusTag = "explanation_sent"
	StatusExplanation      StatusTag = "explanation"
	StatusExplanationChunk StatusTag = "explanation_chunk"
	StatusMappingSent      StatusTag = "mapping_sent"
	StatusMapping          StatusTag = "mapping"
	StatusMappingChunk     StatusTag = "mapping_chunk"
	StatusDiagramSent      StatusTag = "diagram_sent"
	StatusDiagram          StatusTag = "diagram"
	StatusDiagramChunk     StatusTag = "diagram_chunk"
	StatusComplete         StatusTag = "complete"
	StatusError            StatusTag = "error"
)

// Buffer names one of the three accumulated diagram session texts.
type Buffer int

const (
	BufferNone Buffer = iota
	BufferExplanation
	BufferMapping
	BufferDiagram
)

func (b Buffer) String() string {
	switch b {
	case BufferExplanation:
		return "explanation"
	case BufferMapping:
		return "mapping"
	case BufferDiagram:
		return "diagram"
	default:
		return "none"
	}
}

// Known reports whether s is a wire status (idle is synthetic and not sent).
func (s StatusTag) Known() bool {
	switch s {
	case StatusStarted,
		StatusExplanationSent, StatusExplanation, StatusExplanationChunk,
		StatusMappingSent, StatusMapping, StatusMappingChunk,
		StatusDiagramSent, StatusDiagram, StatusDiagramChunk,
		StatusComplete, StatusError:
		return true
	}
	return false
}

// ChunkBuffer returns the buffer a *_chunk status appends to.
func (s StatusTag) ChunkBuffer() (Buffer, bool) {
	switch s {
	case StatusExplanationChunk:
		return BufferExplanation, true
	case StatusMappingChunk:
		return BufferMapping, true
	case StatusDiagramChunk:
		return BufferDiagram, true
	}
	return BufferNone, false
}

func (s StatusTag) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// TaskStatus is the state of a remote wiki generation task.
type TaskStatus string

const (
	TaskProcessing TaskStatus = "processing"
	TaskSuccess    TaskStatus = "success"
	TaskError      TaskStatus = "error"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskSuccess || s == TaskError
}
