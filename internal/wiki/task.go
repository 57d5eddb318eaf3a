package wiki

import (
	"slices"

	t "repoatlas/internal/types"
)

// Task is the client-side view of a remote wiki generation task.
type Task struct {
	Key            t.GenerationKey
	TaskID         string
	Status         t.TaskStatus
	Message        string
	Error          string
	Structure      *t.WikiStructure
	GeneratedPages map[string]t.WikiPage
	// pending holds ids of pages not generated yet.
	pending map[string]struct{}
}

func newTask(key t.GenerationKey) Task {
	return Task{Key: key, Status: t.TaskProcessing, pending: map[string]struct{}{}}
}

// Completed builds the successful task view of a previously cached result.
func Completed(key t.GenerationKey, res t.WikiResult) Task {
	tk := newTask(key)
	tk.Status = t.TaskSuccess
	tk.Structure = res.WikiStructure
	tk.GeneratedPages = res.GeneratedPages
	return tk
}

func (tk Task) Terminal() bool { return tk.Status.Terminal() }

// Pending returns the ids still in flight, sorted.
func (tk Task) Pending() []string {
	out := make([]string, 0, len(tk.pending))
	for id := range tk.pending {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (tk Task) IsPending(pageID string) bool {
	_, ok := tk.pending[pageID]
	return ok
}

func (tk Task) clone() Task {
	c := tk
	c.pending = make(map[string]struct{}, len(tk.pending))
	for id := range tk.pending {
		c.pending[id] = struct{}{}
	}
	return c
}

func (tk Task) fail(msg string) Task {
	if tk.Terminal() {
		return tk
	}
	tk = tk.clone()
	tk.Status = t.TaskError
	tk.Error = msg
	return tk
}

// Observe folds one status report into the task. Reported progress replaces
// the pending set wholesale.
func Observe(tk Task, rep t.WikiStatusReport) Task {
	if tk.Terminal() {
		return tk
	}
	tk = tk.clone()
	if rep.Message != "" {
		tk.Message = rep.Message
	}
	if rep.Progress != nil {
		tk.pending = make(map[string]struct{}, len(rep.Progress))
		for _, id := range rep.Progress {
			tk.pending[id] = struct{}{}
		}
	}
	if rep.Result != nil && rep.Result.WikiStructure != nil {
		tk.Structure = rep.Result.WikiStructure
		if rep.Result.GeneratedPages != nil {
			tk.GeneratedPages = rep.Result.GeneratedPages
		}
	}

	switch {
	case rep.Error != "" || t.TaskStatus(rep.Status) == t.TaskError:
		tk.Status = t.TaskError
		tk.Error = firstNonEmpty(rep.Error, rep.Message, "wiki generation failed")
	case t.TaskStatus(rep.Status) == t.TaskSuccess:
		tk.Status = t.TaskSuccess
		clear(tk.pending)
	}
	return tk
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
