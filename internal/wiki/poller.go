// Package wiki drives create-then-poll wiki generation tasks.
package wiki

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"repoatlas/internal/logging"
	t "repoatlas/internal/types"
)

const DefaultInterval = 2 * time.Second

// Client is the part of the remote service the poller needs.
type Client interface {
	StartWiki(ctx context.Context, req t.WikiTaskRequest) (string, error)
	WikiStatus(ctx context.Context, taskID string) (t.WikiStatusReport, error)
}

type Poller struct {
	client   Client
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(client Client, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{client: client, interval: interval, logger: logging.OrNop(logger)}
}

// Run starts a task and polls it until it is terminal, a poll fails, or ctx
// is cancelled. Polls never overlap. A poll answer arriving after
// cancellation is dropped.
func (p *Poller) Run(ctx context.Context, req t.WikiTaskRequest, onUpdate func(Task)) Task {
	logger := p.logger.With(zap.String("owner", req.Key.Owner), zap.String("repo", req.Key.Repo))
	notify := func(task Task) {
		if onUpdate != nil {
			onUpdate(task.clone())
		}
	}

	task := newTask(req.Key)
	id, err := p.client.StartWiki(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return task
		}
		logger.Error("wiki task start failed", zap.Error(err))
		task = task.fail(fmt.Sprintf("start wiki task: %v", err))
		notify(task)
		return task
	}
	task.TaskID = id
	logger = logger.With(zap.String("task_id", id))
	logger.Info("wiki task started", zap.Duration("interval", p.interval))
	notify(task)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	polls := 0
	for {
		rep, err := p.client.WikiStatus(ctx, id)
		polls++
		if ctx.Err() != nil {
			logger.Info("wiki polling cancelled", zap.Int("polls", polls))
			return task
		}
		if err != nil {
			logger.Error("wiki status poll failed; polling stopped", zap.Error(err), zap.Int("polls", polls))
			task = task.fail(fmt.Sprintf("poll wiki task: %v", err))
			notify(task)
			return task
		}
		task = Observe(task, rep)
		notify(task)
		if task.Terminal() {
			logger.Info("wiki task finished",
				zap.String("status", string(task.Status)),
				zap.String("error", task.Error),
				zap.Int("polls", polls),
			)
			return task
		}
		logger.Debug("wiki task in progress",
			zap.String("message", task.Message),
			zap.Int("pending", len(task.pending)),
		)

		select {
		case <-ctx.Done():
			logger.Info("wiki polling cancelled", zap.Int("polls", polls))
			return task
		case <-ticker.C:
		}
	}
}

// Handle is a poll loop running in the background.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Task
}

// Start runs Run in a goroutine. Stop tears the loop down; Wait returns the
// final task.
func (p *Poller) Start(ctx context.Context, req t.WikiTaskRequest, onUpdate func(Task)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		h.result = p.Run(ctx, req, onUpdate)
	}()
	return h
}

func (h *Handle) Stop() { h.cancel() }

func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Wait() Task {
	<-h.done
	return h.result
}
