// Package orchestrator runs generation sessions: admit through the guard,
// answer from the cache when possible, otherwise generate and store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"repoatlas/internal/cache"
	"repoatlas/internal/diagram"
	"repoatlas/internal/guard"
	"repoatlas/internal/logging"
	t "repoatlas/internal/types"
	"repoatlas/internal/wiki"
)

// ErrInFlight is returned when a session for the same key is still running.
var ErrInFlight = errors.New("generation already in flight")

type Options struct {
	Streamer     diagram.Streamer
	WikiClient   wiki.Client
	Store        cache.Store
	PollInterval time.Duration
	// RepoType is used for wiki requests that do not name one.
	RepoType string
	Logger   *zap.Logger
}

type Orchestrator struct {
	machine      *diagram.Machine
	poller       *wiki.Poller
	diagramCache *cache.Gateway
	wikiCache    *cache.Gateway
	diagramGuard guard.Registry
	wikiGuard    guard.Registry
	repoType     string
	logger       *zap.Logger
}

func New(opts Options) *Orchestrator {
	logger := logging.OrNop(opts.Logger)
	o := &Orchestrator{
		machine:  diagram.NewMachine(opts.Streamer, logger),
		poller:   wiki.NewPoller(opts.WikiClient, opts.PollInterval, logger),
		repoType: opts.RepoType,
		logger:   logger,
	}
	if o.repoType == "" {
		o.repoType = "github"
	}
	if opts.Store != nil {
		o.diagramCache = cache.NewGateway(t.KindDiagram, opts.Store, logger)
		o.wikiCache = cache.NewGateway(t.KindWiki, opts.Store, logger)
	}
	return o
}

type DiagramRequest struct {
	Key       t.GenerationKey
	AuthToken string
	// Refresh skips the cache lookup; the new result is still stored.
	Refresh bool
}

type DiagramResult struct {
	Session   diagram.Session
	FromCache bool
}

func (o *Orchestrator) GenerateDiagram(ctx context.Context, req DiagramRequest, onUpdate func(diagram.Session)) (DiagramResult, error) {
	key := t.NewKey(req.Key.Owner, req.Key.Repo)
	if err := key.Validate(); err != nil {
		return DiagramResult{}, err
	}
	if !o.diagramGuard.TryStart(key.String()) {
		return DiagramResult{}, fmt.Errorf("diagram %s: %w", key, ErrInFlight)
	}
	defer o.diagramGuard.Release(key.String())

	logger := o.sessionLogger("diagram", key)
	if !req.Refresh {
		if a, ok := o.diagramCache.Lookup(ctx, key); ok {
			s := diagram.NewSession(key)
			s.Status = t.StatusComplete
			s.Diagram = a.Diagram
			if onUpdate != nil {
				onUpdate(s)
			}
			logger.Info("diagram served from cache")
			return DiagramResult{Session: s, FromCache: true}, nil
		}
	}

	s := o.machine.Run(ctx, key, req.AuthToken, onUpdate)
	if s.Status == t.StatusComplete && s.Diagram != "" {
		_ = o.diagramCache.Store(ctx, key, t.CachedArtifact{Key: key, Diagram: s.Diagram})
	}
	logger.Info("diagram session finished", zap.String("status", string(s.Status)))
	return DiagramResult{Session: s}, nil
}

type WikiRequest struct {
	Key      t.GenerationKey
	RepoType string
	RepoURL  string
	Token    string
	Refresh  bool
}

type WikiResult struct {
	Task      wiki.Task
	FromCache bool
}

func (o *Orchestrator) GenerateWiki(ctx context.Context, req WikiRequest, onUpdate func(wiki.Task)) (WikiResult, error) {
	key := t.NewKey(req.Key.Owner, req.Key.Repo)
	if err := key.Validate(); err != nil {
		return WikiResult{}, err
	}
	if !o.wikiGuard.TryStart(key.String()) {
		return WikiResult{}, fmt.Errorf("wiki %s: %w", key, ErrInFlight)
	}
	defer o.wikiGuard.Release(key.String())

	logger := o.sessionLogger("wiki", key)
	if !req.Refresh {
		if a, ok := o.wikiCache.Lookup(ctx, key); ok {
			task := wiki.Completed(key, t.WikiResult{WikiStructure: a.WikiStructure, GeneratedPages: a.GeneratedPages})
			if onUpdate != nil {
				onUpdate(task)
			}
			logger.Info("wiki served from cache")
			return WikiResult{Task: task, FromCache: true}, nil
		}
	}

	repoType := req.RepoType
	if repoType == "" {
		repoType = o.repoType
	}
	task := o.poller.Run(ctx, t.WikiTaskRequest{
		Key:      key,
		RepoType: repoType,
		RepoURL:  req.RepoURL,
		Token:    req.Token,
	}, onUpdate)
	if task.Status == t.TaskSuccess && task.Structure != nil {
		_ = o.wikiCache.Store(ctx, key, t.CachedArtifact{
			Key:            key,
			WikiStructure:  task.Structure,
			GeneratedPages: task.GeneratedPages,
		})
	}
	logger.Info("wiki session finished", zap.String("status", string(task.Status)), zap.String("task_id", task.TaskID))
	return WikiResult{Task: task}, nil
}

// InFlight reports whether a session of the given flow ("diagram" or
// "wiki") is running for key.
func (o *Orchestrator) InFlight(flow string, key t.GenerationKey) bool {
	switch flow {
	case "diagram":
		return o.diagramGuard.InFlight(key.String())
	case "wiki":
		return o.wikiGuard.InFlight(key.String())
	}
	return false
}

func (o *Orchestrator) sessionLogger(flow string, key t.GenerationKey) *zap.Logger {
	l := o.logger.With(
		zap.String("flow", flow),
		zap.String("session_id", uuid.NewString()),
		zap.String("owner", key.Owner),
		zap.String("repo", key.Repo),
	)
	l.Debug("session admitted")
	return l
}
