// Package tester provides an in-process stand-in for the remote generation
// service, for tests.
package tester

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	t "repoatlas/internal/types"
)

// Route names used by Calls.
const (
	RouteDiagramGenerate = "diagram.generate"
	RouteDiagramCacheGet = "diagram.cache.get"
	RouteDiagramCachePut = "diagram.cache.put"
	RouteWikiGenerate    = "wiki.generate"
	RouteWikiStatus      = "wiki.status"
	RouteWikiCacheGet    = "wiki.cache.get"
	RouteWikiCachePut    = "wiki.cache.put"
	RouteProjects        = "projects"
	RouteLanguages       = "languages"
)

// Service scripts the remote endpoints. Exported fields may be changed
// between requests under Lock/Unlock.
type Service struct {
	mu     sync.Mutex
	server *httptest.Server

	// DiagramLines are written as "data: <line>\n\n", flushed one by one.
	DiagramLines []string
	// DiagramGate, when set, is waited on before the stream body is written.
	DiagramGate chan struct{}

	TaskID string
	// WikiReports are answered in order; the last one repeats.
	WikiReports []t.WikiStatusReport

	DiagramCache map[string]string
	WikiCache    map[string]t.WikiResult

	Projects  []t.ProcessedProject
	Languages t.LanguageConfig

	// FailRoutes answers the named routes with the given status code.
	FailRoutes map[string]int

	calls      map[string]int
	lastBodies map[string][]byte
}

func New(tb testing.TB) *Service {
	tb.Helper()
	s := &Service{
		TaskID:       "t1",
		DiagramCache: map[string]string{},
		WikiCache:    map[string]t.WikiResult{},
		FailRoutes:   map[string]int{},
		calls:        map[string]int{},
		lastBodies:   map[string][]byte{},
	}
	s.server = httptest.NewServer(s.routes())
	tb.Cleanup(s.server.Close)
	return s
}

func (s *Service) URL() string { return s.server.URL }

func (s *Service) Lock()   { s.mu.Lock() }
func (s *Service) Unlock() { s.mu.Unlock() }

func (s *Service) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastBody returns the last request body received on route.
func (s *Service) LastBody(route string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.lastBodies[route]...)
}

func cacheKey(owner, repo string) string { return owner + "/" + repo }

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/diagram/generate", s.wrap(RouteDiagramGenerate, s.handleDiagram))
	mux.HandleFunc("GET /api/diagram/cached", s.wrap(RouteDiagramCacheGet, s.handleDiagramCacheGet))
	mux.HandleFunc("POST /api/diagram/cached", s.wrap(RouteDiagramCachePut, s.handleDiagramCachePut))
	mux.HandleFunc("POST /api/wiki/generate", s.wrap(RouteWikiGenerate, s.handleWikiGenerate))
	mux.HandleFunc("GET /api/wiki/status/{id}", s.wrap(RouteWikiStatus, s.handleWikiStatus))
	mux.HandleFunc("GET /api/wiki_cache", s.wrap(RouteWikiCacheGet, s.handleWikiCacheGet))
	mux.HandleFunc("POST /api/wiki_cache", s.wrap(RouteWikiCachePut, s.handleWikiCachePut))
	mux.HandleFunc("GET /api/processed_projects", s.wrap(RouteProjects, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, s.Projects)
	}))
	mux.HandleFunc("GET /lang/config", s.wrap(RouteLanguages, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, s.Languages)
	}))
	return mux
}

type handler func(w http.ResponseWriter, r *http.Request, body []byte)

// wrap counts the call, records the body and applies FailRoutes. The
// handler runs with s.mu held, except for the diagram stream.
func (s *Service) wrap(route string, h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.calls[route]++
		s.lastBodies[route] = body
		if code, ok := s.FailRoutes[route]; ok {
			s.mu.Unlock()
			http.Error(w, fmt.Sprintf("%s unavailable", route), code)
			return
		}
		if route == RouteDiagramGenerate {
			s.mu.Unlock()
			h(w, r, body)
			return
		}
		defer s.mu.Unlock()
		h(w, r, body)
	}
}

func (s *Service) handleDiagram(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.mu.Lock()
	lines := append([]string(nil), s.DiagramLines...)
	gate := s.DiagramGate
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Service) handleDiagramCacheGet(w http.ResponseWriter, r *http.Request, _ []byte) {
	d, ok := s.DiagramCache[cacheKey(r.URL.Query().Get("owner"), r.URL.Query().Get("repo"))]
	if !ok {
		writeJSON(w, nil)
		return
	}
	writeJSON(w, map[string]string{"diagram": d})
}

func (s *Service) handleDiagramCachePut(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		Owner   string `json:"owner"`
		Repo    string `json:"repo"`
		Diagram string `json:"diagram"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.DiagramCache[cacheKey(req.Owner, req.Repo)] = req.Diagram
	writeJSON(w, map[string]string{"message": "Diagram cached successfully."})
}

func (s *Service) handleWikiGenerate(w http.ResponseWriter, _ *http.Request, _ []byte) {
	writeJSON(w, map[string]string{"task_id": s.TaskID})
}

func (s *Service) handleWikiStatus(w http.ResponseWriter, r *http.Request, _ []byte) {
	if r.PathValue("id") != s.TaskID || len(s.WikiReports) == 0 {
		http.Error(w, `{"detail":"Task not found"}`, http.StatusNotFound)
		return
	}
	n := s.calls[RouteWikiStatus] - 1
	if n >= len(s.WikiReports) {
		n = len(s.WikiReports) - 1
	}
	writeJSON(w, s.WikiReports[n])
}

func (s *Service) handleWikiCacheGet(w http.ResponseWriter, r *http.Request, _ []byte) {
	q := r.URL.Query()
	res, ok := s.WikiCache[cacheKey(q.Get("owner"), q.Get("repo"))]
	if !ok {
		writeJSON(w, nil)
		return
	}
	writeJSON(w, res)
}

func (s *Service) handleWikiCachePut(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		Owner    string `json:"owner"`
		Repo     string `json:"repo"`
		RepoType string `json:"repo_type"`
		t.WikiResult
	}
	if err := json.Unmarshal(body, &req); err != nil || strings.TrimSpace(req.RepoType) == "" {
		http.Error(w, "invalid wiki cache request", http.StatusUnprocessableEntity)
		return
	}
	s.WikiCache[cacheKey(req.Owner, req.Repo)] = req.WikiResult
	writeJSON(w, map[string]string{"message": "Wiki cache updated successfully."})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
