package wiki

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	t "repoatlas/internal/types"
)

var key = t.NewKey("octo", "hello")

type scriptedClient struct {
	mu       sync.Mutex
	startErr error
	reports  []t.WikiStatusReport
	pollErr  error
	polls    int
	// block, when set, is waited on inside WikiStatus.
	block chan struct{}
}

func (c *scriptedClient) StartWiki(context.Context, t.WikiTaskRequest) (string, error) {
	if c.startErr != nil {
		return "", c.startErr
	}
	return "t1", nil
}

func (c *scriptedClient) WikiStatus(_ context.Context, id string) (t.WikiStatusReport, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
	if id != "t1" {
		return t.WikiStatusReport{}, errors.New("unexpected task id")
	}
	if c.pollErr != nil {
		return t.WikiStatusReport{}, c.pollErr
	}
	n := c.polls - 1
	if n >= len(c.reports) {
		n = len(c.reports) - 1
	}
	return c.reports[n], nil
}

func (c *scriptedClient) pollCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

func structure(ids ...string) *t.WikiStructure {
	s := &t.WikiStructure{ID: "wiki", Title: "Hello"}
	for _, id := range ids {
		s.Pages = append(s.Pages, t.WikiPage{ID: id, Title: id})
	}
	return s
}

func TestObserveReplacesProgressSnapshot(tt *testing.T) {
	task := newTask(key)
	task = Observe(task, t.WikiStatusReport{Status: "processing", Progress: []string{"p1", "p2", "p3"}})
	assert.Equal(tt, []string{"p1", "p2", "p3"}, task.Pending())

	// p1 reappears after vanishing: the remote report is taken as is.
	task = Observe(task, t.WikiStatusReport{Status: "processing", Progress: []string{"p3"}})
	task = Observe(task, t.WikiStatusReport{Status: "processing", Progress: []string{"p1", "p3"}})
	assert.Equal(tt, []string{"p1", "p3"}, task.Pending())
	assert.True(tt, task.IsPending("p1"))

	// No progress reported leaves the set alone.
	task = Observe(task, t.WikiStatusReport{Status: "processing", Message: "Generating pages..."})
	assert.Equal(tt, []string{"p1", "p3"}, task.Pending())
	assert.Equal(tt, "Generating pages...", task.Message)
}

func TestObserveTracksStructureAndTerminals(tt *testing.T) {
	task := Observe(newTask(key), t.WikiStatusReport{
		Status:   "processing",
		Progress: []string{"p1"},
		Result:   &t.WikiResult{WikiStructure: structure("p1")},
	})
	require.NotNil(tt, task.Structure)
	assert.Equal(tt, []string{"p1"}, task.Structure.PageIDs())

	failed := Observe(task, t.WikiStatusReport{Status: "processing", Error: "github rate limit"})
	assert.Equal(tt, t.TaskError, failed.Status)
	assert.Equal(tt, "github rate limit", failed.Error)

	after := Observe(failed, t.WikiStatusReport{Status: "success"})
	assert.Equal(tt, t.TaskError, after.Status)

	// Observe must not mutate the caller's copy.
	assert.Equal(tt, []string{"p1"}, task.Pending())
}

func TestRunScenarioB(tt *testing.T) {
	client := &scriptedClient{reports: []t.WikiStatusReport{
		{Status: "processing", Progress: []string{"p1", "p2"}},
		{Status: "processing", Progress: []string{"p2"}},
		{Status: "success", Result: &t.WikiResult{
			WikiStructure:  structure("p1", "p2"),
			GeneratedPages: map[string]t.WikiPage{"p1": {ID: "p1"}, "p2": {ID: "p2"}},
		}},
	}}
	p := NewPoller(client, 5*time.Millisecond, nil)

	var seen [][]string
	task := p.Run(context.Background(), t.WikiTaskRequest{Key: key, RepoType: "github"}, func(k Task) {
		seen = append(seen, k.Pending())
	})

	assert.Equal(tt, t.TaskSuccess, task.Status)
	assert.True(tt, task.Terminal())
	assert.Equal(tt, "t1", task.TaskID)
	assert.Empty(tt, task.Pending())
	assert.Len(tt, task.GeneratedPages, 2)
	assert.Equal(tt, 3, client.pollCount())

	require.Len(tt, seen, 4)
	assert.Equal(tt, []string{"p1", "p2"}, seen[1])
	assert.Equal(tt, []string{"p2"}, seen[2])

	time.Sleep(20 * time.Millisecond)
	assert.Equal(tt, 3, client.pollCount(), "no polls after terminal status")
}

func TestRunStartFailureNeverPolls(tt *testing.T) {
	client := &scriptedClient{startErr: errors.New("connection refused")}
	task := NewPoller(client, time.Millisecond, nil).Run(context.Background(), t.WikiTaskRequest{Key: key}, nil)
	assert.Equal(tt, t.TaskError, task.Status)
	assert.Contains(tt, task.Error, "connection refused")
	assert.Empty(tt, task.TaskID)
	assert.Equal(tt, 0, client.pollCount())
}

func TestRunPollFailureStopsLoop(tt *testing.T) {
	client := &scriptedClient{pollErr: errors.New("502 bad gateway")}
	task := NewPoller(client, time.Millisecond, nil).Run(context.Background(), t.WikiTaskRequest{Key: key}, nil)
	assert.Equal(tt, t.TaskError, task.Status)
	assert.Contains(tt, task.Error, "502 bad gateway")

	time.Sleep(10 * time.Millisecond)
	assert.Equal(tt, 1, client.pollCount())
}

func TestRunRemoteErrorStatus(tt *testing.T) {
	client := &scriptedClient{reports: []t.WikiStatusReport{{Status: "error", Error: "repository not found"}}}
	task := NewPoller(client, time.Millisecond, nil).Run(context.Background(), t.WikiTaskRequest{Key: key}, nil)
	assert.Equal(tt, t.TaskError, task.Status)
	assert.Equal(tt, "repository not found", task.Error)
	assert.Equal(tt, 1, client.pollCount())
}

func TestStopDiscardsLateResolution(tt *testing.T) {
	client := &scriptedClient{
		block:   make(chan struct{}),
		reports: []t.WikiStatusReport{{Status: "success", Result: &t.WikiResult{WikiStructure: structure("p1")}}},
	}
	p := NewPoller(client, time.Millisecond, nil)

	var mu sync.Mutex
	var updates []Task
	h := p.Start(context.Background(), t.WikiTaskRequest{Key: key}, func(k Task) {
		mu.Lock()
		updates = append(updates, k)
		mu.Unlock()
	})

	// Wait for the start update, then tear down while the poll is pending.
	require.Eventually(tt, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) == 1
	}, time.Second, time.Millisecond)
	h.Stop()
	close(client.block)

	task := h.Wait()
	assert.Equal(tt, t.TaskProcessing, task.Status)
	assert.Nil(tt, task.Structure)
	mu.Lock()
	assert.Len(tt, updates, 1)
	mu.Unlock()
}

func TestRunCancelBetweenTicks(tt *testing.T) {
	client := &scriptedClient{reports: []t.WikiStatusReport{{Status: "processing", Progress: []string{"p1"}}}}
	p := NewPoller(client, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	h := p.Start(ctx, t.WikiTaskRequest{Key: key}, nil)

	require.Eventually(tt, func() bool { return client.pollCount() == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		tt.Fatal("poll loop did not stop")
	}
	task := h.Wait()
	assert.Equal(tt, []string{"p1"}, task.Pending())
	assert.False(tt, task.Terminal())
}
