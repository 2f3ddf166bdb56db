package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// RunFunc is a long-lived task that returns when ctx is cancelled.
type RunFunc func(ctx context.Context) error

// Group manages the lifecycle of the daemon's long-lived tasks.
// A task that returns an error marks the group as failed so main can
// shut the rest down.
type Group struct {
	logger *zap.Logger
	tasks  []namedTask
	wg     sync.WaitGroup

	failOnce sync.Once
	failed   chan struct{}
	mu       sync.Mutex
	err      error
}

type namedTask struct {
	name string
	run  RunFunc
}

func NewGroup(logger *zap.Logger) *Group {
	return &Group{logger: logger, failed: make(chan struct{})}
}

// Add registers a task. Call before Start.
func (g *Group) Add(name string, run RunFunc) {
	g.tasks = append(g.tasks, namedTask{name: name, run: run})
}

// Start launches every task in its own goroutine.
func (g *Group) Start(ctx context.Context) {
	for _, t := range g.tasks {
		g.wg.Add(1)
		go func(t namedTask) {
			defer g.wg.Done()
			if err := t.run(ctx); err != nil {
				g.logger.Error("task failed", zap.String("task", t.name), zap.Error(err))
				g.fail(err)
			}
		}(t)
	}
}

func (g *Group) fail(err error) {
	g.failOnce.Do(func() {
		g.mu.Lock()
		g.err = err
		g.mu.Unlock()
		close(g.failed)
	})
}

// Failed is closed when the first task returns an error.
func (g *Group) Failed() <-chan struct{} { return g.failed }

// Err returns the first task error, if any.
func (g *Group) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Wait blocks until every task has returned after ctx is cancelled.
func (g *Group) Wait() {
	g.wg.Wait()
}
