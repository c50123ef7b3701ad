package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/config"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds one Execute call when the config does not
const DefaultTimeout = 5 * time.Minute

// TaskError is the failure of one named task
type TaskError struct {
	TaskName string
	Err      error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError collects every task failure of one Execute call,
// ordered by task name
type AggregatedError struct {
	Errors []TaskError
}

func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d tasks failed:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the first failure to errors.Is and errors.As
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// ParallelExecutorImpl runs independent tasks (one per dump or trace file)
// with bounded concurrency. Every task runs even when others fail.
type ParallelExecutorImpl struct {
	mu             sync.RWMutex
	maxConcurrency int
	timeout        time.Duration
	progress       domain.ProgressManager
	label          string
}

// NewParallelExecutor uses one worker per CPU
func NewParallelExecutor() *ParallelExecutorImpl {
	return &ParallelExecutorImpl{
		maxConcurrency: runtime.NumCPU(),
		timeout:        DefaultTimeout,
		label:          "Processing",
	}
}

// NewParallelExecutorFromConfig applies the performance settings;
// zero values keep the defaults
func NewParallelExecutorFromConfig(cfg *config.PerformanceConfig) *ParallelExecutorImpl {
	e := NewParallelExecutor()
	if cfg == nil {
		return e
	}
	e.SetMaxConcurrency(cfg.MaxGoroutines)
	e.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	return e
}

// NewParallelExecutorWithProgress also reports each finished task on pm
func NewParallelExecutorWithProgress(cfg *config.PerformanceConfig, pm domain.ProgressManager, label string) *ParallelExecutorImpl {
	e := NewParallelExecutorFromConfig(cfg)
	e.progress = pm
	if label != "" {
		e.label = label
	}
	return e
}

// Execute runs the enabled tasks and returns an *AggregatedError when any failed
func (e *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	enabled := make([]domain.ExecutableTask, 0, len(tasks))
	for _, t := range tasks {
		if t.IsEnabled() {
			enabled = append(enabled, t)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	e.mu.RLock()
	limit, timeout := e.maxConcurrency, e.timeout
	e.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bar domain.TaskProgress = &NoOpTaskProgress{}
	if e.progress != nil {
		bar = e.progress.StartTask(e.label, len(enabled))
	}
	defer bar.Complete()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	var failures []TaskError

	for _, t := range enabled {
		g.Go(func() error {
			var err error
			if err = gctx.Err(); err == nil {
				_, err = t.Execute(gctx)
			}
			bar.Increment(1)

			if err != nil {
				mu.Lock()
				failures = append(failures, TaskError{TaskName: t.Name(), Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		return nil
	}
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].TaskName < failures[j].TaskName
	})
	return &AggregatedError{Errors: failures}
}

// SetMaxConcurrency ignores values below 1
func (e *ParallelExecutorImpl) SetMaxConcurrency(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n > 0 {
		e.maxConcurrency = n
	}
}

// SetTimeout ignores non-positive durations
func (e *ParallelExecutorImpl) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if timeout > 0 {
		e.timeout = timeout
	}
}

// fileTask adapts a per-file function to domain.ExecutableTask
type fileTask struct {
	path string
	run  func(ctx context.Context, path string) error
}

func (t *fileTask) Name() string    { return t.path }
func (t *fileTask) IsEnabled() bool { return true }

func (t *fileTask) Execute(ctx context.Context) (interface{}, error) {
	return nil, t.run(ctx, t.path)
}

// fileTasks builds one task per path
func fileTasks(paths []string, run func(ctx context.Context, path string) error) []domain.ExecutableTask {
	tasks := make([]domain.ExecutableTask, len(paths))
	for i, p := range paths {
		tasks[i] = &fileTask{path: p, run: run}
	}
	return tasks
}
