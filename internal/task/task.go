package task

import (
	"context"
	"sync"
	"time"

	"github.com/maauso/mediakit/internal/pipeline"
)

// Outcome is the terminal result of a task.
type Outcome string

const (
	// OutcomeSucceeded indicates every pipeline completed.
	OutcomeSucceeded Outcome = "SUCCEEDED"
	// OutcomeFailed indicates the engine or a post-processing step failed.
	OutcomeFailed Outcome = "FAILED"
	// OutcomeCancelled indicates the task was aborted on request.
	OutcomeCancelled Outcome = "CANCELLED"
)

// Progress is one progress report of a running task.
type Progress struct {
	// TaskID is the handle of the reporting task.
	TaskID string `json:"task_id"`
	// Pipeline is the 1-based position of the running pipeline in the task.
	Pipeline int `json:"pipeline"`
	// Pipelines is the number of pipelines in the task.
	Pipelines int `json:"pipelines"`
	// Elapsed is the output media time produced by the running pipeline.
	Elapsed time.Duration `json:"elapsed"`
	// Ratio is the completed fraction of the whole task in [0, 1].
	Ratio float64 `json:"ratio"`
}

// Result is the per-pipeline result of a task, in submission order.
type Result struct {
	Outputs []string
	Err     error
}

// Task is the future returned by Submit. It completes exactly once.
type Task struct {
	id   string
	kind pipeline.Kind

	done chan struct{}

	// progressMu orders progress delivery against completion so that no
	// report is delivered after the progress channel is closed.
	progressMu sync.Mutex
	progress   chan Progress
	finished   bool
	onProgress func(Progress)
	onComplete func(*Task)

	mu      sync.RWMutex
	outcome Outcome
	err     error
	results []Result
	urls    []string
}

func newTask(taskID string, kind pipeline.Kind, buffer int, cfg submitConfig) *Task {
	return &Task{
		id:         taskID,
		kind:       kind,
		done:       make(chan struct{}),
		progress:   make(chan Progress, buffer),
		onProgress: cfg.onProgress,
		onComplete: cfg.onComplete,
	}
}

// ID returns the opaque handle used to cancel or look up the task.
func (t *Task) ID() string { return t.id }

// Kind returns the editing operation of the task.
func (t *Task) Kind() pipeline.Kind { return t.kind }

// Done is closed once the task has completed.
func (t *Task) Done() <-chan struct{} { return t.done }

// Progress returns the buffered progress channel. It is closed before Done
// is closed. Reports are dropped rather than queued when the buffer is full.
func (t *Task) Progress() <-chan Progress { return t.progress }

// Wait blocks until the task completes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.Outcome(), t.Err()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Outcome returns the terminal outcome, or "" while the task is running.
func (t *Task) Outcome() Outcome {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.outcome
}

// Err returns the error of a FAILED or CANCELLED task.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Results returns the per-pipeline results once the task has completed.
func (t *Task) Results() []Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Result(nil), t.results...)
}

// URLs returns the object storage URLs of published outputs.
func (t *Task) URLs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.urls...)
}

// deliver forwards p to the callback and the channel. It reports false
// once the task has completed.
func (t *Task) deliver(p Progress) bool {
	t.progressMu.Lock()
	defer t.progressMu.Unlock()

	if t.finished {
		return false
	}
	if t.onProgress != nil {
		t.onProgress(p)
	}
	select {
	case t.progress <- p:
	default:
	}
	return true
}

func (t *Task) complete(outcome Outcome, err error, results []Result, urls []string) {
	t.progressMu.Lock()
	t.finished = true
	close(t.progress)
	t.progressMu.Unlock()

	t.mu.Lock()
	t.outcome = outcome
	t.err = err
	t.results = results
	t.urls = urls
	t.mu.Unlock()

	close(t.done)

	if t.onComplete != nil {
		t.onComplete(t)
	}
}
