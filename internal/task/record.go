// Package task runs media pipelines one at a time. A Session admits at most
// one task, executes it on the media engine and reports progress and the
// final Outcome through the Task future. Every task is mirrored into a
// Record kept in a Repository so its state can be inspected after the fact.
package task

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/mediakit/internal/pipeline"
)

// State is the lifecycle state of a Record.
type State string

const (
	// StateRunning indicates the engine is executing the task.
	StateRunning State = "RUNNING"
	// StateCancelling indicates cancellation was requested and the engine has not yet stopped.
	StateCancelling State = "CANCELLING"
	// StateSucceeded indicates every pipeline of the task completed.
	StateSucceeded State = "SUCCEEDED"
	// StateFailed indicates the engine reported an error.
	StateFailed State = "FAILED"
	// StateCancelled indicates the task stopped because it was cancelled.
	StateCancelled State = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[State][]State{
	StateRunning:    {StateCancelling, StateSucceeded, StateFailed, StateCancelled},
	StateCancelling: {StateSucceeded, StateFailed, StateCancelled},
	StateSucceeded:  {},
	StateFailed:     {},
	StateCancelled:  {},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Record is the bookkeeping snapshot of a submitted task.
type Record struct {
	mu sync.RWMutex

	// ID is the handle returned at submission.
	ID string
	// Kind is the editing operation of the task's pipelines.
	Kind pipeline.Kind
	// Status is the current lifecycle state.
	Status State
	// Progress is the completed fraction in [0, 1].
	Progress float64
	// Error contains the failure message of a FAILED or CANCELLED task.
	Error string
	// Outputs lists every file the task writes, in pipeline order.
	Outputs []string
	// PublishedURLs holds the object storage URLs of published outputs.
	PublishedURLs []string
	// CreatedAt is when the task was admitted.
	CreatedAt time.Time
	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time
	// CompletedAt is when the task reached a terminal state.
	CompletedAt time.Time
}

// NewRecord creates a RUNNING record for a freshly admitted task.
func NewRecord(taskID string, kind pipeline.Kind, outputs []string) *Record {
	now := time.Now()
	return &Record{
		ID:        taskID,
		Kind:      kind,
		Status:    StateRunning,
		Outputs:   outputs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the record state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Record) TransitionTo(state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !canTransition(r.Status, state) {
		return ErrInvalidTransition
	}

	r.Status = state
	r.UpdatedAt = time.Now()
	if isTerminal(state) {
		r.CompletedAt = r.UpdatedAt
	}
	return nil
}

// Finish moves the record to the terminal state matching outcome.
func (r *Record) Finish(outcome Outcome, err error) error {
	if err != nil {
		r.mu.Lock()
		r.Error = err.Error()
		r.mu.Unlock()
	}
	if outcome == OutcomeSucceeded {
		r.UpdateProgress(1)
	}
	return r.TransitionTo(State(outcome))
}

// GetStatus returns the current state (thread-safe).
func (r *Record) GetStatus() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// UpdateProgress sets the completed fraction, clamped to [0, 1].
func (r *Record) UpdateProgress(progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	r.Progress = progress
	r.UpdatedAt = time.Now()
}

// SetPublishedURLs records where outputs were uploaded.
func (r *Record) SetPublishedURLs(urls []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PublishedURLs = urls
	r.UpdatedAt = time.Now()
}

// IsTerminal returns true if the record is in a terminal state.
func (r *Record) IsTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return isTerminal(r.Status)
}

func isTerminal(s State) bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Clone creates a deep copy of the record for safe reads.
func (r *Record) Clone() *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Record{
		ID:            r.ID,
		Kind:          r.Kind,
		Status:        r.Status,
		Progress:      r.Progress,
		Error:         r.Error,
		Outputs:       append([]string(nil), r.Outputs...),
		PublishedURLs: append([]string(nil), r.PublishedURLs...),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		CompletedAt:   r.CompletedAt,
	}
}
