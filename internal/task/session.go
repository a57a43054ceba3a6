package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/task/id"
)

// Static errors for task admission and outcomes.
var (
	// ErrPreviousTaskNotFinished is returned by Submit while another task is active.
	ErrPreviousTaskNotFinished = errors.New("previous task not finished")
	// ErrUnknownTask is returned by Cancel for a handle the session never issued.
	ErrUnknownTask = errors.New("unknown task")
	// ErrEngineFailure wraps errors reported by the media engine.
	ErrEngineFailure = errors.New("media engine failure")
	// ErrCancelled is the error of a CANCELLED task.
	ErrCancelled = errors.New("task cancelled")
	// ErrNoPipelines is returned when a submission carries no pipelines.
	ErrNoPipelines = errors.New("no pipelines to run")
	// ErrPublishUnavailable is returned when publishing is requested without a publisher.
	ErrPublishUnavailable = errors.New("publishing is not configured")
	// ErrPublishFailed wraps upload errors of a task whose pipelines succeeded.
	ErrPublishFailed = errors.New("publish outputs failed")
	// ErrSessionClosed is returned by Submit after Shutdown.
	ErrSessionClosed = errors.New("session closed")
)

// DefaultProgressBuffer is the capacity of a task's progress channel.
const DefaultProgressBuffer = 64

// Status is the admission state of a Session.
type Status string

const (
	// StatusIdle accepts a new task.
	StatusIdle Status = "IDLE"
	// StatusRunning has an active task.
	StatusRunning Status = "RUNNING"
	// StatusCancelling has an active task that was asked to stop.
	StatusCancelling Status = "CANCELLING"
)

// Engine executes pipelines. Cancelling ctx aborts the run.
type Engine interface {
	Execute(ctx context.Context, spec *pipeline.Spec, onProgress func(time.Duration)) error
}

// Cleaner removes the outputs of pipelines that did not complete.
type Cleaner interface {
	Remove(ctx context.Context, paths []string) error
}

// Publisher uploads a finished output and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Session admits at most one task at a time.
type Session struct {
	engine         Engine
	repo           Repository
	cleaner        Cleaner
	publisher      Publisher
	logger         *slog.Logger
	progressBuffer int
	historyLimit   int

	mu     sync.Mutex
	status Status
	active *Task
	record *Record
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup

	// saveMu orders repository writes so a stale snapshot never lands
	// after a newer one.
	saveMu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithRepository sets where task records are kept.
// Defaults to a new MemoryRepository.
func WithRepository(repo Repository) Option {
	return func(s *Session) {
		if repo != nil {
			s.repo = repo
		}
	}
}

// WithCleaner removes the outputs that failed and cancelled pipelines wrote.
func WithCleaner(c Cleaner) Option {
	return func(s *Session) {
		s.cleaner = c
	}
}

// WithPublisher enables publishing outputs of tasks submitted WithPublish.
func WithPublisher(p Publisher) Option {
	return func(s *Session) {
		s.publisher = p
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgressBuffer sets the capacity of each task's progress channel.
func WithProgressBuffer(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.progressBuffer = n
		}
	}
}

// WithHistoryLimit bounds how many finished records are kept.
// Zero keeps every record.
func WithHistoryLimit(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

// NewSession creates an idle Session that executes pipelines on engine.
func NewSession(engine Engine, opts ...Option) *Session {
	s := &Session{
		engine:         engine,
		repo:           NewMemoryRepository(),
		logger:         slog.Default(),
		progressBuffer: DefaultProgressBuffer,
		status:         StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type submitConfig struct {
	onProgress func(Progress)
	onComplete func(*Task)
	publish    bool
}

// SubmitOption configures a single submission.
type SubmitOption func(*submitConfig)

// WithProgress registers a callback that receives every progress report.
// It runs on the engine goroutine and must not wait for the task.
func WithProgress(fn func(Progress)) SubmitOption {
	return func(c *submitConfig) {
		c.onProgress = fn
	}
}

// WithCompletion registers a callback invoked exactly once after the task
// completes. The session is already idle when it runs.
func WithCompletion(fn func(*Task)) SubmitOption {
	return func(c *submitConfig) {
		c.onComplete = fn
	}
}

// WithPublish uploads every output through the session's Publisher once all
// pipelines succeed.
func WithPublish() SubmitOption {
	return func(c *submitConfig) {
		c.publish = true
	}
}

// Submit admits spec as a new task and starts it asynchronously.
// Returns ErrPreviousTaskNotFinished unless the session is idle.
func (s *Session) Submit(spec *pipeline.Spec, opts ...SubmitOption) (*Task, error) {
	return s.SubmitBatch([]*pipeline.Spec{spec}, opts...)
}

// SubmitBatch admits several independent pipelines as one task. They run
// sequentially; a failing pipeline does not prevent the next from running,
// and each pipeline's result is reported separately.
func (s *Session) SubmitBatch(specs []*pipeline.Spec, opts ...SubmitOption) (*Task, error) {
	if len(specs) == 0 {
		return nil, ErrNoPipelines
	}
	var outputs []string
	for i, spec := range specs {
		if spec == nil {
			return nil, fmt.Errorf("%w: pipeline %d is nil", ErrNoPipelines, i)
		}
		outputs = append(outputs, spec.OutputPaths()...)
	}

	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.publish && s.publisher == nil {
		return nil, ErrPublishUnavailable
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.status != StatusIdle {
		s.mu.Unlock()
		return nil, ErrPreviousTaskNotFinished
	}

	t := newTask(id.Generate(), specs[0].Kind(), s.progressBuffer, cfg)
	rec := NewRecord(t.id, t.kind, outputs)
	ctx, cancel := context.WithCancel(context.Background())

	s.status = StatusRunning
	s.active = t
	s.record = rec
	s.cancel = cancel
	s.wg.Add(1)
	s.save(rec)
	s.mu.Unlock()

	s.logger.Info("task admitted",
		slog.String("task_id", t.id),
		slog.String("kind", string(t.kind)),
		slog.Int("pipelines", len(specs)),
	)

	go s.run(ctx, t, rec, specs, cfg)
	return t, nil
}

func (s *Session) run(ctx context.Context, t *Task, rec *Record, specs []*pipeline.Spec, cfg submitConfig) {
	defer s.wg.Done()

	logger := s.logger.With(slog.String("task_id", t.id))
	start := time.Now()

	results := make([]Result, len(specs))
	// touched holds, per failed pipeline, the outputs its engine run
	// created or modified.
	touched := make([][]string, len(specs))
	var errs []error
	for i, spec := range specs {
		results[i].Outputs = spec.OutputPaths()
		if ctx.Err() != nil {
			results[i].Err = ErrCancelled
			errs = append(errs, ErrCancelled)
			continue
		}

		before := statOutputs(results[i].Outputs)
		total := spec.Duration()
		err := s.engine.Execute(ctx, spec, func(elapsed time.Duration) {
			s.report(t, rec, i, len(specs), total, elapsed)
		})
		if err != nil {
			logger.Warn("pipeline failed",
				slog.Int("pipeline", i+1),
				slog.String("error", err.Error()),
			)
			results[i].Err = err
			touched[i] = changedOutputs(before, results[i].Outputs)
			errs = append(errs, err)
		}
	}

	outcome, err := resolve(ctx, errs)
	if outcome != OutcomeSucceeded {
		s.cleanup(logger, results, touched)
	}

	var urls []string
	if outcome == OutcomeSucceeded && cfg.publish {
		var pubErr error
		urls, pubErr = s.publish(ctx, rec.Outputs)
		if pubErr != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("%w: %w", ErrPublishFailed, pubErr)
			if ctx.Err() != nil {
				outcome = OutcomeCancelled
				err = fmt.Errorf("%w: %w", ErrCancelled, pubErr)
			}
		}
	}

	if len(urls) > 0 {
		rec.SetPublishedURLs(urls)
	}
	if ferr := rec.Finish(outcome, err); ferr != nil {
		logger.Error("record transition rejected", slog.String("error", ferr.Error()))
	}
	s.save(rec)

	s.mu.Lock()
	s.status = StatusIdle
	s.active = nil
	s.record = nil
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	cancel()

	attrs := []any{
		slog.String("outcome", string(outcome)),
		slog.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.Info("task finished", attrs...)

	s.prune()
	t.complete(outcome, err, results, urls)
}

// resolve maps pipeline errors to an outcome. A task whose engine runs all
// returned nil succeeded even if a cancel request raced with completion.
func resolve(ctx context.Context, errs []error) (Outcome, error) {
	if len(errs) == 0 {
		return OutcomeSucceeded, nil
	}
	joined := errors.Join(errs...)
	if ctx.Err() != nil {
		if errors.Is(joined, ErrCancelled) {
			return OutcomeCancelled, joined
		}
		return OutcomeCancelled, fmt.Errorf("%w: %w", ErrCancelled, joined)
	}
	return OutcomeFailed, fmt.Errorf("%w: %w", ErrEngineFailure, joined)
}

func (s *Session) report(t *Task, rec *Record, i, n int, total float64, elapsed time.Duration) {
	ratio := float64(i) / float64(n)
	if total > 0 {
		frac := elapsed.Seconds() / total
		if frac > 1 {
			frac = 1
		}
		if frac > 0 {
			ratio += frac / float64(n)
		}
	}

	p := Progress{
		TaskID:    t.id,
		Pipeline:  i + 1,
		Pipelines: n,
		Elapsed:   elapsed,
		Ratio:     ratio,
	}
	if !t.deliver(p) {
		return
	}
	rec.UpdateProgress(ratio)
	s.save(rec)
}

// cleanup removes outputs that failed pipelines wrote. A path that some
// successful pipeline of the task produced is kept.
func (s *Session) cleanup(logger *slog.Logger, results []Result, touched [][]string) {
	if s.cleaner == nil {
		return
	}
	produced := make(map[string]bool)
	for _, r := range results {
		if r.Err == nil {
			for _, p := range r.Outputs {
				produced[p] = true
			}
		}
	}
	var paths []string
	seen := make(map[string]bool)
	for _, outputs := range touched {
		for _, p := range outputs {
			if produced[p] || seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return
	}
	if err := s.cleaner.Remove(context.Background(), paths); err != nil {
		logger.Warn("failed to remove partial outputs", slog.String("error", err.Error()))
	}
}

type fileState struct {
	size    int64
	modTime time.Time
}

// statOutputs records the outputs that already exist.
func statOutputs(paths []string) map[string]fileState {
	states := make(map[string]fileState, len(paths))
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil {
			states[p] = fileState{size: fi.Size(), modTime: fi.ModTime()}
		}
	}
	return states
}

// changedOutputs returns the paths that are new or differ from before.
// An output that existed and is unchanged was not written by the run.
func changedOutputs(before map[string]fileState, paths []string) []string {
	var changed []string
	for _, p := range paths {
		prev, existed := before[p]
		if !existed {
			changed = append(changed, p)
			continue
		}
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if fi.Size() != prev.size || !fi.ModTime().Equal(prev.modTime) {
			changed = append(changed, p)
		}
	}
	return changed
}

func (s *Session) publish(ctx context.Context, paths []string) ([]string, error) {
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		url, err := s.publisher.Publish(ctx, p)
		if err != nil {
			return urls, fmt.Errorf("%s: %w", p, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Cancel requests termination of the task identified by handle. It does not
// wait for the engine to stop. Cancelling a task that already finished is a
// no-op; a handle the session does not know returns ErrUnknownTask.
func (s *Session) Cancel(handle string) error {
	s.mu.Lock()
	if s.active != nil && s.active.id == handle {
		s.requestCancelLocked()
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if _, err := s.repo.FindByID(context.Background(), handle); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownTask, handle)
}

// CancelActive requests termination of whichever task is active.
// It is a no-op while idle.
func (s *Session) CancelActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestCancelLocked()
}

func (s *Session) requestCancelLocked() {
	if s.status != StatusRunning {
		return
	}
	s.status = StatusCancelling
	s.cancel()

	if err := s.record.TransitionTo(StateCancelling); err == nil {
		s.save(s.record)
	}
	s.logger.Info("task cancellation requested", slog.String("task_id", s.active.id))
}

// Status returns the admission state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Active returns the handle of the active task, if any.
func (s *Session) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return "", false
	}
	return s.active.id, true
}

// Record returns the record of a task submitted to this session.
func (s *Session) Record(ctx context.Context, handle string) (*Record, error) {
	return s.repo.FindByID(ctx, handle)
}

// Records returns every retained record, oldest first.
func (s *Session) Records(ctx context.Context) ([]*Record, error) {
	return s.repo.List(ctx)
}

// Shutdown rejects further submissions, cancels the active task and waits
// for it to complete or for ctx to be done.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.requestCancelLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) save(rec *Record) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.repo.Save(context.Background(), rec); err != nil {
		s.logger.Error("failed to save task record",
			slog.String("task_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// prune drops the oldest finished records beyond the history limit.
func (s *Session) prune() {
	if s.historyLimit == 0 {
		return
	}
	ctx := context.Background()
	records, err := s.repo.List(ctx)
	if err != nil {
		return
	}
	var finished []*Record
	for _, r := range records {
		if isTerminal(r.Status) {
			finished = append(finished, r)
		}
	}
	for i := 0; i < len(finished)-s.historyLimit; i++ {
		_ = s.repo.Delete(ctx, finished[i].ID)
	}
}
