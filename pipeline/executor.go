package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"maljrs-backend/models"
)

// TextBackend generates free-form text from a prompt. Implementations wrap a
// concrete model API; the executor only needs this one method.
type TextBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// transientError is implemented by backend errors that are worth one retry,
// such as rate limits and upstream 5xx responses.
type transientError interface {
	TransientError() bool
}

const (
	defaultStageTimeout = 120 * time.Second
	defaultWorkers      = 3
)

// Executor runs the analysis stage graph against a text backend. Stages run
// concurrently where the graph allows, with the number of in-flight backend
// calls bounded by the worker limit.
type Executor struct {
	registry *Registry
	backend  TextBackend
	timeout  time.Duration
	workers  int
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithRegistry sets the stage registry
func WithRegistry(registry *Registry) ExecutorOption {
	return func(e *Executor) {
		e.registry = registry
	}
}

// WithBackend sets the text backend stages are executed against
func WithBackend(backend TextBackend) ExecutorOption {
	return func(e *Executor) {
		e.backend = backend
	}
}

// WithStageTimeout sets the per-stage backend call timeout
func WithStageTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithWorkers bounds the number of concurrent backend calls
func WithWorkers(workers int) ExecutorOption {
	return func(e *Executor) {
		if workers > 0 {
			e.workers = workers
		}
	}
}

// NewExecutor creates an executor with the given options. A registry and a
// backend are required.
func NewExecutor(opts ...ExecutorOption) (*Executor, error) {
	e := &Executor{
		timeout: defaultStageTimeout,
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		return nil, errors.New("executor requires a stage registry")
	}
	if e.backend == nil {
		return nil, errors.New("executor requires a text backend")
	}
	return e, nil
}

// slot carries the result of one stage; done is closed exactly once when the
// result is final and may be read by dependents.
type slot struct {
	result models.StageResult
	done   chan struct{}
}

// Run executes the requested stages plus their transitive prerequisites
// against the compiled case narrative and assembles the result into a report.
// A failed stage never aborts the run; dependents of a failed stage are
// short-circuited as failed and everything else proceeds.
func (e *Executor) Run(ctx context.Context, narrativeText string, requested []models.StageID) (*models.Report, error) {
	closure, err := e.registry.Closure(requested)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stage closure: %w", err)
	}
	if len(closure) == 0 {
		return nil, errors.New("no stages requested")
	}

	slots := make(map[models.StageID]*slot, len(closure))
	for _, def := range closure {
		slots[def.ID] = &slot{done: make(chan struct{})}
	}

	// Tokens bound concurrent backend invocations. Waiting on prerequisites
	// happens outside a token so blocked stages never starve runnable ones.
	tokens := make(chan struct{}, e.workers)

	var g errgroup.Group
	for _, def := range closure {
		g.Go(func() error {
			e.runStage(ctx, def, narrativeText, slots, tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]models.StageEntry, 0, len(closure))
	for _, def := range closure {
		s := slots[def.ID]
		entries = append(entries, models.StageEntry{
			Stage:  def.ID,
			Name:   def.Name,
			Result: s.result,
		})
	}

	report := Assemble(entries, requested)
	return report, nil
}

func (e *Executor) runStage(ctx context.Context, def StageDefinition, narrativeText string, slots map[models.StageID]*slot, tokens chan struct{}) {
	s := slots[def.ID]
	defer close(s.done)

	// Wait for prerequisites. Each slot is written only by its own goroutine
	// and read only after done is closed, so no locking is needed.
	prereqs := make(map[models.StageID]models.StageData, len(def.Requires))
	for _, req := range def.Requires {
		upstream := slots[req]
		<-upstream.done
		if upstream.result.Status == models.StageFailure {
			s.result = models.StageResult{
				Status:     models.StageFailure,
				FailReason: models.FailReasonUpstreamFailed,
			}
			return
		}
		prereqs[req] = upstream.result.Data
	}

	select {
	case <-ctx.Done():
		s.result = models.StageResult{
			Status:     models.StageFailure,
			FailReason: models.FailReasonCancelled,
		}
		return
	case tokens <- struct{}{}:
	}
	defer func() { <-tokens }()

	prompt := def.Prompt(narrativeText, prereqs)
	raw, err := e.invoke(ctx, prompt)
	if err != nil {
		log.Printf("Warning: stage %s failed: %v", def.ID, err)
		reason := models.FailReasonBackendUnavailable
		if ctx.Err() != nil {
			reason = models.FailReasonCancelled
		}
		s.result = models.StageResult{
			Status:     models.StageFailure,
			FailReason: reason,
		}
		return
	}

	s.result = ParseStageOutput(def.Schema, raw)
}

// invoke calls the backend with a per-attempt timeout and retries exactly
// once when the first attempt fails transiently.
func (e *Executor) invoke(ctx context.Context, prompt string) (string, error) {
	raw, err := e.generateOnce(ctx, prompt)
	if err == nil {
		return raw, nil
	}
	if !isTransient(err) || ctx.Err() != nil {
		return "", err
	}
	return e.generateOnce(ctx, prompt)
}

func (e *Executor) generateOnce(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.backend.Generate(callCtx, prompt)
}

func isTransient(err error) bool {
	var te transientError
	if errors.As(err, &te) {
		return te.TransientError()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
