package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"maljrs-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend answers prompts by matching the role line each stage prompt
// opens with.
type stubBackend struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	errFor    map[string]error
	delay     time.Duration
	calls     []string
}

func (b *stubBackend) Generate(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, prompt)
	b.mu.Unlock()

	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.err != nil {
		return "", b.err
	}
	for role, err := range b.errFor {
		if strings.Contains(prompt, role) {
			return "", err
		}
	}
	for role, response := range b.responses {
		if strings.Contains(prompt, role) {
			return response, nil
		}
	}
	return "", errors.New("no scripted response")
}

func (b *stubBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func fullResponses() map[string]string {
	return map[string]string{
		"senior legal analyst":     `{"classification": "civil", "rationale": "Property dispute between private parties.", "key_signals": ["possession", "sale agreement"]}`,
		"fact interpreter":         `{"parties": ["Anil Sharma (plaintiff)", "Rakesh Verma (defendant)"], "dates": ["2023-11-02: agreement signed"], "claims": ["recovery of possession"], "evidence": ["registered sale agreement"], "uncertainties": []}`,
		"mapping facts":            `{"laws": [{"statute": "Specific Relief Act, 1963", "section": "Section 6", "applicability": "Recovery of possession"}], "limitation_notes": "Six months."}`,
		"finding precedents":       `{"cases": [{"caseName": "Krishna Ram Mahale v. Shobha Venkat Rao", "year": 1989, "relevance": "Unlawful dispossession"}]}`,
		"constitutional validator": `{"analysis": "Article 300A protects the right to property.", "articles": ["Article 300A"], "remedies": ["Civil suit"]}`,
		"pathway advisor":          `{"steps": [{"step": 1, "title": "Send legal notice", "timeline": "2 weeks", "details": "Demand restoration."}], "templates": ["Legal notice"]}`,
		"report synthesizer":       `{"executiveSummary": "A civil possession dispute with strong documents.", "keyFacts": ["Registered agreement"], "timeline": ["2023-11-02"], "disclaimers": ["Not legal advice"]}`,
	}
}

func newTestExecutor(t *testing.T, backend TextBackend, opts ...ExecutorOption) *Executor {
	t.Helper()
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	all := append([]ExecutorOption{
		WithRegistry(reg),
		WithBackend(backend),
		WithStageTimeout(2 * time.Second),
	}, opts...)

	exec, err := NewExecutor(all...)
	require.NoError(t, err)
	return exec
}

func TestRunFullAnalysisComplete(t *testing.T) {
	backend := &stubBackend{responses: fullResponses()}
	exec := newTestExecutor(t, backend)

	report, err := exec.Run(context.Background(), "narrative text", []models.StageID{models.StageSynthesis})
	require.NoError(t, err)

	assert.Equal(t, models.ReportComplete, report.Status)
	require.Len(t, report.Stages, 7)
	for _, entry := range report.Stages {
		assert.Equal(t, models.StageSuccess, entry.Result.Status, "stage %s", entry.Stage)
	}
	assert.Equal(t, "A civil possession dispute with strong documents.", report.ExecutiveSummary)
	assert.Equal(t, 7, backend.callCount())
}

func TestRunStagesInRegistryOrder(t *testing.T) {
	backend := &stubBackend{responses: fullResponses()}
	exec := newTestExecutor(t, backend)

	report, err := exec.Run(context.Background(), "narrative", []models.StageID{models.StageSynthesis})
	require.NoError(t, err)

	ids := make([]models.StageID, len(report.Stages))
	for i, entry := range report.Stages {
		ids[i] = entry.Stage
	}
	assert.Equal(t, []models.StageID{
		models.StageClassification,
		models.StageFactExtraction,
		models.StageLawMapping,
		models.StagePrecedentSearch,
		models.StageConstitutionalCheck,
		models.StagePathway,
		models.StageSynthesis,
	}, ids)
}

func TestRunClosureOnly(t *testing.T) {
	backend := &stubBackend{responses: fullResponses()}
	exec := newTestExecutor(t, backend)

	report, err := exec.Run(context.Background(), "narrative", []models.StageID{models.StageLawMapping})
	require.NoError(t, err)

	require.Len(t, report.Stages, 3)
	assert.Equal(t, models.ReportComplete, report.Status)
	assert.Equal(t, 3, backend.callCount())
}

func TestRunUpstreamFailureShortCircuits(t *testing.T) {
	backend := &stubBackend{
		responses: fullResponses(),
		errFor: map[string]error{
			"fact interpreter": errors.New("model exploded"),
		},
	}
	exec := newTestExecutor(t, backend)

	report, err := exec.Run(context.Background(), "narrative", []models.StageID{models.StageSynthesis})
	require.NoError(t, err)

	assert.Equal(t, models.ReportDegraded, report.Status)

	classification, ok := report.Entry(models.StageClassification)
	require.True(t, ok)
	assert.Equal(t, models.StageSuccess, classification.Result.Status)

	facts, ok := report.Entry(models.StageFactExtraction)
	require.True(t, ok)
	assert.Equal(t, models.StageFailure, facts.Result.Status)
	assert.Equal(t, models.FailReasonBackendUnavailable, facts.Result.FailReason)

	// Everything downstream of fact extraction is short-circuited, not run.
	for _, id := range []models.StageID{
		models.StageLawMapping,
		models.StagePrecedentSearch,
		models.StageConstitutionalCheck,
		models.StagePathway,
		models.StageSynthesis,
	} {
		entry, ok := report.Entry(id)
		require.True(t, ok)
		assert.Equal(t, models.StageFailure, entry.Result.Status)
		assert.Equal(t, models.FailReasonUpstreamFailed, entry.Result.FailReason, "stage %s", id)
	}

	// classification once, fact extraction twice (one retry-eligible check
	// does not apply to a permanent error, so exactly one attempt).
	assert.Equal(t, 2, backend.callCount())
}

func TestRunRetriesTransientErrorOnce(t *testing.T) {
	attempts := 0
	backend := &flakyBackend{
		fail: func() error {
			attempts++
			if attempts == 1 {
				return &timeoutError{}
			}
			return nil
		},
		response: `{"classification": "civil", "rationale": "ok", "key_signals": ["x"]}`,
	}
	exec := newTestExecutor(t, backend)

	report, err := exec.Run(context.Background(), "narrative", []models.StageID{models.StageClassification})
	require.NoError(t, err)

	entry, ok := report.Entry(models.StageClassification)
	require.True(t, ok)
	assert.Equal(t, models.StageSuccess, entry.Result.Status)
	assert.Equal(t, 2, attempts)
}

func TestRunAllFailuresDegraded(t *testing.T) {
	backend := &stubBackend{err: errors.New("connection refused")}
	exec := newTestExecutor(t, backend)

	start := time.Now()
	report, err := exec.Run(context.Background(), "narrative", []models.StageID{models.StageSynthesis})
	require.NoError(t, err)

	assert.Equal(t, models.ReportDegraded, report.Status)
	for _, entry := range report.Stages {
		assert.Equal(t, models.StageFailure, entry.Result.Status)
	}
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.NotEmpty(t, report.ExecutiveSummary)
}

func TestRunCancellation(t *testing.T) {
	backend := &stubBackend{responses: fullResponses(), delay: 200 * time.Millisecond}
	exec := newTestExecutor(t, backend, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report, err := exec.Run(ctx, "narrative", []models.StageID{models.StageSynthesis})
	require.NoError(t, err)

	assert.Equal(t, models.ReportDegraded, report.Status)
	require.Len(t, report.Stages, 7)

	// Late stages never dispatched; they carry the cancellation or an
	// upstream failure, never a success.
	synthesis, ok := report.Entry(models.StageSynthesis)
	require.True(t, ok)
	assert.Equal(t, models.StageFailure, synthesis.Result.Status)
}

func TestNewExecutorRequiresRegistryAndBackend(t *testing.T) {
	_, err := NewExecutor(WithBackend(&stubBackend{}))
	assert.Error(t, err)

	reg, regErr := DefaultRegistry()
	require.NoError(t, regErr)
	_, err = NewExecutor(WithRegistry(reg))
	assert.Error(t, err)
}

// flakyBackend fails according to a script, then answers every prompt with
// the same response.
type flakyBackend struct {
	fail     func() error
	response string
}

func (b *flakyBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if err := b.fail(); err != nil {
		return "", err
	}
	return b.response, nil
}

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
