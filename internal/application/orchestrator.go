// Package application contains the evaluation orchestrator: the control
// loop that discovers unevaluated conversations, fans each one out to
// every configured judge, merges the outcomes with usage and quiz
// aggregates, and persists one evaluation record per conversation.
package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/coacheval/internal/domain"
	"github.com/ahrav/coacheval/internal/ports"
)

// Metric names emitted by the orchestrator.
const (
	metricEvaluated     = "conversations_evaluated"
	metricSkipped       = "conversations_skipped"
	metricJudgeErrors   = "judge_errors"
	metricStoreFailures = "store_failures"
	metricBatchPending  = "batch_pending"
	opJudgeCall         = "judge_call"
	opStoreWrite        = "store_write"
)

// Evaluator is the top-level batch orchestrator. One instance processes
// conversations sequentially; within a conversation, judge calls fan out
// concurrently. Per-judge and per-conversation failures are isolated:
// nothing short of a discovery failure aborts a run.
type Evaluator struct {
	store   ports.ConversationStore
	judges  []ports.Judge
	config  Config
	metrics ports.MetricsCollector
	limiter *rate.Limiter
	now     func() time.Time
}

// NewEvaluator creates an orchestrator over the given store and judge
// set. The judge set is fixed for the lifetime of the evaluator; an
// empty set is a configuration error. A nil metrics collector disables
// metric emission.
func NewEvaluator(store ports.ConversationStore, judges []ports.Judge, cfg Config, metrics ports.MetricsCollector) (*Evaluator, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: conversation store is required", domain.ErrInvalidConfiguration)
	}
	if len(judges) == 0 {
		return nil, domain.ErrNoJudges
	}
	if err := validateOrchestratorConfig(validator.New(), cfg); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	// A limiter with burst 1 admits the first conversation immediately
	// and spaces the rest by the configured delay, which also means no
	// trailing wait after the final conversation.
	limit := rate.Inf
	if cfg.ConversationDelay > 0 {
		limit = rate.Every(cfg.ConversationDelay)
	}

	return &Evaluator{
		store:   store,
		judges:  judges,
		config:  cfg,
		metrics: metrics,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}, nil
}

// Run executes one evaluation batch: it discovers every conversation
// with stored turns and no evaluation record, then evaluates each in a
// deterministic order. Per-conversation failures are logged and skipped.
// Run returns an error only for discovery failures or context
// cancellation; everything else is isolated.
func (e *Evaluator) Run(ctx context.Context) error {
	log := clog.FromContext(ctx)

	pending, err := e.discover(ctx)
	if err != nil {
		return err
	}
	e.metrics.RecordGauge(metricBatchPending, float64(len(pending)), nil)

	if len(pending) == 0 {
		log.Infof("no conversations to evaluate")
		return nil
	}
	log.Infof("found %d conversations to evaluate", len(pending))

	for _, id := range pending {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("batch interrupted: %w", err)
		}
		e.processConversation(ctx, id)
	}

	log.Infof("completed evaluation batch")
	return nil
}

// discover computes the set difference between conversations with turns
// and conversations already evaluated. The result is sorted so iteration
// order is deterministic within a run.
func (e *Evaluator) discover(ctx context.Context) ([]string, error) {
	withTurns, err := e.store.ListConversationIDsWithTurns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	evaluated, err := e.store.ListEvaluatedConversationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluated conversations: %w", err)
	}

	pending := make([]string, 0, len(withTurns))
	for id := range withTurns {
		if _, done := evaluated[id]; !done {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)
	return pending, nil
}

// processConversation evaluates a single conversation end to end. Every
// failure here, from missing prerequisites to a store write refusal, is
// logged and leaves the batch running; a
// conversation whose record was not persisted stays eligible for the
// next run.
func (e *Evaluator) processConversation(ctx context.Context, id string) {
	log := clog.FromContext(ctx)

	input, err := e.gatherInput(ctx, id)
	if err != nil {
		log.Warnf("skipping conversation: %v", err)
		e.metrics.RecordCounter(metricSkipped, 1, nil)
		return
	}

	evals := e.fanOut(ctx, input)
	if len(evals) == 0 {
		log.Warnf("skipping conversation %s: judge fan-out produced no evaluations", id)
		e.metrics.RecordCounter(metricSkipped, 1, nil)
		return
	}

	record := domain.EvaluationRecord{
		ConversationID: input.ConversationID,
		Username:       input.Username,
		AgentID:        input.AgentID,
		EvaluatedAt:    e.now().UTC(),
		Judges:         evals,
		Usage:          domain.ComputeUsage(input.Turns),
		Quiz:           domain.ComputeQuiz(input.Turns),
	}

	start := time.Now()
	stored, err := e.store.StoreEvaluation(ctx, record)
	e.metrics.RecordLatency(opStoreWrite, time.Since(start), nil)
	if err != nil {
		log.Errorf("failed to store evaluation for conversation %s: %v", id, err)
		e.metrics.RecordCounter(metricStoreFailures, 1, nil)
		return
	}
	if !stored {
		log.Warnf("evaluation for conversation %s was not stored", id)
		e.metrics.RecordCounter(metricStoreFailures, 1, nil)
		return
	}

	log.Infof("stored evaluation for conversation %s (%d judges)", id, len(evals))
	e.metrics.RecordCounter(metricEvaluated, 1, nil)
}

// gatherInput fetches a conversation's turns, metadata, and the owning
// user's profile snapshot. Any missing prerequisite yields a
// PrerequisiteError; the conversation is skipped, never fatal.
func (e *Evaluator) gatherInput(ctx context.Context, id string) (domain.EvaluationInput, error) {
	turns, err := e.store.GetTurns(ctx, id)
	if err != nil {
		return domain.EvaluationInput{}, domain.NewPrerequisiteError(id, err)
	}
	if len(turns) == 0 {
		return domain.EvaluationInput{}, domain.NewPrerequisiteError(id, domain.ErrNoTurns)
	}

	meta, err := e.store.GetConversationMeta(ctx, id)
	if err != nil {
		return domain.EvaluationInput{}, domain.NewPrerequisiteError(id, err)
	}
	if meta.AgentID == "" {
		return domain.EvaluationInput{}, domain.NewPrerequisiteError(id, domain.ErrNoAgentID)
	}

	profile, err := e.store.GetProfile(ctx, meta.Username)
	if err != nil {
		return domain.EvaluationInput{}, domain.NewPrerequisiteError(id, err)
	}
	if profile.IsZero() {
		return domain.EvaluationInput{}, domain.NewPrerequisiteError(id, domain.ErrNoProfile)
	}

	return domain.EvaluationInput{
		ConversationID: id,
		Username:       meta.Username,
		AgentID:        meta.AgentID,
		Turns:          turns,
		Profile:        profile,
	}, nil
}

// fanOut invokes every configured judge for one conversation. Each slot
// in the result belongs to one judge regardless of completion order, and
// every judge contributes exactly one entry, success or error, because
// judges fold their own failures and evaluateSafely catches anything
// that escapes.
func (e *Evaluator) fanOut(ctx context.Context, input domain.EvaluationInput) []domain.JudgeEvaluation {
	results := make([]domain.JudgeEvaluation, len(e.judges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.JudgeConcurrency)
	for i, j := range e.judges {
		g.Go(func() error {
			results[i] = e.evaluateSafely(gctx, j, input)
			return nil
		})
	}
	// Judges never surface errors through the group.
	_ = g.Wait()

	return results
}

// evaluateSafely runs one judge and absorbs anything it throws,
// including panics, into an error-status evaluation so the remaining
// judges and the batch are unaffected.
func (e *Evaluator) evaluateSafely(ctx context.Context, j ports.Judge, input domain.EvaluationInput) (eval domain.JudgeEvaluation) {
	defer func() {
		if r := recover(); r != nil {
			clog.FromContext(ctx).Errorf("judge %s panicked evaluating conversation %s: %v",
				j.Name(), input.ConversationID, r)
			eval = domain.JudgeEvaluation{
				JudgeID:     j.Name(),
				Scores:      domain.ZeroScores(),
				Status:      domain.StatusError,
				RawResponse: fmt.Sprintf("panic: %v", r),
			}
			e.metrics.RecordCounter(metricJudgeErrors, 1, map[string]string{"judge": j.Name()})
		}
	}()

	start := time.Now()
	eval = j.Evaluate(ctx, input)
	e.metrics.RecordLatency(opJudgeCall, time.Since(start), map[string]string{"judge": j.Name()})
	if eval.Status == domain.StatusError {
		e.metrics.RecordCounter(metricJudgeErrors, 1, map[string]string{"judge": j.Name()})
	}
	return eval
}

// noopMetrics discards all metrics.
type noopMetrics struct{}

func (noopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (noopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (noopMetrics) RecordGauge(string, float64, map[string]string)         {}
