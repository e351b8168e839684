package judge

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/coacheval/internal/domain"
	"github.com/ahrav/coacheval/internal/ports"
)

var _ ports.Judge = (*TracedJudge)(nil)

// TracedJudge wraps a Judge with a per-call trace span so slow or
// failing judges show up in distributed traces without changing the
// evaluation contract.
type TracedJudge struct {
	next   ports.Judge
	tracer trace.Tracer
}

// WithTracing wraps a judge in span instrumentation.
func WithTracing(next ports.Judge) *TracedJudge {
	return &TracedJudge{
		next:   next,
		tracer: otel.Tracer("judge-client"),
	}
}

// Name returns the wrapped judge's identity.
func (t *TracedJudge) Name() string { return t.next.Name() }

// Evaluate runs the wrapped judge inside a span annotated with the judge
// identity, conversation, and resulting status. A non-success status is
// recorded on the span but is not treated as a fault of this wrapper.
func (t *TracedJudge) Evaluate(ctx context.Context, input domain.EvaluationInput) domain.JudgeEvaluation {
	ctx, span := t.tracer.Start(ctx, "Judge.Evaluate",
		trace.WithAttributes(
			attribute.String("judge.id", t.next.Name()),
			attribute.String("conversation.id", input.ConversationID),
			attribute.Int("conversation.turns", len(input.Turns)),
		),
	)
	defer span.End()

	eval := t.next.Evaluate(ctx, input)

	span.SetAttributes(
		attribute.String("judge.status", string(eval.Status)),
		attribute.Int64("judge.latency_ms", eval.Stats.LatencyMs),
	)
	if eval.Status == domain.StatusError {
		span.SetStatus(codes.Error, "judge evaluation failed")
	}
	return eval
}
