package ports

import (
	"context"

	"github.com/ahrav/coacheval/internal/domain"
)

// Judge is one independent automated reviewer. Implementations wrap a
// single judge service endpoint and are stateless across calls.
//
// Evaluate never returns an error for judge-side failures: timeouts,
// non-200 responses, mid-stream errors, and unparseable output all fold
// into the returned JudgeEvaluation with status "error" and the failure
// detail captured in RawResponse. This keeps one unreliable judge from
// ever blocking the others or the batch. Only construction may fail, for
// configuration problems such as missing credentials.
type Judge interface {
	// Name returns the judge's configured identity. Evaluation entries
	// are associated with this identity, never with call order.
	Name() string

	// Evaluate scores one conversation. The call respects ctx and the
	// judge's own configured timeout, and always returns within that
	// bound with exactly one JudgeEvaluation.
	Evaluate(ctx context.Context, input domain.EvaluationInput) domain.JudgeEvaluation
}
