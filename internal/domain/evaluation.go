package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessStatus describes whether a judge's output was structurally
// recoverable into scores.
type ProcessStatus string

const (
	// StatusSuccess means all score dimensions were recovered.
	StatusSuccess ProcessStatus = "success"

	// StatusError means nothing structured could be recovered, or the
	// judge call itself failed.
	StatusError ProcessStatus = "error"

	// StatusPartial means a structured object was recovered but some
	// score dimensions were missing and defaulted to zero.
	StatusPartial ProcessStatus = "partial"
)

// ScoreMetrics holds the five quality dimensions a judge scores a
// conversation on. Each dimension is nominally bounded to [0,5], but the
// pipeline preserves whatever value the judge returned; clamping is a
// consumer concern. Values are exact decimals so stored aggregates
// reproduce identically on re-read.
type ScoreMetrics struct {
	Personalization    decimal.Decimal `json:"Personalization"`
	LanguageSimplicity decimal.Decimal `json:"Language_Simplicity"`
	ResponseLength     decimal.Decimal `json:"Response_Length"`
	ContentRelevance   decimal.Decimal `json:"Content_Relevance"`
	ContentDifficulty  decimal.Decimal `json:"Content_Difficulty"`
}

// ZeroScores returns a ScoreMetrics with every dimension set to exactly
// zero. Used whenever a judge's output could not be recovered.
func ZeroScores() ScoreMetrics {
	return ScoreMetrics{
		Personalization:    decimal.Zero,
		LanguageSimplicity: decimal.Zero,
		ResponseLength:     decimal.Zero,
		ContentRelevance:   decimal.Zero,
		ContentDifficulty:  decimal.Zero,
	}
}

// EvaluationNotes carries the judge's qualitative feedback. Fields may be
// empty but the record itself is always present in a judge evaluation.
type EvaluationNotes struct {
	Summary             string `json:"summary"`
	KeyInsights         string `json:"key_insights"`
	AreasForImprovement string `json:"areas_for_improvement"`
	Recommendations     string `json:"recommendations"`
}

// JudgeStats records a judge call's own operational figures, kept
// separate from the content scores it produced.
type JudgeStats struct {
	// LatencyMs is the wall-clock duration of the judge call.
	LatencyMs int64 `json:"latency_ms"`

	// EvalTokens is the token count the judge service reported for the
	// evaluation, when it reported one.
	EvalTokens int `json:"eval_tokens,omitempty"`

	// EvalCost is the cost the judge service reported, when it reported
	// one.
	EvalCost decimal.Decimal `json:"eval_cost"`
}

// JudgeEvaluation is one judge's outcome for one conversation. Every
// configured judge contributes exactly one of these to the evaluation
// record, whether its call succeeded or not.
type JudgeEvaluation struct {
	// JudgeID identifies which configured judge produced this outcome.
	// Entries are associated by identity, never by position.
	JudgeID string `json:"judge_id"`

	// Scores holds the five quality dimensions, zeroed unless Status is
	// success or partial.
	Scores ScoreMetrics `json:"scores"`

	// Notes holds the judge's qualitative feedback.
	Notes EvaluationNotes `json:"notes"`

	// Status reports whether the judge's output was recoverable.
	Status ProcessStatus `json:"status"`

	// RawResponse preserves the judge's output or failure detail whenever
	// Status is not success, so failures stay diagnosable.
	RawResponse string `json:"raw_response,omitempty"`

	// Stats carries the call's operational figures.
	Stats JudgeStats `json:"stats"`
}

// UsageMetrics aggregates token, cost, and latency figures across all
// turns of a conversation. All numeric fields are exact decimals.
type UsageMetrics struct {
	NumTurns            int             `json:"num_turns"`
	AvgTokensPerTurn    decimal.Decimal `json:"avg_tokens_per_turn"`
	AvgCompletionTokens decimal.Decimal `json:"avg_completion_tokens"`
	AvgCostPerTurn      decimal.Decimal `json:"avg_cost_per_turn"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	AvgLatency          decimal.Decimal `json:"avg_latency"`
	MaxLatency          decimal.Decimal `json:"max_latency"`
	Currency            string          `json:"currency"`
}

// QuizMetrics reports whether a quiz was completed within the
// conversation and the score it yielded.
type QuizMetrics struct {
	QuizTaken bool            `json:"quiz_taken"`
	QuizScore decimal.Decimal `json:"quiz_score"`
}

// EvaluationRecord is the unit of persistence: one per conversation,
// ever. It combines every configured judge's outcome with the usage and
// quiz aggregates computed from the conversation's turns.
type EvaluationRecord struct {
	ConversationID string            `json:"conversation_id"`
	Username       string            `json:"username"`
	AgentID        string            `json:"agent_id"`
	EvaluatedAt    time.Time         `json:"evaluation_timestamp"`
	Judges         []JudgeEvaluation `json:"judges"`
	Usage          UsageMetrics      `json:"usage_metrics"`
	Quiz           QuizMetrics       `json:"quiz_metrics"`
}
