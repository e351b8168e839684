// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/coacheval/internal/domain"
)

// ConversationStore is the read-only view over stored conversations plus
// the write target for evaluation records. The discovery methods return
// identifier sets so the orchestrator can compute which conversations
// still need evaluation as a set difference.
type ConversationStore interface {
	// ListConversationIDsWithTurns returns the identifiers of every
	// conversation that has at least one stored turn.
	ListConversationIDsWithTurns(ctx context.Context) (map[string]struct{}, error)

	// ListEvaluatedConversationIDs returns the identifiers of every
	// conversation that already has a stored evaluation record.
	ListEvaluatedConversationIDs(ctx context.Context) (map[string]struct{}, error)

	// GetTurns returns the conversation's turns in chronological order.
	// An unknown conversation yields an empty slice, not an error.
	GetTurns(ctx context.Context, conversationID string) ([]domain.Turn, error)

	// GetConversationMeta returns the username and agent identity a
	// conversation belongs to.
	GetConversationMeta(ctx context.Context, conversationID string) (domain.ConversationMeta, error)

	// GetProfile returns the user's profile snapshot. A user without
	// profile data yields a zero snapshot, not an error.
	GetProfile(ctx context.Context, username string) (domain.ProfileSnapshot, error)

	// StoreEvaluation durably persists one evaluation record. It reports
	// false when the write did not happen, including when a record for
	// the conversation already exists; it never panics. The orchestrator
	// treats a false return as a logged, non-fatal failure.
	StoreEvaluation(ctx context.Context, record domain.EvaluationRecord) (bool, error)
}
