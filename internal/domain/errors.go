package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during evaluation operations.
var (
	// ErrNoTurns indicates that a conversation has no stored turns.
	ErrNoTurns = errors.New("conversation has no turns")

	// ErrNoProfile indicates that no profile snapshot exists for the
	// conversation's user.
	ErrNoProfile = errors.New("no profile found for user")

	// ErrNoAgentID indicates that the conversation carries no agent
	// identity.
	ErrNoAgentID = errors.New("conversation has no agent id")

	// ErrNoJudges indicates that an evaluation run was configured with an
	// empty judge set.
	ErrNoJudges = errors.New("no judges configured")

	// ErrInvalidConfiguration indicates that configuration is invalid or
	// incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// PrerequisiteError reports why a conversation could not be evaluated.
// Conversations failing a prerequisite are skipped, never fatal to the
// batch.
type PrerequisiteError struct {
	// ConversationID is the conversation that was skipped.
	ConversationID string

	// Err is the missing prerequisite.
	Err error
}

// Error implements the error interface for PrerequisiteError.
func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("conversation %s: %v", e.ConversationID, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is checks.
func (e *PrerequisiteError) Unwrap() error { return e.Err }

// NewPrerequisiteError creates a PrerequisiteError for the given
// conversation and missing prerequisite.
func NewPrerequisiteError(conversationID string, err error) *PrerequisiteError {
	return &PrerequisiteError{ConversationID: conversationID, Err: err}
}
