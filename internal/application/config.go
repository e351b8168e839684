package application

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default configuration values for the evaluation orchestrator.
const (
	// DefaultConversationDelay spaces consecutive conversations to
	// respect judge-service rate limits.
	DefaultConversationDelay = time.Second

	// DefaultJudgeConcurrency bounds concurrent judge calls within one
	// conversation. The judge set is typically small, so the fan-out is
	// effectively unbounded in practice.
	DefaultJudgeConcurrency = 5
)

// Config holds the orchestrator's tunable behavior. All fields are
// validated during construction.
type Config struct {
	// ConversationDelay is the pause inserted between consecutive
	// conversations. It is never applied after the final conversation.
	ConversationDelay time.Duration `validate:"min=0"`

	// JudgeConcurrency limits concurrent judge calls for a single
	// conversation.
	JudgeConcurrency int `validate:"min=1,max=20"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		ConversationDelay: DefaultConversationDelay,
		JudgeConcurrency:  DefaultJudgeConcurrency,
	}
}

// validateOrchestratorConfig validates a Config using the provided
// validator instance.
func validateOrchestratorConfig(v *validator.Validate, cfg Config) error {
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
