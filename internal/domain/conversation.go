package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InteractionKind tags what a turn represents within a coaching session.
// Most turns carry plain coaching content; quiz turns carry the prompt
// shown to the user and the graded outcome.
type InteractionKind string

const (
	// KindContent is a regular coaching exchange.
	KindContent InteractionKind = "content"

	// KindQuizPrompt is a turn where the assistant posed a quiz question.
	KindQuizPrompt InteractionKind = "quiz_prompt"

	// KindQuizResult is a turn recording the graded outcome of a quiz.
	KindQuizResult InteractionKind = "quiz_result"
)

// ConversationMeta identifies who owns a conversation and which assistant
// configuration produced it. Conversations are created by the live chat
// system and are read-only to the evaluation pipeline.
type ConversationMeta struct {
	// ConversationID uniquely identifies the conversation.
	ConversationID string `json:"conversation_id"`

	// Username is the account that held the conversation.
	Username string `json:"username"`

	// AgentID names the assistant configuration that produced the replies.
	AgentID string `json:"agent_id"`
}

// TurnUsage captures the per-call usage figures recorded by the chat
// backend when a turn was produced. Cost is the backend's reported
// aggregate figure; the pipeline never re-derives it from unit prices.
type TurnUsage struct {
	// PromptTokens is the token count of the request sent to the model.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the token count of the model's reply.
	CompletionTokens int `json:"completion_tokens"`

	// TotalPrice is the reported cost of the call.
	TotalPrice decimal.Decimal `json:"total_price"`

	// Latency is the call duration in seconds.
	Latency decimal.Decimal `json:"latency"`

	// Currency is the ISO code the price is denominated in.
	Currency string `json:"currency,omitempty"`
}

// QuizResult is the graded outcome attached to a quiz-result turn.
type QuizResult struct {
	// QuestionID identifies which quiz question was answered.
	QuestionID string `json:"question_id,omitempty"`

	// Score is the grade the user received.
	Score decimal.Decimal `json:"score"`

	// Completed reports whether the user finished the quiz.
	Completed bool `json:"completed"`
}

// Turn is one user/assistant exchange within a conversation.
// Turns are immutable once recorded by the chat system.
type Turn struct {
	// UserMessage is the text the user sent.
	UserMessage string `json:"user_message"`

	// AssistantMessage is the assistant's reply.
	AssistantMessage string `json:"assistant_message"`

	// Timestamp records when the exchange happened.
	Timestamp time.Time `json:"timestamp"`

	// Kind tags the interaction as content, quiz prompt, or quiz result.
	Kind InteractionKind `json:"interaction_kind"`

	// Quiz holds the graded quiz outcome for quiz-result turns.
	// Nil for every other kind.
	Quiz *QuizResult `json:"quiz,omitempty"`

	// Usage holds the backend's usage figures for this turn when the
	// backend recorded them. Nil when no figures were captured.
	Usage *TurnUsage `json:"usage,omitempty"`
}

// EvaluationInput is everything a judge needs to score one conversation.
// Inputs are assembled fresh per evaluation; no judge call carries state
// from a previous call.
type EvaluationInput struct {
	ConversationID string
	Username       string
	AgentID        string
	Turns          []Turn
	Profile        ProfileSnapshot
}
