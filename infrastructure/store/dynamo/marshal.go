package dynamo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/ahrav/coacheval/internal/domain"
)

// Number is a decimal that marshals to DynamoDB's native number type.
// DynamoDB numbers are decimal strings on the wire, so values round-trip
// exactly; nothing passes through binary floating point.
type Number struct {
	decimal.Decimal
}

// MarshalDynamoDBAttributeValue encodes the decimal as an N attribute.
func (n Number) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: n.String()}, nil
}

// UnmarshalDynamoDBAttributeValue decodes N, S, or NULL attributes.
// Stringified numbers are tolerated because older writers stored some
// figures as strings.
func (n *Number) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		d, err := decimal.NewFromString(v.Value)
		if err != nil {
			return fmt.Errorf("invalid number attribute %q: %w", v.Value, err)
		}
		n.Decimal = d
	case *types.AttributeValueMemberS:
		d, err := decimal.NewFromString(v.Value)
		if err != nil {
			return fmt.Errorf("invalid numeric string attribute %q: %w", v.Value, err)
		}
		n.Decimal = d
	case *types.AttributeValueMemberNULL:
		n.Decimal = decimal.Zero
	default:
		return fmt.Errorf("cannot decode %T into a number", av)
	}
	return nil
}

// turnItem is the stored shape of one chat exchange. Field names follow
// the chat backend's schema: "response" is what the user sent and
// "message" is the assistant's reply.
type turnItem struct {
	ConversationID  string     `dynamodbav:"conversation_id"`
	Username        string     `dynamodbav:"username"`
	AgentID         string     `dynamodbav:"agent_id"`
	Response        string     `dynamodbav:"response"`
	Message         string     `dynamodbav:"message"`
	Timestamp       string     `dynamodbav:"timestamp"`
	InteractionType string     `dynamodbav:"interaction_type"`
	Quiz            *quizItem  `dynamodbav:"quiz,omitempty"`
	Usage           *usageItem `dynamodbav:"usage,omitempty"`
}

type quizItem struct {
	QuestionID string `dynamodbav:"question_id"`
	Score      Number `dynamodbav:"score"`
	Completed  bool   `dynamodbav:"completed"`
}

type usageItem struct {
	PromptTokens     int    `dynamodbav:"prompt_tokens"`
	CompletionTokens int    `dynamodbav:"completion_tokens"`
	TotalPrice       Number `dynamodbav:"total_price"`
	Latency          Number `dynamodbav:"latency"`
	Currency         string `dynamodbav:"currency,omitempty"`
}

// toTurn converts a stored item to the domain type. An unrecognized
// interaction type degrades to plain content; a malformed timestamp
// degrades to the zero time rather than failing the read.
func (it turnItem) toTurn() domain.Turn {
	t := domain.Turn{
		UserMessage:      it.Response,
		AssistantMessage: it.Message,
		Kind:             domain.KindContent,
	}
	switch domain.InteractionKind(it.InteractionType) {
	case domain.KindQuizPrompt:
		t.Kind = domain.KindQuizPrompt
	case domain.KindQuizResult:
		t.Kind = domain.KindQuizResult
	}
	if ts, err := time.Parse(time.RFC3339, it.Timestamp); err == nil {
		t.Timestamp = ts
	}
	if it.Quiz != nil {
		t.Quiz = &domain.QuizResult{
			QuestionID: it.Quiz.QuestionID,
			Score:      it.Quiz.Score.Decimal,
			Completed:  it.Quiz.Completed,
		}
	}
	if it.Usage != nil {
		t.Usage = &domain.TurnUsage{
			PromptTokens:     it.Usage.PromptTokens,
			CompletionTokens: it.Usage.CompletionTokens,
			TotalPrice:       it.Usage.TotalPrice.Decimal,
			Latency:          it.Usage.Latency.Decimal,
			Currency:         it.Usage.Currency,
		}
	}
	return t
}

// evaluationItem is the stored shape of one evaluation record, keyed by
// conversation id.
type evaluationItem struct {
	ConversationID      string            `dynamodbav:"conversation_id"`
	Username            string            `dynamodbav:"username"`
	AgentID             string            `dynamodbav:"agent_id"`
	EvaluationTimestamp string            `dynamodbav:"evaluation_timestamp"`
	Judges              []judgeItem       `dynamodbav:"judges"`
	Usage               usageMetricsItem  `dynamodbav:"usage_metrics"`
	Quiz                quizMetricsItem   `dynamodbav:"quiz_metrics"`
}

type judgeItem struct {
	JudgeID             string `dynamodbav:"judge_id"`
	Personalization     Number `dynamodbav:"Personalization"`
	LanguageSimplicity  Number `dynamodbav:"Language_Simplicity"`
	ResponseLength      Number `dynamodbav:"Response_Length"`
	ContentRelevance    Number `dynamodbav:"Content_Relevance"`
	ContentDifficulty   Number `dynamodbav:"Content_Difficulty"`
	Summary             string `dynamodbav:"summary"`
	KeyInsights         string `dynamodbav:"key_insights"`
	AreasForImprovement string `dynamodbav:"areas_for_improvement"`
	Recommendations     string `dynamodbav:"recommendations"`
	Status              string `dynamodbav:"process_status"`
	RawResponse         string `dynamodbav:"raw_response,omitempty"`
	LatencyMs           int64  `dynamodbav:"latency_ms"`
	EvalTokens          int    `dynamodbav:"eval_tokens"`
	EvalCost            Number `dynamodbav:"eval_cost"`
}

type usageMetricsItem struct {
	NumTurns            int    `dynamodbav:"num_turns"`
	AvgTokensPerTurn    Number `dynamodbav:"avg_tokens_per_turn"`
	AvgCompletionTokens Number `dynamodbav:"avg_completion_tokens"`
	AvgCostPerTurn      Number `dynamodbav:"avg_cost_per_turn"`
	TotalPrice          Number `dynamodbav:"total_price"`
	AvgLatency          Number `dynamodbav:"avg_latency"`
	MaxLatency          Number `dynamodbav:"max_latency"`
	Currency            string `dynamodbav:"currency"`
}

type quizMetricsItem struct {
	QuizTaken bool   `dynamodbav:"quiz_taken"`
	QuizScore Number `dynamodbav:"quiz_score"`
}

// newEvaluationItem converts a domain record to its stored shape.
func newEvaluationItem(rec domain.EvaluationRecord) evaluationItem {
	item := evaluationItem{
		ConversationID:      rec.ConversationID,
		Username:            rec.Username,
		AgentID:             rec.AgentID,
		EvaluationTimestamp: rec.EvaluatedAt.UTC().Format(time.RFC3339),
		Judges:              make([]judgeItem, 0, len(rec.Judges)),
		Usage: usageMetricsItem{
			NumTurns:            rec.Usage.NumTurns,
			AvgTokensPerTurn:    Number{rec.Usage.AvgTokensPerTurn},
			AvgCompletionTokens: Number{rec.Usage.AvgCompletionTokens},
			AvgCostPerTurn:      Number{rec.Usage.AvgCostPerTurn},
			TotalPrice:          Number{rec.Usage.TotalPrice},
			AvgLatency:          Number{rec.Usage.AvgLatency},
			MaxLatency:          Number{rec.Usage.MaxLatency},
			Currency:            rec.Usage.Currency,
		},
		Quiz: quizMetricsItem{
			QuizTaken: rec.Quiz.QuizTaken,
			QuizScore: Number{rec.Quiz.QuizScore},
		},
	}
	for _, j := range rec.Judges {
		item.Judges = append(item.Judges, judgeItem{
			JudgeID:             j.JudgeID,
			Personalization:     Number{j.Scores.Personalization},
			LanguageSimplicity:  Number{j.Scores.LanguageSimplicity},
			ResponseLength:      Number{j.Scores.ResponseLength},
			ContentRelevance:    Number{j.Scores.ContentRelevance},
			ContentDifficulty:   Number{j.Scores.ContentDifficulty},
			Summary:             j.Notes.Summary,
			KeyInsights:         j.Notes.KeyInsights,
			AreasForImprovement: j.Notes.AreasForImprovement,
			Recommendations:     j.Notes.Recommendations,
			Status:              string(j.Status),
			RawResponse:         j.RawResponse,
			LatencyMs:           j.Stats.LatencyMs,
			EvalTokens:          j.Stats.EvalTokens,
			EvalCost:            Number{j.Stats.EvalCost},
		})
	}
	return item
}

// toRecord converts a stored item back to the domain record.
func (it evaluationItem) toRecord() domain.EvaluationRecord {
	rec := domain.EvaluationRecord{
		ConversationID: it.ConversationID,
		Username:       it.Username,
		AgentID:        it.AgentID,
		Judges:         make([]domain.JudgeEvaluation, 0, len(it.Judges)),
		Usage: domain.UsageMetrics{
			NumTurns:            it.Usage.NumTurns,
			AvgTokensPerTurn:    it.Usage.AvgTokensPerTurn.Decimal,
			AvgCompletionTokens: it.Usage.AvgCompletionTokens.Decimal,
			AvgCostPerTurn:      it.Usage.AvgCostPerTurn.Decimal,
			TotalPrice:          it.Usage.TotalPrice.Decimal,
			AvgLatency:          it.Usage.AvgLatency.Decimal,
			MaxLatency:          it.Usage.MaxLatency.Decimal,
			Currency:            it.Usage.Currency,
		},
		Quiz: domain.QuizMetrics{
			QuizTaken: it.Quiz.QuizTaken,
			QuizScore: it.Quiz.QuizScore.Decimal,
		},
	}
	if ts, err := time.Parse(time.RFC3339, it.EvaluationTimestamp); err == nil {
		rec.EvaluatedAt = ts
	}
	for _, j := range it.Judges {
		rec.Judges = append(rec.Judges, domain.JudgeEvaluation{
			JudgeID: j.JudgeID,
			Scores: domain.ScoreMetrics{
				Personalization:    j.Personalization.Decimal,
				LanguageSimplicity: j.LanguageSimplicity.Decimal,
				ResponseLength:     j.ResponseLength.Decimal,
				ContentRelevance:   j.ContentRelevance.Decimal,
				ContentDifficulty:  j.ContentDifficulty.Decimal,
			},
			Notes: domain.EvaluationNotes{
				Summary:             j.Summary,
				KeyInsights:         j.KeyInsights,
				AreasForImprovement: j.AreasForImprovement,
				Recommendations:     j.Recommendations,
			},
			Status:      domain.ProcessStatus(j.Status),
			RawResponse: j.RawResponse,
			Stats: domain.JudgeStats{
				LatencyMs:  j.LatencyMs,
				EvalTokens: j.EvalTokens,
				EvalCost:   j.EvalCost.Decimal,
			},
		})
	}
	return rec
}

// profileItem is the stored shape of a user's onboarding profile: two
// loosely-typed attribute maps written by the chat backend.
type profileItem struct {
	Profile1 map[string]any `dynamodbav:"profile1"`
	Profile2 map[string]any `dynamodbav:"profile2"`
}

// attrString renders a loosely-typed profile attribute as the string the
// judge inputs expect. Numbers are rendered without a trailing ".0" for
// whole values.
func attrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// toSnapshot merges the two profile sections into one flat snapshot.
func (it profileItem) toSnapshot() domain.ProfileSnapshot {
	p1 := it.Profile1
	p2 := it.Profile2
	return domain.ProfileSnapshot{
		CountryOfOrigin:       attrString(p1["country_of_origin"]),
		TimeInUAE:             attrString(p1["time_in_uae"]),
		JobTitle:              attrString(p1["job_title"]),
		Housing:               attrString(p1["housing"]),
		EducationLevel:        attrString(p1["education_level"]),
		NumberOfKids:          attrString(p1["number_of_kids"]),
		BankAccount:           attrString(p2["bank_account"]),
		DebtInformation:       attrString(p2["debt_information"]),
		RemittanceInformation: attrString(p2["remittance_information"]),
		FinancialDependents:   attrString(p2["financial_dependents"]),
	}
}
