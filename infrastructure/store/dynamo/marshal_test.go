package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/coacheval/internal/domain"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// TestNumberAttributeValue covers the decimal wrapper against DynamoDB's
// number, string, and null attribute kinds.
func TestNumberAttributeValue(t *testing.T) {
	t.Run("marshals to an exact N attribute", func(t *testing.T) {
		av, err := Number{dec(t, "0.0125")}.MarshalDynamoDBAttributeValue()
		require.NoError(t, err)

		n, ok := av.(*types.AttributeValueMemberN)
		require.True(t, ok)
		assert.Equal(t, "0.0125", n.Value)
	})

	t.Run("unmarshals N, S, and NULL", func(t *testing.T) {
		tests := []struct {
			name string
			av   types.AttributeValue
			want string
		}{
			{name: "number", av: &types.AttributeValueMemberN{Value: "4.35"}, want: "4.35"},
			{name: "stringified number", av: &types.AttributeValueMemberS{Value: "2.5"}, want: "2.5"},
			{name: "null", av: &types.AttributeValueMemberNULL{Value: true}, want: "0"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var n Number
				require.NoError(t, n.UnmarshalDynamoDBAttributeValue(tt.av))
				assert.True(t, n.Equal(dec(t, tt.want)), "got %s", n)
			})
		}
	})

	t.Run("rejects non-numeric attributes", func(t *testing.T) {
		var n Number
		assert.Error(t, n.UnmarshalDynamoDBAttributeValue(&types.AttributeValueMemberS{Value: "abc"}))
		assert.Error(t, n.UnmarshalDynamoDBAttributeValue(&types.AttributeValueMemberBOOL{Value: true}))
	})
}

// TestEvaluationItemRoundTrip marshals a full record through the
// attributevalue codec and back, checking the decimals come back as the
// identical values.
func TestEvaluationItemRoundTrip(t *testing.T) {
	rec := domain.EvaluationRecord{
		ConversationID: "conv-1",
		Username:       "maria",
		AgentID:        "agent-9",
		EvaluatedAt:    time.Date(2025, 3, 2, 15, 4, 5, 0, time.UTC),
		Judges: []domain.JudgeEvaluation{
			{
				JudgeID: "eval_gpt",
				Scores: domain.ScoreMetrics{
					Personalization:    dec(t, "4.35"),
					LanguageSimplicity: dec(t, "3"),
					ResponseLength:     dec(t, "2.5"),
					ContentRelevance:   dec(t, "5"),
					ContentDifficulty:  dec(t, "1"),
				},
				Notes: domain.EvaluationNotes{
					Summary:             "clear and relevant",
					KeyInsights:         "good use of profile",
					AreasForImprovement: "shorter answers",
					Recommendations:     "add examples",
				},
				Status: domain.StatusSuccess,
				Stats: domain.JudgeStats{
					LatencyMs:  842,
					EvalTokens: 512,
					EvalCost:   dec(t, "0.0125"),
				},
			},
			{
				JudgeID:     "eval_claude",
				Scores:      domain.ZeroScores(),
				Status:      domain.StatusError,
				RawResponse: "Sorry, I cannot process this request.",
			},
		},
		Usage: domain.UsageMetrics{
			NumTurns:            2,
			AvgTokensPerTurn:    dec(t, "22.5"),
			AvgCompletionTokens: dec(t, "7.5"),
			AvgCostPerTurn:      dec(t, "0.03"),
			TotalPrice:          dec(t, "0.06"),
			AvgLatency:          dec(t, "2"),
			MaxLatency:          dec(t, "2.5"),
			Currency:            "USD",
		},
		Quiz: domain.QuizMetrics{QuizTaken: true, QuizScore: dec(t, "3")},
	}

	raw, err := attributevalue.MarshalMap(newEvaluationItem(rec))
	require.NoError(t, err)

	// The partition key must be present for the conditional write.
	key, ok := raw["conversation_id"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "conv-1", key.Value)

	var it evaluationItem
	require.NoError(t, attributevalue.UnmarshalMap(raw, &it))
	got := it.toRecord()

	assert.Equal(t, rec.ConversationID, got.ConversationID)
	assert.Equal(t, rec.Username, got.Username)
	assert.Equal(t, rec.AgentID, got.AgentID)
	assert.True(t, rec.EvaluatedAt.Equal(got.EvaluatedAt))

	require.Len(t, got.Judges, 2)
	assert.True(t, got.Judges[0].Scores.Personalization.Equal(dec(t, "4.35")))
	assert.Equal(t, "clear and relevant", got.Judges[0].Notes.Summary)
	assert.Equal(t, domain.StatusError, got.Judges[1].Status)
	assert.Equal(t, "Sorry, I cannot process this request.", got.Judges[1].RawResponse)
	assert.True(t, got.Judges[0].Stats.EvalCost.Equal(dec(t, "0.0125")))

	assert.True(t, got.Usage.AvgTokensPerTurn.Equal(dec(t, "22.5")))
	assert.True(t, got.Usage.TotalPrice.Equal(dec(t, "0.06")))
	assert.Equal(t, "USD", got.Usage.Currency)
	assert.True(t, got.Quiz.QuizTaken)
	assert.True(t, got.Quiz.QuizScore.Equal(dec(t, "3")))
}

// TestTurnItemToTurn covers the stored-to-domain conversion's degradation
// rules for interaction kinds and timestamps.
func TestTurnItemToTurn(t *testing.T) {
	t.Run("maps fields and kind", func(t *testing.T) {
		it := turnItem{
			Response:        "what is a budget?",
			Message:         "a plan for your money",
			Timestamp:       "2025-03-01T09:00:00Z",
			InteractionType: "content",
			Usage: &usageItem{
				PromptTokens:     10,
				CompletionTokens: 5,
				TotalPrice:       Number{dec(t, "0.02")},
				Latency:          Number{dec(t, "1.5")},
				Currency:         "USD",
			},
		}

		turn := it.toTurn()
		assert.Equal(t, "what is a budget?", turn.UserMessage)
		assert.Equal(t, "a plan for your money", turn.AssistantMessage)
		assert.Equal(t, domain.KindContent, turn.Kind)
		assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), turn.Timestamp)
		require.NotNil(t, turn.Usage)
		assert.True(t, turn.Usage.TotalPrice.Equal(dec(t, "0.02")))
	})

	t.Run("quiz result carries its payload", func(t *testing.T) {
		it := turnItem{
			InteractionType: "quiz_result",
			Quiz:            &quizItem{QuestionID: "q-7", Score: Number{dec(t, "2")}, Completed: true},
		}

		turn := it.toTurn()
		assert.Equal(t, domain.KindQuizResult, turn.Kind)
		require.NotNil(t, turn.Quiz)
		assert.Equal(t, "q-7", turn.Quiz.QuestionID)
		assert.True(t, turn.Quiz.Score.Equal(dec(t, "2")))
	})

	t.Run("unknown kind degrades to content", func(t *testing.T) {
		turn := turnItem{InteractionType: "something_new"}.toTurn()
		assert.Equal(t, domain.KindContent, turn.Kind)
	})

	t.Run("malformed timestamp degrades to zero time", func(t *testing.T) {
		turn := turnItem{Timestamp: "yesterday"}.toTurn()
		assert.True(t, turn.Timestamp.IsZero())
	})
}

// TestProfileItemToSnapshot covers the profile1/profile2 merge and the
// loose attribute rendering.
func TestProfileItemToSnapshot(t *testing.T) {
	it := profileItem{
		Profile1: map[string]any{
			"country_of_origin": "Philippines",
			"time_in_uae":       "3 years",
			"number_of_kids":    float64(2),
		},
		Profile2: map[string]any{
			"bank_account":         true,
			"debt_information":     "none",
			"financial_dependents": nil,
		},
	}

	snap := it.toSnapshot()
	assert.Equal(t, "Philippines", snap.CountryOfOrigin)
	assert.Equal(t, "3 years", snap.TimeInUAE)
	assert.Equal(t, "2", snap.NumberOfKids)
	assert.Equal(t, "true", snap.BankAccount)
	assert.Equal(t, "none", snap.DebtInformation)
	assert.Equal(t, "", snap.FinancialDependents)
	assert.False(t, snap.IsZero())
}

func TestAttrString(t *testing.T) {
	assert.Equal(t, "", attrString(nil))
	assert.Equal(t, "hi", attrString("hi"))
	assert.Equal(t, "false", attrString(false))
	assert.Equal(t, "2", attrString(float64(2)))
	assert.Equal(t, "2.5", attrString(2.5))
	assert.Equal(t, "7", attrString(7))
}
