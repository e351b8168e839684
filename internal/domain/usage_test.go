package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func usageTurn(t *testing.T, prompt, completion int, price, latency string) Turn {
	t.Helper()
	return Turn{
		Kind: KindContent,
		Usage: &TurnUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalPrice:       dec(t, price),
			Latency:          dec(t, latency),
		},
	}
}

// TestComputeUsage verifies the aggregate arithmetic stays exact and
// that edge cases (no turns, turns without usage) never divide by zero.
func TestComputeUsage(t *testing.T) {
	t.Run("empty turn list yields zero metrics", func(t *testing.T) {
		m := ComputeUsage(nil)

		assert.Equal(t, 0, m.NumTurns)
		assert.True(t, m.AvgTokensPerTurn.IsZero())
		assert.True(t, m.AvgCompletionTokens.IsZero())
		assert.True(t, m.AvgCostPerTurn.IsZero())
		assert.True(t, m.TotalPrice.IsZero())
		assert.True(t, m.AvgLatency.IsZero())
		assert.True(t, m.MaxLatency.IsZero())
		assert.Equal(t, DefaultCurrency, m.Currency)
	})

	t.Run("aggregates across turns exactly", func(t *testing.T) {
		turns := []Turn{
			usageTurn(t, 10, 5, "0.02", "1.5"),
			usageTurn(t, 20, 10, "0.04", "2.5"),
		}

		m := ComputeUsage(turns)

		assert.Equal(t, 2, m.NumTurns)
		assert.True(t, m.AvgTokensPerTurn.Equal(dec(t, "22.5")),
			"avg tokens = %s", m.AvgTokensPerTurn)
		assert.True(t, m.AvgCompletionTokens.Equal(dec(t, "7.5")))
		assert.True(t, m.TotalPrice.Equal(dec(t, "0.06")),
			"total price = %s", m.TotalPrice)
		assert.True(t, m.AvgCostPerTurn.Equal(dec(t, "0.03")))
		assert.True(t, m.AvgLatency.Equal(dec(t, "2")))
		assert.True(t, m.MaxLatency.Equal(dec(t, "2.5")))
	})

	t.Run("turns without usage contribute zero", func(t *testing.T) {
		turns := []Turn{
			usageTurn(t, 10, 5, "0.02", "1.5"),
			{Kind: KindContent},
		}

		m := ComputeUsage(turns)

		assert.Equal(t, 2, m.NumTurns)
		assert.True(t, m.AvgTokensPerTurn.Equal(dec(t, "7.5")))
		assert.True(t, m.TotalPrice.Equal(dec(t, "0.02")))
		assert.True(t, m.MaxLatency.Equal(dec(t, "1.5")))
	})

	t.Run("currency follows the reported code", func(t *testing.T) {
		turn := usageTurn(t, 1, 1, "0.01", "1")
		turn.Usage.Currency = "AED"

		m := ComputeUsage([]Turn{turn})

		assert.Equal(t, "AED", m.Currency)
	})
}

// TestComputeQuiz verifies quiz detection over the turn list.
func TestComputeQuiz(t *testing.T) {
	t.Run("no quiz result means not taken", func(t *testing.T) {
		turns := []Turn{
			{Kind: KindContent},
			{Kind: KindQuizPrompt},
		}

		q := ComputeQuiz(turns)

		assert.False(t, q.QuizTaken)
		assert.True(t, q.QuizScore.IsZero())
	})

	t.Run("quiz result yields its score", func(t *testing.T) {
		turns := []Turn{
			{Kind: KindContent},
			{Kind: KindQuizResult, Quiz: &QuizResult{Score: dec(t, "2"), Completed: true}},
		}

		q := ComputeQuiz(turns)

		assert.True(t, q.QuizTaken)
		assert.True(t, q.QuizScore.Equal(dec(t, "2")))
	})

	t.Run("most recent quiz result wins", func(t *testing.T) {
		turns := []Turn{
			{Kind: KindQuizResult, Quiz: &QuizResult{Score: dec(t, "1")}},
			{Kind: KindContent},
			{Kind: KindQuizResult, Quiz: &QuizResult{Score: dec(t, "4")}},
		}

		q := ComputeQuiz(turns)

		assert.True(t, q.QuizTaken)
		assert.True(t, q.QuizScore.Equal(dec(t, "4")))
	})

	t.Run("quiz result without payload is ignored", func(t *testing.T) {
		turns := []Turn{
			{Kind: KindQuizResult},
		}

		q := ComputeQuiz(turns)

		assert.False(t, q.QuizTaken)
	})
}

// TestZeroScores verifies the canonical zeroed score set.
func TestZeroScores(t *testing.T) {
	s := ZeroScores()
	for _, d := range []decimal.Decimal{
		s.Personalization, s.LanguageSimplicity, s.ResponseLength,
		s.ContentRelevance, s.ContentDifficulty,
	} {
		assert.True(t, d.IsZero())
	}
}

// TestProfileSnapshotIsZero covers the skip condition for profile-less
// users.
func TestProfileSnapshotIsZero(t *testing.T) {
	assert.True(t, ProfileSnapshot{}.IsZero())
	assert.False(t, ProfileSnapshot{CountryOfOrigin: "Philippines"}.IsZero())
}

// Quick sanity check that turn timestamps survive the domain type
// untouched; ordering is the store's responsibility.
func TestTurnTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	turn := Turn{Timestamp: ts}
	assert.Equal(t, ts, turn.Timestamp)
}
