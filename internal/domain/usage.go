package domain

import "github.com/shopspring/decimal"

// DefaultCurrency is assumed when no turn reports a currency code.
const DefaultCurrency = "USD"

// ComputeUsage aggregates token, cost, and latency figures across a
// conversation's turns. Turns without recorded usage contribute zero to
// every sum. An empty turn list yields a zero-valued result; averages are
// never computed against a zero turn count.
func ComputeUsage(turns []Turn) UsageMetrics {
	m := UsageMetrics{
		AvgTokensPerTurn:    decimal.Zero,
		AvgCompletionTokens: decimal.Zero,
		AvgCostPerTurn:      decimal.Zero,
		TotalPrice:          decimal.Zero,
		AvgLatency:          decimal.Zero,
		MaxLatency:          decimal.Zero,
		Currency:            DefaultCurrency,
	}
	if len(turns) == 0 {
		return m
	}

	var (
		totalTokens     = decimal.Zero
		totalCompletion = decimal.Zero
		totalLatency    = decimal.Zero
	)
	for _, t := range turns {
		if t.Usage == nil {
			continue
		}
		u := t.Usage
		totalTokens = totalTokens.Add(decimal.NewFromInt(int64(u.PromptTokens + u.CompletionTokens)))
		totalCompletion = totalCompletion.Add(decimal.NewFromInt(int64(u.CompletionTokens)))
		m.TotalPrice = m.TotalPrice.Add(u.TotalPrice)
		totalLatency = totalLatency.Add(u.Latency)
		if u.Latency.GreaterThan(m.MaxLatency) {
			m.MaxLatency = u.Latency
		}
		if u.Currency != "" {
			m.Currency = u.Currency
		}
	}

	n := decimal.NewFromInt(int64(len(turns)))
	m.NumTurns = len(turns)
	m.AvgTokensPerTurn = totalTokens.Div(n)
	m.AvgCompletionTokens = totalCompletion.Div(n)
	m.AvgCostPerTurn = m.TotalPrice.Div(n)
	m.AvgLatency = totalLatency.Div(n)
	return m
}

// ComputeQuiz scans a conversation's turns for the most recent graded
// quiz outcome. Conversations without one report the quiz as not taken
// with a zero score.
func ComputeQuiz(turns []Turn) QuizMetrics {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Kind == KindQuizResult && t.Quiz != nil {
			return QuizMetrics{QuizTaken: true, QuizScore: t.Quiz.Score}
		}
	}
	return QuizMetrics{QuizTaken: false, QuizScore: decimal.Zero}
}
