package judge

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/coacheval/internal/domain"
)

const cleanJudgeJSON = `{"Personalization":3,"Language_Simplicity":4,"Response_Length":2,"Content_Relevance":5,"Content_Difficulty":1,"evaluation_notes":{"summary":"ok","key_insights":"","areas_for_improvement":"","recommendations":""}}`

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// TestNormalize_CleanJSON covers the direct-parse path: a judge that
// returned exactly the requested object.
func TestNormalize_CleanJSON(t *testing.T) {
	res := Normalize(cleanJudgeJSON)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.True(t, res.Scores.Personalization.Equal(mustDec(t, "3")))
	assert.True(t, res.Scores.LanguageSimplicity.Equal(mustDec(t, "4")))
	assert.True(t, res.Scores.ResponseLength.Equal(mustDec(t, "2")))
	assert.True(t, res.Scores.ContentRelevance.Equal(mustDec(t, "5")))
	assert.True(t, res.Scores.ContentDifficulty.Equal(mustDec(t, "1")))
	assert.Equal(t, "ok", res.Notes.Summary)
	assert.Empty(t, res.Raw)
}

// TestNormalize_EmbeddedJSON covers judges that wrap their object in
// prose or markdown fences.
func TestNormalize_EmbeddedJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "json preceded and followed by prose",
			raw:  "Here is my evaluation:\n" + cleanJudgeJSON + "\nLet me know if you need more detail.",
		},
		{
			name: "json inside a markdown code block",
			raw:  "```json\n" + cleanJudgeJSON + "\n```",
		},
		{
			name: "json inside a generic code block",
			raw:  "```\n" + cleanJudgeJSON + "\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.raw)

			assert.Equal(t, domain.StatusSuccess, res.Status)
			assert.True(t, res.Scores.ContentRelevance.Equal(mustDec(t, "5")))
			assert.Equal(t, "ok", res.Notes.Summary)
		})
	}
}

// TestNormalize_Unparseable covers the final fallback: nothing
// structured could be recovered, so the text lands verbatim in the
// summary and every score is exactly zero.
func TestNormalize_Unparseable(t *testing.T) {
	tests := []string{
		"Sorry, I cannot process this request.",
		"",
		"{ broken json",
		`{"unrelated": true}`,
		`[1, 2, 3]`,
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			res := Normalize(raw)

			assert.Equal(t, domain.StatusError, res.Status)
			assert.Equal(t, raw, res.Notes.Summary)
			assert.Equal(t, raw, res.Raw)
			assert.True(t, res.Scores.Personalization.IsZero())
			assert.True(t, res.Scores.LanguageSimplicity.IsZero())
			assert.True(t, res.Scores.ResponseLength.IsZero())
			assert.True(t, res.Scores.ContentRelevance.IsZero())
			assert.True(t, res.Scores.ContentDifficulty.IsZero())
		})
	}
}

// TestNormalize_PartialScores covers objects missing some dimensions:
// recovered dimensions keep their values, absent ones default to zero,
// and the raw text is preserved.
func TestNormalize_PartialScores(t *testing.T) {
	res := Normalize(`{"Personalization": 4, "Content_Relevance": 3}`)

	assert.Equal(t, domain.StatusPartial, res.Status)
	assert.True(t, res.Scores.Personalization.Equal(mustDec(t, "4")))
	assert.True(t, res.Scores.ContentRelevance.Equal(mustDec(t, "3")))
	assert.True(t, res.Scores.LanguageSimplicity.IsZero())
	assert.NotEmpty(t, res.Raw)
}

// TestNormalize_DecimalExactness verifies numeric literals convert to
// the identical decimal value without a float64 detour.
func TestNormalize_DecimalExactness(t *testing.T) {
	res := Normalize(`{"Personalization":4.35,"Language_Simplicity":0.1,"Response_Length":2,"Content_Relevance":5,"Content_Difficulty":1}`)

	require.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, "4.35", res.Scores.Personalization.String())
	assert.Equal(t, "0.1", res.Scores.LanguageSimplicity.String())
}

// TestNormalize_NoClamping verifies out-of-range values are preserved as
// provided; bounding is a caller concern.
func TestNormalize_NoClamping(t *testing.T) {
	res := Normalize(`{"Personalization":9,"Language_Simplicity":-2,"Response_Length":2,"Content_Relevance":5,"Content_Difficulty":1}`)

	require.Equal(t, domain.StatusSuccess, res.Status)
	assert.True(t, res.Scores.Personalization.Equal(mustDec(t, "9")))
	assert.True(t, res.Scores.LanguageSimplicity.Equal(mustDec(t, "-2")))
}

// TestNormalize_QuotedNumbers tolerates judges that quote their scores.
func TestNormalize_QuotedNumbers(t *testing.T) {
	res := Normalize(`{"Personalization":"3","Language_Simplicity":"4","Response_Length":"2","Content_Relevance":"5","Content_Difficulty":"1"}`)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.True(t, res.Scores.LanguageSimplicity.Equal(mustDec(t, "4")))
}

// TestNormalize_LegacyNotesField maps the older single Notes field into
// the summary.
func TestNormalize_LegacyNotesField(t *testing.T) {
	res := Normalize(`{"Personalization":3,"Language_Simplicity":4,"Response_Length":2,"Content_Relevance":5,"Content_Difficulty":1,"Notes":"solid conversation"}`)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, "solid conversation", res.Notes.Summary)
}

// TestNormalize_NeverPanics feeds adversarial inputs through the
// normalizer; it must always return a complete result.
func TestNormalize_NeverPanics(t *testing.T) {
	inputs := []string{
		strings.Repeat("{", 10000),
		strings.Repeat(`"`, 9999),
		"{\"Personalization\": }",
		"data: data: data:",
		"```json\n```",
		`{"evaluation_notes": "not an object", "Personalization": 1}`,
		`{"Personalization": [1,2]}`,
		"\x00\xff\xfe",
	}

	for _, raw := range inputs {
		res := Normalize(raw)
		assert.Contains(t, []domain.ProcessStatus{
			domain.StatusSuccess, domain.StatusError, domain.StatusPartial,
		}, res.Status)
	}
}

// TestExtractJSON exercises the brace-matching extraction on its own.
func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "nested objects",
			input:    `prefix {"a": {"b": 1}} suffix`,
			expected: `{"a": {"b": 1}}`,
		},
		{
			name:     "braces inside strings are ignored",
			input:    `{"a": "}{"}`,
			expected: `{"a": "}{"}`,
		},
		{
			name:     "no object present",
			input:    "plain text",
			expected: "",
		},
		{
			name:     "unterminated object",
			input:    `{"a": 1`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}
