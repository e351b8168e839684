package judge

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ahrav/coacheval/internal/domain"
)

// Score dimension keys expected in judge output.
const (
	keyPersonalization    = "Personalization"
	keyLanguageSimplicity = "Language_Simplicity"
	keyResponseLength     = "Response_Length"
	keyContentRelevance   = "Content_Relevance"
	keyContentDifficulty  = "Content_Difficulty"
)

var scoreKeys = []string{
	keyPersonalization,
	keyLanguageSimplicity,
	keyResponseLength,
	keyContentRelevance,
	keyContentDifficulty,
}

// NormalizedResult is the canonical outcome of normalizing raw judge
// output. It always carries five score fields and four note fields;
// Status reports how much of the judge's output was structurally
// recoverable. Raw preserves the original text for non-success results.
type NormalizedResult struct {
	Scores domain.ScoreMetrics
	Notes  domain.EvaluationNotes
	Status domain.ProcessStatus
	Raw    string
}

// Normalize converts raw judge output into a canonical structured result.
// Judges should return a JSON object with the five score dimensions and an
// evaluation_notes object, but in practice return anything from clean JSON
// to JSON wrapped in prose or markdown to plain refusals. Normalize never
// fails: the fallback chain is whole-text JSON, then a JSON object
// extracted from surrounding text, then zero scores with the entire raw
// text preserved verbatim in the summary.
//
// Numeric values are converted to exact decimals without passing through
// binary floating point. Values outside the nominal [0,5] range are
// preserved as provided; clamping is a caller concern.
func Normalize(raw string) NormalizedResult {
	obj, ok := decodeObject(raw)
	if !ok {
		if extracted := extractJSON(raw); extracted != "" {
			obj, ok = decodeObject(extracted)
		}
	}
	if !ok {
		return fallbackResult(raw)
	}

	scores, recovered := extractScores(obj)
	if recovered == 0 {
		return fallbackResult(raw)
	}

	res := NormalizedResult{
		Scores: scores,
		Notes:  extractNotes(obj, raw),
		Status: domain.StatusSuccess,
	}
	if recovered < len(scoreKeys) {
		res.Status = domain.StatusPartial
		res.Raw = raw
	}
	return res
}

// fallbackResult is the canonical degraded result: zero scores, the
// unparsed text carried verbatim in the summary so it is never silently
// discarded.
func fallbackResult(raw string) NormalizedResult {
	return NormalizedResult{
		Scores: domain.ZeroScores(),
		Notes:  domain.EvaluationNotes{Summary: raw},
		Status: domain.StatusError,
		Raw:    raw,
	}
}

// decodeObject parses text as a single JSON object. Numbers are kept as
// json.Number so their literal text converts losslessly to decimal.
func decodeObject(text string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// extractScores pulls the five score dimensions out of a decoded object,
// defaulting absent or malformed dimensions to zero. It reports how many
// dimensions were actually recovered.
func extractScores(obj map[string]any) (domain.ScoreMetrics, int) {
	scores := domain.ZeroScores()
	recovered := 0

	assign := func(key string, dst *decimal.Decimal) {
		v, ok := obj[key]
		if !ok {
			return
		}
		d, ok := coerceDecimal(v)
		if !ok {
			return
		}
		*dst = d
		recovered++
	}

	assign(keyPersonalization, &scores.Personalization)
	assign(keyLanguageSimplicity, &scores.LanguageSimplicity)
	assign(keyResponseLength, &scores.ResponseLength)
	assign(keyContentRelevance, &scores.ContentRelevance)
	assign(keyContentDifficulty, &scores.ContentDifficulty)
	return scores, recovered
}

// coerceDecimal converts a decoded JSON value to an exact decimal.
// json.Number carries the literal digits from the wire; judges that quote
// their numbers are tolerated.
func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// extractNotes reads the evaluation_notes object when present. Judges on
// an older prompt return a single free-text Notes field instead; that
// lands in the summary. A judge that returned neither still yields a
// present, empty notes record.
func extractNotes(obj map[string]any, raw string) domain.EvaluationNotes {
	if nested, ok := obj["evaluation_notes"].(map[string]any); ok {
		return domain.EvaluationNotes{
			Summary:             stringField(nested, "summary"),
			KeyInsights:         stringField(nested, "key_insights"),
			AreasForImprovement: stringField(nested, "areas_for_improvement"),
			Recommendations:     stringField(nested, "recommendations"),
		}
	}
	if notes, ok := obj["Notes"].(string); ok {
		return domain.EvaluationNotes{Summary: notes}
	}
	return domain.EvaluationNotes{}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// extractJSON attempts to extract a JSON object from a response that
// might contain additional text before or after it. It handles markdown
// code blocks and prose surrounding the object.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	// First, try to extract from markdown code blocks.
	if strings.Contains(response, "```json") {
		start := strings.Index(response, "```json")
		if start != -1 {
			start += 7 // Move past "```json"
			end := strings.Index(response[start:], "```")
			if end != -1 {
				return strings.TrimSpace(response[start : start+end])
			}
		}
	}

	// Also check for generic code blocks.
	if strings.Contains(response, "```") {
		start := strings.Index(response, "```")
		if start != -1 {
			start += 3 // Move past "```"
			// Skip any language identifier.
			newlineIdx := strings.Index(response[start:], "\n")
			if newlineIdx != -1 {
				start += newlineIdx + 1
			}
			end := strings.Index(response[start:], "```")
			if end != -1 {
				candidate := strings.TrimSpace(response[start : start+end])
				if strings.HasPrefix(candidate, "{") {
					return candidate
				}
			}
		}
	}

	// Look for JSON object boundaries.
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	// Find the matching closing brace, handling nested objects and strings.
	braceCount := 0
	inString := false
	escapeNext := false

	for i := start; i < len(response); i++ {
		char := response[i]

		if escapeNext {
			escapeNext = false
			continue
		}

		if char == '\\' {
			escapeNext = true
			continue
		}

		if char == '"' && !escapeNext {
			inString = !inString
			continue
		}

		// Only count braces outside of strings.
		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return response[start : i+1]
				}
			}
		}
	}

	return ""
}
