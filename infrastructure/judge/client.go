// Package judge adapts external judge services to the ports.Judge
// contract. A judge service exposes a streaming agent endpoint that is
// asked to score a rendered conversation transcript; this package owns
// the wire protocol, the stream consumption, and the normalization of
// whatever text the judge ultimately returns.
package judge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/shopspring/decimal"

	"github.com/ahrav/coacheval/internal/domain"
	"github.com/ahrav/coacheval/internal/ports"
)

var _ ports.Judge = (*StreamClient)(nil)

const (
	// chatMessagesPath is the judge service's streaming agent endpoint.
	chatMessagesPath = "/v1/chat-messages"

	// evaluationQuery is the fixed instruction sent with every request;
	// the judge agent's own prompt carries the scoring rubric.
	evaluationQuery = "Evaluate this conversation"

	// evaluationUser identifies the pipeline to the judge service.
	evaluationUser = "evaluation_agent"

	// maxEventSize bounds a single streamed event line.
	maxEventSize = 1 << 20
)

// StreamClient wraps a single judge service endpoint. One instance exists
// per configured judge identity; instances carry no per-call state, so a
// client is safe for concurrent use and no call observes another call's
// conversation.
type StreamClient struct {
	cfg    Config
	client *http.Client
}

// NewStreamClient creates a judge client for one configured identity.
// Only configuration problems are errors here; once constructed, the
// client never fails a call; judge-side failures become error-status
// evaluations.
func NewStreamClient(cfg Config) (*StreamClient, error) {
	if err := validateJudgeConfig(cfg); err != nil {
		return nil, err
	}
	return &StreamClient{
		cfg: cfg,
		// The client timeout is left unset; per-call deadlines come from
		// the request context so a stalled stream cannot outlive them.
		client: &http.Client{},
	}, nil
}

func validateJudgeConfig(cfg Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: judge name is required", domain.ErrInvalidConfiguration)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("%w: judge %s has no base URL", domain.ErrInvalidConfiguration, cfg.Name)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: judge %s has no API key", domain.ErrInvalidConfiguration, cfg.Name)
	}
	return nil
}

// Name returns the judge identity evaluation entries are keyed by.
func (c *StreamClient) Name() string { return c.cfg.Name }

// evaluationRequest is the wire shape of a judge request.
type evaluationRequest struct {
	Inputs         evaluationInputs `json:"inputs"`
	Query          string           `json:"query"`
	ResponseMode   string           `json:"response_mode"`
	User           string           `json:"user"`
	ConversationID string           `json:"conversation_id"`
}

// evaluationInputs carries the transcript plus the profile attributes as
// the named fields the judge agent's prompt template expects.
type evaluationInputs struct {
	ConvoID               string `json:"convo_id"`
	Username              string `json:"username"`
	ConversationLog       string `json:"conversation_log"`
	CountryOfOrigin       string `json:"country_of_origin"`
	TimeInUAE             string `json:"time_in_uae"`
	JobTitle              string `json:"job_title"`
	Housing               string `json:"housing"`
	EducationLevel        string `json:"education_level"`
	NumberOfKids          string `json:"number_of_kids"`
	BankAccount           string `json:"bank_account"`
	DebtInformation       string `json:"debt_information"`
	RemittanceInformation string `json:"remittance_information"`
	FinancialDependents   string `json:"financial_dependents"`
}

// streamEvent is one decoded server-sent event from the judge service.
type streamEvent struct {
	Event    string `json:"event"`
	Thought  string `json:"thought"`
	Message  string `json:"message"`
	Metadata struct {
		Usage streamUsage `json:"usage"`
	} `json:"metadata"`
}

// streamUsage is the judge service's own reported cost of the evaluation
// call, when it reports one.
type streamUsage struct {
	TotalTokens int    `json:"total_tokens"`
	TotalPrice  string `json:"total_price"`
	Currency    string `json:"currency"`
}

// Evaluate scores one conversation with this judge. The call is bounded
// by the judge's configured timeout; every failure mode (transport
// error, non-200 response, mid-stream error event, missing or
// unparseable final answer) resolves to a JudgeEvaluation rather than
// an error, so one judge's failure never propagates.
func (c *StreamClient) Evaluate(ctx context.Context, input domain.EvaluationInput) domain.JudgeEvaluation {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	start := time.Now()
	thought, usage, err := c.stream(ctx, input)
	latencyMs := time.Since(start).Milliseconds()

	stats := domain.JudgeStats{LatencyMs: latencyMs, EvalCost: decimal.Zero}
	if usage != nil {
		stats.EvalTokens = usage.TotalTokens
		if d, derr := decimal.NewFromString(usage.TotalPrice); derr == nil {
			stats.EvalCost = d
		}
	}

	if err != nil {
		clog.FromContext(ctx).Warnf("judge %s: conversation %s: %v", c.cfg.Name, input.ConversationID, err)
		return c.errorEvaluation(err.Error(), stats)
	}

	res := Normalize(thought)
	eval := domain.JudgeEvaluation{
		JudgeID: c.cfg.Name,
		Scores:  res.Scores,
		Notes:   res.Notes,
		Status:  res.Status,
		Stats:   stats,
	}
	if res.Status != domain.StatusSuccess {
		eval.RawResponse = res.Raw
	}
	return eval
}

// errorEvaluation folds a judge-side failure into the canonical
// error-status evaluation with zeroed scores and the failure detail
// preserved for diagnosis.
func (c *StreamClient) errorEvaluation(detail string, stats domain.JudgeStats) domain.JudgeEvaluation {
	return domain.JudgeEvaluation{
		JudgeID:     c.cfg.Name,
		Scores:      domain.ZeroScores(),
		Notes:       domain.EvaluationNotes{},
		Status:      domain.StatusError,
		RawResponse: detail,
		Stats:       stats,
	}
}

// stream submits the evaluation request and consumes the server-streamed
// response until it ends, retaining the final answer event. Unrelated
// event kinds are ignored; an explicit error event aborts consumption.
func (c *StreamClient) stream(ctx context.Context, input domain.EvaluationInput) (string, *streamUsage, error) {
	reqBody := evaluationRequest{
		Inputs: evaluationInputs{
			ConvoID:               input.ConversationID,
			Username:              input.Username,
			ConversationLog:       RenderTranscript(input.Turns),
			CountryOfOrigin:       input.Profile.CountryOfOrigin,
			TimeInUAE:             input.Profile.TimeInUAE,
			JobTitle:              input.Profile.JobTitle,
			Housing:               input.Profile.Housing,
			EducationLevel:        input.Profile.EducationLevel,
			NumberOfKids:          input.Profile.NumberOfKids,
			BankAccount:           input.Profile.BankAccount,
			DebtInformation:       input.Profile.DebtInformation,
			RemittanceInformation: input.Profile.RemittanceInformation,
			FinancialDependents:   input.Profile.FinancialDependents,
		},
		Query:        evaluationQuery,
		ResponseMode: "streaming",
		User:         evaluationUser,
		// Always a fresh judge conversation; no call carries prior state.
		ConversationID: "",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+chatMessagesPath, bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, readServiceError(resp)
	}

	return consumeEvents(ctx, resp.Body)
}

// serviceError is the judge service's error response body.
type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func readServiceError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxEventSize))
	var se serviceError
	if json.Unmarshal(body, &se) == nil && se.Message != "" {
		return fmt.Errorf("judge service returned %d (%s): %s", resp.StatusCode, se.Code, se.Message)
	}
	return fmt.Errorf("judge service returned %d", resp.StatusCode)
}

// consumeEvents reads "data:"-prefixed event lines until the stream
// ends. The last agent_thought event carries the judge's final answer;
// an error event is a judge-level failure. Lines that fail to decode are
// logged and skipped rather than aborting the stream.
func consumeEvents(ctx context.Context, body io.Reader) (string, *streamUsage, error) {
	log := clog.FromContext(ctx)

	var (
		lastThought string
		sawThought  bool
		usage       *streamUsage
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(line[len("data: "):]), &event); err != nil {
			log.Debugf("skipping undecodable stream line: %v", err)
			continue
		}

		switch event.Event {
		case "agent_thought":
			lastThought = event.Thought
			sawThought = true
		case "message_end":
			u := event.Metadata.Usage
			usage = &u
		case "error":
			return "", usage, fmt.Errorf("judge service error event: %s", event.Message)
		default:
			// Other event kinds (agent_message chunks, pings) carry no
			// final answer.
		}
	}
	if err := scanner.Err(); err != nil {
		return "", usage, fmt.Errorf("stream read failed: %w", err)
	}

	if !sawThought {
		return "", usage, fmt.Errorf("stream ended without an evaluation answer")
	}
	return lastThought, usage, nil
}
