package judge

import (
	"strings"
	"time"

	"github.com/ahrav/coacheval/internal/domain"
)

// RenderTranscript flattens a conversation's turns into the plain-text
// form judges are prompted with: one block per turn, chronological, with
// the timestamp, the user's message, and the assistant's reply.
func RenderTranscript(turns []domain.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[")
		b.WriteString(t.Timestamp.UTC().Format(time.RFC3339))
		b.WriteString("]\n")
		b.WriteString("User: ")
		b.WriteString(t.UserMessage)
		b.WriteString("\n")
		b.WriteString("Assistant: ")
		b.WriteString(t.AssistantMessage)
		b.WriteString("\n")
	}
	return b.String()
}
