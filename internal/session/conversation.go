package session

import (
	"fmt"
	"strings"

	"github.com/mwilhelmy/recall/internal/llm"
)

// Speaker labels for conversation turns.
const (
	SpeakerUser  = "user"
	SpeakerModel = "assistant"
)

// Turn is one utterance in a conversation transcript.
type Turn struct {
	Speaker string
	Text    string
}

// Conversation accumulates a linear transcript of (user, model) turns used
// as context for subsequent chat completions. Append-only within a session
// and discarded at process exit; there is no persistence.
//
// Growth is unbounded by default, matching the original behavior. A
// maxTurns cap > 0 changes behavior for long sessions: the oldest turns are
// dropped once the transcript exceeds the cap.
type Conversation struct {
	turns    []Turn
	maxTurns int
}

// NewConversation creates an empty transcript. maxTurns <= 0 means
// unbounded.
func NewConversation(maxTurns int) *Conversation {
	return &Conversation{maxTurns: maxTurns}
}

// AppendTurn records a user utterance and the model's reply, in that order.
func (c *Conversation) AppendTurn(userText, modelText string) {
	c.turns = append(c.turns,
		Turn{Speaker: SpeakerUser, Text: userText},
		Turn{Speaker: SpeakerModel, Text: modelText},
	)
	if c.maxTurns > 0 && len(c.turns) > c.maxTurns {
		c.turns = c.turns[len(c.turns)-c.maxTurns:]
	}
}

// Len reports the number of recorded turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// History returns the transcript as chat messages, oldest first.
func (c *Conversation) History() []llm.ChatMessage {
	history := make([]llm.ChatMessage, len(c.turns))
	for i, turn := range c.turns {
		history[i] = llm.ChatMessage{Role: turn.Speaker, Content: turn.Text}
	}
	return history
}

// Render concatenates the full history plus the pending user turn in a
// fixed template, for submission to a completion endpoint that takes a
// single prompt.
func (c *Conversation) Render(pending string) string {
	var b strings.Builder
	for _, turn := range c.turns {
		fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.Text)
	}
	fmt.Fprintf(&b, "%s: %s\n", SpeakerUser, pending)
	return b.String()
}
