package session

import (
	"strings"
	"testing"
)

func TestAppendTurnOrder(t *testing.T) {
	c := NewConversation(0)
	c.AppendTurn("hi", "hello")
	c.AppendTurn("recommend a film", "try Alien")

	history := c.History()
	if len(history) != 4 {
		t.Fatalf("history has %d messages, want 4", len(history))
	}
	wantRoles := []string{SpeakerUser, SpeakerModel, SpeakerUser, SpeakerModel}
	for i, role := range wantRoles {
		if history[i].Role != role {
			t.Errorf("history[%d].Role = %q, want %q", i, history[i].Role, role)
		}
	}
	if history[2].Content != "recommend a film" || history[3].Content != "try Alien" {
		t.Errorf("history content out of order: %+v", history)
	}
}

func TestRenderTemplate(t *testing.T) {
	c := NewConversation(0)
	c.AppendTurn("question one", "answer one")

	got := c.Render("question two")
	want := "user: question one\nassistant: answer one\nuser: question two\n"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderEmptyHistory(t *testing.T) {
	c := NewConversation(0)
	got := c.Render("first question")
	if got != "user: first question\n" {
		t.Errorf("Render = %q", got)
	}
}

func TestUnboundedGrowth(t *testing.T) {
	c := NewConversation(0)
	for i := 0; i < 100; i++ {
		c.AppendTurn("q", "a")
	}
	if c.Len() != 200 {
		t.Errorf("unbounded transcript has %d turns, want 200", c.Len())
	}
}

func TestHistoryCapDropsOldest(t *testing.T) {
	c := NewConversation(4)
	c.AppendTurn("first q", "first a")
	c.AppendTurn("second q", "second a")
	c.AppendTurn("third q", "third a")

	if c.Len() != 4 {
		t.Fatalf("capped transcript has %d turns, want 4", c.Len())
	}
	rendered := c.Render("next")
	if strings.Contains(rendered, "first q") {
		t.Errorf("oldest turn should be dropped: %q", rendered)
	}
	if !strings.Contains(rendered, "second q") || !strings.Contains(rendered, "third a") {
		t.Errorf("recent turns missing: %q", rendered)
	}
}
