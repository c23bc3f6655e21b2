package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/maven/internal/domain"
)

func betterOneOnOnes() domain.Topic {
	return domain.Topic{ID: "better_11s", Emoji: "🎯", Title: "Better 1:1s"}
}

func TestComposeRejectsBlankSituation(t *testing.T) {
	c := NewComposer(DefaultPersona())
	for _, situation := range []string{"", "   ", "\n\t "} {
		if _, err := c.Compose(betterOneOnOnes(), situation); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Compose(%q): expected ErrInvalidInput, got %v", situation, err)
		}
	}
}

func TestComposeCoachingRequest(t *testing.T) {
	c := NewComposer(DefaultPersona())
	situation := "my team feels micromanaged"

	req, err := c.Compose(betterOneOnOnes(), situation)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if req.TopicID != "better_11s" || req.TopicLabel != "🎯 Better 1:1s" {
		t.Errorf("Unexpected topic fields %q / %q", req.TopicID, req.TopicLabel)
	}
	if req.MaxTokens != CoachingMaxTokens || req.MaxWords != 350 {
		t.Errorf("Unexpected limits %d / %d", req.MaxTokens, req.MaxWords)
	}
	if !strings.Contains(req.User, `"`+situation+`"`) {
		t.Error("Expected verbatim situation in user content")
	}
	if !strings.Contains(req.User, `"🎯 Better 1:1s"`) {
		t.Error("Expected topic label in user content")
	}

	ack := strings.Index(req.User, "1. Acknowledge")
	recs := strings.Index(req.User, "2. Give 3-4 concrete")
	question := strings.Index(req.User, "3. Close with one powerful coaching question")
	if ack < 0 || recs < ack || question < recs {
		t.Errorf("Expected ordered instructions, got positions %d %d %d", ack, recs, question)
	}

	if strings.Contains(req.User, "Leadership Code is a values-driven framework") {
		t.Error("Persona leaked into user content")
	}
	if strings.Contains(req.System, situation) {
		t.Error("Situation leaked into system instructions")
	}
}

func TestPersonaSystem(t *testing.T) {
	system := DefaultPersona().System()
	for _, want := range []string{
		"You are Maven",
		"1. KNOW YOURSELF",
		"6. CHAMPION YOUR TEAM",
		"Adam Grant",
		"NO markdown headers",
		"Keep total response under 350 words",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("Expected system instructions to contain %q", want)
		}
	}
}

func TestComposeGuide(t *testing.T) {
	c := NewComposer(DefaultPersona())
	topic := domain.Topic{ID: "team_conflict", Emoji: "🔥", Title: "Team Conflict"}

	req := c.ComposeGuide(topic)
	if req.MaxTokens != GuideMaxTokens {
		t.Errorf("Expected %d max tokens, got %d", GuideMaxTokens, req.MaxTokens)
	}
	if req.MaxWords != 0 {
		t.Errorf("Expected no word ceiling, got %d", req.MaxWords)
	}
	if req.System != c.System() {
		t.Error("Expected guide to share the persona system instructions")
	}
	for _, want := range []string{`"🔥 Team Conflict"`, "3 actionable tips", "3 big ideas", "one reflection question"} {
		if !strings.Contains(req.User, want) {
			t.Errorf("Expected guide prompt to contain %q", want)
		}
	}
}
