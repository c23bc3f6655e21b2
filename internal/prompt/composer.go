package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/maven/internal/domain"
)

// Output ceilings for the two request kinds.
const (
	CoachingMaxTokens = 700
	CoachingMaxWords  = 350
	GuideMaxTokens    = 1000
)

// Composer turns topics and situations into generation requests.
// The persona is rendered once and reused for every request.
type Composer struct {
	system   string
	maxWords int
}

// NewComposer creates a composer for persona.
func NewComposer(p Persona) *Composer {
	maxWords := p.MaxWords
	if maxWords <= 0 {
		maxWords = CoachingMaxWords
	}
	return &Composer{system: p.System(), maxWords: maxWords}
}

// System returns the rendered system instructions.
func (c *Composer) System() string {
	return c.system
}

// Compose builds the coaching request for a manager's situation.
// The situation is embedded verbatim; blank input fails with ErrInvalidInput.
func (c *Composer) Compose(topic domain.Topic, situation string) (domain.GenerationRequest, error) {
	if strings.TrimSpace(situation) == "" {
		return domain.GenerationRequest{}, fmt.Errorf("situation is empty: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(topic.ID) == "" {
		return domain.GenerationRequest{}, fmt.Errorf("topic is missing: %w", domain.ErrInvalidInput)
	}

	user := fmt.Sprintf(`A manager selected the topic "%s" and shared this specific situation:

"%s"

Using the Leadership Code and your coaching expertise:
1. Acknowledge their specific situation with empathy (2 sentences max)
2. Give 3-4 concrete, tailored recommendations for THEIR situation — not generic advice
3. Close with one powerful coaching question to deepen their thinking

Format for Slack: use *bold* for key points, bullet points with •, generous line spacing.
Keep under %d words. Be direct and warm. Anchor to Leadership Code principles by name.`,
		topic.Label(), situation, c.maxWords)

	return domain.GenerationRequest{
		System:     c.system,
		User:       user,
		TopicID:    topic.ID,
		TopicLabel: topic.Label(),
		MaxTokens:  CoachingMaxTokens,
		MaxWords:   c.maxWords,
	}, nil
}

// ComposeGuide builds the standalone one-page guide request for topic.
func (c *Composer) ComposeGuide(topic domain.Topic) domain.GenerationRequest {
	user := fmt.Sprintf(`Create a concise, high-impact coaching guide on "%s" for managers.
Include: a bold opening insight, the core WHY, 3 actionable tips, 3 big ideas, and one reflection question.
Write in Adam Grant's voice — research-backed, counterintuitive, direct.
Format as clean plain text suitable for a 1-page PDF. Use clear section labels.`, topic.Label())

	return domain.GenerationRequest{
		System:     c.system,
		User:       user,
		TopicID:    topic.ID,
		TopicLabel: topic.Label(),
		MaxTokens:  GuideMaxTokens,
	}
}
