package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/maven/internal/config"
	"github.com/ashureev/maven/internal/domain"
)

// MaxSectionChars is Slack's text limit for a single section block.
const MaxSectionChars = 3000

const ellipsis = "…"

var (
	headerLine = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.*?)\s*#*\s*$`)
	wordSpan   = regexp.MustCompile(`\S+`)
)

// Generator wraps a Client with the caller-side policy: a per-attempt
// timeout, a bounded number of attempts and output shaping.
type Generator struct {
	client   Client
	timeout  time.Duration
	attempts int
	logger   *slog.Logger
}

// NewGenerator creates a generator. Zero values in cfg fall back to a 45s
// timeout and a single attempt.
func NewGenerator(client Client, cfg config.GenerationConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		client:   client,
		timeout:  cfg.Timeout,
		attempts: cfg.Attempts,
		logger:   logger,
	}
	if g.timeout <= 0 {
		g.timeout = 45 * time.Second
	}
	if g.attempts <= 0 {
		g.attempts = 1
	}
	return g
}

// Generate runs req and returns shaped text. Every failure, including a
// timeout or an empty completion, is reported as ErrGenerationFailure.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		text, err := g.once(ctx, req)
		if err == nil {
			return Shape(text, req.MaxWords), nil
		}
		lastErr = err
		g.logger.Warn("Generation attempt failed",
			"topic", req.TopicID,
			"attempt", attempt,
			"max_attempts", g.attempts,
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailure, lastErr)
}

func (g *Generator) once(ctx context.Context, req domain.GenerationRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.client.Complete(attemptCtx, req.System, req.User, req.MaxTokens)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out after %s: %w", g.timeout, err)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}

// Shape enforces Slack output rules on generated text: Markdown headers
// become bold labels, the text is cut to maxWords words (0 means no limit)
// and to MaxSectionChars characters.
func Shape(text string, maxWords int) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if m := headerLine.FindStringSubmatch(line); m != nil {
			label := strings.Trim(m[1], "* ")
			if label == "" {
				lines[i] = ""
				continue
			}
			lines[i] = "*" + label + "*"
		}
	}
	text = strings.TrimSpace(strings.Join(lines, "\n"))

	if maxWords > 0 {
		spans := wordSpan.FindAllStringIndex(text, maxWords+1)
		if len(spans) > maxWords {
			text = strings.TrimRight(text[:spans[maxWords-1][1]], ".,;:") + ellipsis
		}
	}
	return truncateChars(text, MaxSectionChars)
}

// truncateChars cuts text to at most limit runes, preferring a space boundary.
func truncateChars(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit-utf8.RuneCountInString(ellipsis)])
	if i := strings.LastIndexAny(cut, " \n"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n") + ellipsis
}
