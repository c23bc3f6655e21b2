// Package domain contains core domain types for the Maven coaching bot.
package domain

import (
	"fmt"
	"strings"
)

// Topic is a named coaching subject with fixed rationale, tips and deep-dive content.
type Topic struct {
	ID             string   `yaml:"id"`
	Slug           string   `yaml:"slug"`
	Emoji          string   `yaml:"emoji"`
	Title          string   `yaml:"title"`
	Why            string   `yaml:"why"`
	Tips           []string `yaml:"tips"`
	DeepDiveIntro  string   `yaml:"deep_dive_intro"`
	BigIdeas       []string `yaml:"big_ideas"`
	FollowUpPrompt string   `yaml:"follow_up_prompt"`
}

// Label returns the display label shown in pickers and headers, e.g. "🎯 Better 1:1s".
func (t Topic) Label() string {
	if t.Emoji == "" {
		return t.Title
	}
	return t.Emoji + " " + t.Title
}

// DefaultSlug derives the command slug from the topic ID.
func (t Topic) DefaultSlug() string {
	return strings.ReplaceAll(t.ID, "_", "-")
}

// CheckCoaching verifies the fields needed to render a coaching reply.
func (t Topic) CheckCoaching() error {
	if err := requireText(t.ID, "id", t.Title, "title", t.Why, "why"); err != nil {
		return t.malformed(err)
	}
	if err := requireList(t.Tips, "tips"); err != nil {
		return t.malformed(err)
	}
	return nil
}

// CheckDeepDive verifies the fields needed to render the deep-dive branch.
func (t Topic) CheckDeepDive() error {
	if err := requireText(t.ID, "id", t.Title, "title", t.DeepDiveIntro, "deep_dive_intro", t.FollowUpPrompt, "follow_up_prompt"); err != nil {
		return t.malformed(err)
	}
	if err := requireList(t.BigIdeas, "big_ideas"); err != nil {
		return t.malformed(err)
	}
	return nil
}

// Validate checks that every field any formatter may read is present.
func (t Topic) Validate() error {
	if err := t.CheckCoaching(); err != nil {
		return err
	}
	return t.CheckDeepDive()
}

func (t Topic) malformed(err error) error {
	id := t.ID
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Errorf("%w: topic %s: %v", ErrMalformedTopic, id, err)
}

// requireText takes value/name pairs and reports the first blank value.
func requireText(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i]) == "" {
			return fmt.Errorf("missing %s", pairs[i+1])
		}
	}
	return nil
}

func requireList(items []string, name string) error {
	if len(items) == 0 {
		return fmt.Errorf("missing %s", name)
	}
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("%s[%d] is empty", name, i)
		}
	}
	return nil
}
