package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// BranchRef travels inside the intake form metadata and the branch buttons
// so every later event carries enough to find, or rebuild, its session.
type BranchRef struct {
	SessionID string
	Run       string
	TopicID   string
	ChannelID string
}

// Encode serializes the reference as a compact query string.
func (r BranchRef) Encode() string {
	v := url.Values{}
	v.Set("s", r.SessionID)
	v.Set("r", r.Run)
	if r.TopicID != "" {
		v.Set("t", r.TopicID)
	}
	if r.ChannelID != "" {
		v.Set("c", r.ChannelID)
	}
	return v.Encode()
}

// ParseBranchRef decodes a reference produced by Encode.
func ParseBranchRef(raw string) (BranchRef, error) {
	v, err := url.ParseQuery(strings.TrimSpace(raw))
	if err != nil {
		return BranchRef{}, fmt.Errorf("parse session reference: %w", ErrInvalidInput)
	}
	ref := BranchRef{
		SessionID: v.Get("s"),
		Run:       v.Get("r"),
		TopicID:   v.Get("t"),
		ChannelID: v.Get("c"),
	}
	if ref.SessionID == "" || ref.Run == "" {
		return BranchRef{}, fmt.Errorf("session reference missing session or run: %w", ErrInvalidInput)
	}
	return ref, nil
}

// Ref returns the reference for s.
func (s *Session) Ref() BranchRef {
	return BranchRef{
		SessionID: s.ID,
		Run:       s.Run,
		TopicID:   s.TopicID,
		ChannelID: s.ChannelID,
	}
}
