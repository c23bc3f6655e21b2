package domain

import (
	"time"
)

// Stage is the position of a session in the coaching flow.
type Stage string

// Session stages, in the only order they may be visited.
const (
	StageAwaitingIntake      Stage = "AWAITING_INTAKE"
	StageAwaitingTopicBranch Stage = "AWAITING_TOPIC_BRANCH"
	StageComplete            Stage = "COMPLETE"
)

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageComplete
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageAwaitingIntake, StageAwaitingTopicBranch, StageComplete:
		return true
	}
	return false
}

// CanAdvance reports whether moving from s to next is a forward transition.
// AWAITING_INTAKE may jump straight to COMPLETE only when generation fails;
// callers own that distinction.
func (s Stage) CanAdvance(next Stage) bool {
	switch s {
	case StageAwaitingIntake:
		return next == StageAwaitingTopicBranch || next == StageComplete
	case StageAwaitingTopicBranch:
		return next == StageComplete
	}
	return false
}

// SessionID derives the conversation-scoped session identifier for a user.
func SessionID(userID, channelID string) string {
	if channelID == "" {
		channelID = userID
	}
	return userID + ":" + channelID
}

// Session is one user's pass through intake, coaching reply and branch choice.
// Run identifies a single invocation; ID is shared by all runs of the same
// user in the same channel.
type Session struct {
	ID          string
	Run         string
	UserID      string
	ChannelID   string
	TopicID     string
	Situation   string
	Stage       Stage
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SelectTopic records the intake answers. The topic and situation are set
// once; a second call with different values fails with ErrInvalidInput.
func (s *Session) SelectTopic(topicID, situation string) error {
	if s.TopicID != "" && s.TopicID != topicID {
		return ErrInvalidInput
	}
	if s.Situation != "" && s.Situation != situation {
		return ErrInvalidInput
	}
	s.TopicID = topicID
	s.Situation = situation
	return nil
}
