// Package coach drives a coaching session from invocation to its branch
// choice, and serves the standalone guide command.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/ashureev/maven/internal/domain"
	"github.com/ashureev/maven/internal/format"
	"github.com/ashureev/maven/internal/prompt"
	"github.com/ashureev/maven/internal/store"
	"github.com/ashureev/maven/internal/topic"
)

// Messenger posts and rewrites messages and opens forms on the chat
// platform.
type Messenger interface {
	PostMessage(ctx context.Context, channel string, msg format.Message) error
	UpdateMessage(ctx context.Context, channel, ts string, msg format.Message) error
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error
}

// Directory resolves the name a user is greeted by.
type Directory interface {
	DisplayName(ctx context.Context, userID string) string
}

// Generator turns a composed request into user-facing text.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// Choice is the branch a user picks after the coaching reply.
type Choice string

const (
	ChoiceDigDeeper Choice = "dig_deeper"
	ChoiceDone      Choice = "done"
)

// Invocation is the coaching command being run.
type Invocation struct {
	UserID    string
	ChannelID string
	TriggerID string
}

// IntakeSubmission is a submitted intake form.
type IntakeSubmission struct {
	UserID    string
	TopicID   string
	Situation string
	Ref       domain.BranchRef
}

// BranchAction is a press of one of the branch buttons. TopicID comes from
// the action identifier; Ref from the button value. MessageTS and Original
// identify the coaching reply the buttons sit on.
type BranchAction struct {
	UserID    string
	ChannelID string
	TopicID   string
	Choice    Choice
	Ref       domain.BranchRef
	MessageTS string
	Original  format.Message
}

// GuideCommand is the standalone guide command with its optional slug.
type GuideCommand struct {
	UserID string
	Text   string
}

// Deps are the collaborators a Coach needs.
type Deps struct {
	Topics    *topic.Registry
	Composer  *prompt.Composer
	Generator Generator
	Sessions  store.SessionStore
	Host      Messenger
	Names     Directory
	Limiter   *Limiter
	Logger    *slog.Logger
}

// Commands are the slash commands users are pointed to in messages.
type Commands struct {
	Coach string
	Guide string
}

// Coach owns the session state machine. Every transition goes through the
// store's compare-and-advance, so a duplicate or late event loses the race
// and posts nothing.
type Coach struct {
	topics   *topic.Registry
	composer *prompt.Composer
	gen      Generator
	sessions store.SessionStore
	host     Messenger
	names    Directory
	limiter  *Limiter
	commands Commands
	logger   *slog.Logger

	now    func() time.Time
	newRun func() string
}

// New creates a Coach.
func New(deps Deps, commands Commands) *Coach {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coach{
		topics:   deps.Topics,
		composer: deps.Composer,
		gen:      deps.Generator,
		sessions: deps.Sessions,
		host:     deps.Host,
		names:    deps.Names,
		limiter:  deps.Limiter,
		commands: commands,
		logger:   logger,
		now:      time.Now,
		newRun:   uuid.NewString,
	}
}

// Invoke starts a session and opens the intake form.
func (c *Coach) Invoke(ctx context.Context, ev Invocation) error {
	if ev.UserID == "" || ev.TriggerID == "" {
		return fmt.Errorf("invocation missing user or trigger: %w", domain.ErrInvalidInput)
	}

	now := c.now()
	s := &domain.Session{
		ID:        domain.SessionID(ev.UserID, ev.ChannelID),
		Run:       c.newRun(),
		UserID:    ev.UserID,
		ChannelID: ev.ChannelID,
		Stage:     domain.StageAwaitingIntake,
		CreatedAt: now,
		UpdatedAt: now,
	}
	view, err := format.Intake(c.topics.List(), s.Ref())
	if err != nil {
		return fmt.Errorf("render intake form: %w", err)
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %s: %w", s.Run, err)
	}
	if err := c.host.OpenView(ctx, ev.TriggerID, view); err != nil {
		return fmt.Errorf("%w: open intake form: %w", domain.ErrHostDelivery, err)
	}

	c.logger.Info("Intake form opened", "user_id", s.UserID, "session_id", s.ID, "run", s.Run)
	return nil
}

// SubmitIntake generates and posts the coaching reply for a submitted form.
func (c *Coach) SubmitIntake(ctx context.Context, ev IntakeSubmission) error {
	if strings.TrimSpace(ev.TopicID) == "" || strings.TrimSpace(ev.Situation) == "" {
		return fmt.Errorf("intake from %s missing topic or situation: %w", ev.UserID, domain.ErrInvalidInput)
	}

	t, err := c.topics.Get(ev.TopicID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if postErr := c.post(ctx, ev.UserID, format.TopicNotFound(ev.TopicID, c.topics.Slugs())); postErr != nil {
				return errors.Join(err, postErr)
			}
		}
		return err
	}

	s, _, err := c.load(ctx, ev.Ref, ev.UserID, domain.StageAwaitingIntake)
	if err != nil {
		return err
	}
	if err := s.SelectTopic(t.ID, ev.Situation); err != nil {
		return fmt.Errorf("session %s already has a different intake: %w", s.Run, err)
	}

	if !c.limiter.Allow(s.UserID) {
		return c.abandon(ctx, s, format.RateLimited(),
			fmt.Errorf("coaching for %s: %w", s.UserID, domain.ErrRateLimited))
	}

	s.DisplayName = c.names.DisplayName(ctx, s.UserID)

	req, err := c.composer.Compose(t, ev.Situation)
	if err != nil {
		return err
	}
	text, err := c.gen.Generate(ctx, req)
	if err != nil {
		return c.abandon(ctx, s, format.CoachingError(c.commands.Coach), err)
	}
	msg, err := format.CoachingReply(t, text, s.DisplayName, s.Ref())
	if err != nil {
		return c.abandon(ctx, s, format.CoachingError(c.commands.Coach), err)
	}

	if err := c.advance(ctx, s, domain.StageAwaitingTopicBranch); err != nil {
		return err
	}
	c.logger.Info("Coaching reply ready", "user_id", s.UserID, "run", s.Run, "topic", t.ID)
	if err := c.post(ctx, s.UserID, msg); err != nil {
		// No branch buttons reached the user, so nothing can move the
		// session on from here.
		return c.abandon(ctx, s, format.CoachingError(c.commands.Coach), err)
	}
	return nil
}

// Branch answers a branch button and completes the session.
func (c *Coach) Branch(ctx context.Context, ev BranchAction) error {
	topicID := ev.TopicID
	if topicID == "" {
		topicID = ev.Ref.TopicID
	}
	if ev.Ref.TopicID != "" && ev.Ref.TopicID != topicID {
		return fmt.Errorf("branch action topic %s does not match reference topic %s: %w",
			topicID, ev.Ref.TopicID, domain.ErrInvalidInput)
	}

	var msg format.Message
	var note string
	switch ev.Choice {
	case ChoiceDigDeeper:
		note = format.AnsweredDigDeeper
		t, err := c.topics.Get(topicID)
		if err != nil {
			return err
		}
		if msg, err = format.DeepDive(t); err != nil {
			return err
		}
	case ChoiceDone:
		note = format.AnsweredDone
		msg = format.Closing(c.commands.Coach)
	default:
		return fmt.Errorf("unknown branch choice %q: %w", ev.Choice, domain.ErrInvalidInput)
	}

	s, err := c.loadForBranch(ctx, ev)
	if err != nil {
		return err
	}
	if s.TopicID == "" {
		s.TopicID = topicID
	}

	if err := c.advance(ctx, s, domain.StageComplete); err != nil {
		return err
	}

	channel := ev.ChannelID
	if channel == "" {
		channel = ev.UserID
	}
	if err := c.post(ctx, channel, msg); err != nil {
		return err
	}
	c.retireButtons(ctx, channel, ev, note)
	return nil
}

// loadForBranch loads the session a branch press belongs to. A session
// missing from the store is only restored when the press came from a
// message that still shows the buttons; otherwise it is a replay.
func (c *Coach) loadForBranch(ctx context.Context, ev BranchAction) (*domain.Session, error) {
	s, restored, err := c.load(ctx, ev.Ref, ev.UserID, domain.StageAwaitingTopicBranch)
	if err != nil {
		return nil, err
	}
	if restored && !format.HasBranchActions(ev.Original) {
		return nil, fmt.Errorf("session %s not in store and branch already answered: %w", s.Run, domain.ErrStaleEvent)
	}
	return s, nil
}

// retireButtons rewrites the coaching reply without its branch buttons.
// Failure is logged; the session is already complete.
func (c *Coach) retireButtons(ctx context.Context, channel string, ev BranchAction, note string) {
	if ev.MessageTS == "" || !format.HasBranchActions(ev.Original) {
		return
	}
	if err := c.host.UpdateMessage(ctx, channel, ev.MessageTS, format.Answered(ev.Original, note)); err != nil {
		c.logger.Warn("Failed to remove branch buttons",
			"user_id", ev.UserID, "run", ev.Ref.Run, "ts", ev.MessageTS, "error", err)
	}
}

// Guide serves the standalone guide command. It never creates a session.
func (c *Coach) Guide(ctx context.Context, ev GuideCommand) error {
	if ev.UserID == "" {
		return fmt.Errorf("guide command missing user: %w", domain.ErrInvalidInput)
	}
	arg := strings.TrimSpace(ev.Text)
	if arg == "" {
		return c.post(ctx, ev.UserID, format.GuideHelp(c.commands.Guide, c.topics.Slugs()))
	}

	t, err := c.topics.BySlug(arg)
	if err != nil {
		if postErr := c.post(ctx, ev.UserID, format.TopicNotFound(arg, c.topics.Slugs())); postErr != nil {
			return errors.Join(err, postErr)
		}
		return err
	}

	if !c.limiter.Allow(ev.UserID) {
		if err := c.post(ctx, ev.UserID, format.RateLimited()); err != nil {
			return err
		}
		return fmt.Errorf("guide for %s: %w", ev.UserID, domain.ErrRateLimited)
	}

	if err := c.post(ctx, ev.UserID, format.GuideProgress(t)); err != nil {
		return err
	}

	text, err := c.gen.Generate(ctx, c.composer.ComposeGuide(t))
	if err != nil {
		return c.guideFailed(ctx, ev.UserID, err)
	}
	msg, err := format.StandaloneGuide(t, text)
	if err != nil {
		return c.guideFailed(ctx, ev.UserID, err)
	}
	c.logger.Info("Guide ready", "user_id", ev.UserID, "topic", t.ID)
	return c.post(ctx, ev.UserID, msg)
}

func (c *Coach) guideFailed(ctx context.Context, userID string, cause error) error {
	if err := c.post(ctx, userID, format.GuideError()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// load fetches the session named by ref and checks it is at expect. A miss
// rebuilds the session from ref so runs survive a restart of a memory store;
// restored reports that case.
func (c *Coach) load(ctx context.Context, ref domain.BranchRef, userID string, expect domain.Stage) (s *domain.Session, restored bool, err error) {
	if ref.Run == "" || ref.SessionID == "" {
		return nil, false, fmt.Errorf("event from %s has no session reference: %w", userID, domain.ErrInvalidInput)
	}

	s, err = c.sessions.Get(ctx, ref.Run)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		c.logger.Info("Session not in store, restoring from reference",
			"user_id", userID, "session_id", ref.SessionID, "run", ref.Run)
		now := c.now()
		return &domain.Session{
			ID:        ref.SessionID,
			Run:       ref.Run,
			UserID:    userID,
			ChannelID: ref.ChannelID,
			TopicID:   ref.TopicID,
			Stage:     expect,
			CreatedAt: now,
			UpdatedAt: now,
		}, true, nil
	default:
		return nil, false, fmt.Errorf("load session %s: %w", ref.Run, err)
	}

	if s.UserID != "" && s.UserID != userID {
		return nil, false, fmt.Errorf("session %s belongs to another user: %w", s.Run, domain.ErrInvalidInput)
	}
	if s.Stage != expect {
		return nil, false, fmt.Errorf("session %s is %s, not %s: %w", s.Run, s.Stage, expect, domain.ErrStaleEvent)
	}
	return s, false, nil
}

func (c *Coach) advance(ctx context.Context, s *domain.Session, next domain.Stage) error {
	from := s.Stage
	s.Stage = next
	s.UpdatedAt = c.now()
	if err := c.sessions.Advance(ctx, s, from); err != nil {
		s.Stage = from
		return fmt.Errorf("advance session %s to %s: %w", s.Run, next, err)
	}
	c.logger.Info("Session advanced",
		"user_id", s.UserID,
		"session_id", s.ID,
		"run", s.Run,
		"from", from,
		"to", next,
	)
	return nil
}

// abandon completes s after a failure and tells the user. The notice is
// only posted if this event wins the transition.
func (c *Coach) abandon(ctx context.Context, s *domain.Session, notice format.Message, cause error) error {
	if err := c.advance(ctx, s, domain.StageComplete); err != nil {
		return errors.Join(cause, err)
	}
	if err := c.post(ctx, s.UserID, notice); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (c *Coach) post(ctx context.Context, channel string, msg format.Message) error {
	if err := c.host.PostMessage(ctx, channel, msg); err != nil {
		return fmt.Errorf("%w: post to %s: %w", domain.ErrHostDelivery, channel, err)
	}
	return nil
}
