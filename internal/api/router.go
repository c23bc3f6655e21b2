package api

import (
	"context"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ashureev/maven/internal/coach"
	"github.com/ashureev/maven/internal/config"
	"github.com/ashureev/maven/internal/domain"
	"github.com/ashureev/maven/internal/format"
	"github.com/ashureev/maven/internal/identity"
	"github.com/ashureev/maven/internal/slackhost"
)

// Service is the coaching flow the router feeds.
type Service interface {
	Invoke(ctx context.Context, ev coach.Invocation) error
	SubmitIntake(ctx context.Context, ev coach.IntakeSubmission) error
	Branch(ctx context.Context, ev coach.BranchAction) error
	Guide(ctx context.Context, ev coach.GuideCommand) error
}

// Dispatcher runs event work after the host has been acknowledged.
type Dispatcher interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Router maps Slack commands and interactions onto the coaching flow. It
// implements slackhost.Handler for Socket Mode and backs the HTTP handlers.
type Router struct {
	svc      Service
	dispatch Dispatcher
	commands config.CommandConfig
	logger   *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(svc Service, dispatch Dispatcher, commands config.CommandConfig, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{svc: svc, dispatch: dispatch, commands: commands, logger: logger}
}

var _ slackhost.Handler = (*Router)(nil)

// HandleCommand routes a slash command.
func (r *Router) HandleCommand(ctx context.Context, cmd slack.SlashCommand) {
	switch cmd.Command {
	case r.commands.Coach:
		ev := coach.Invocation{UserID: cmd.UserID, ChannelID: cmd.ChannelID, TriggerID: cmd.TriggerID}
		ctx = identity.WithUser(ctx, cmd.UserID, domain.SessionID(cmd.UserID, cmd.ChannelID))
		r.run(ctx, "invoke", func(ctx context.Context) error { return r.svc.Invoke(ctx, ev) })
	case r.commands.Guide:
		ev := coach.GuideCommand{UserID: cmd.UserID, Text: cmd.Text}
		ctx = identity.WithUser(ctx, cmd.UserID, "")
		r.run(ctx, "guide", func(ctx context.Context) error { return r.svc.Guide(ctx, ev) })
	default:
		r.logger.Warn("Unknown slash command", "command", cmd.Command, "user_id", cmd.UserID)
	}
}

// HandleInteraction routes a form submission or a button press.
func (r *Router) HandleInteraction(ctx context.Context, in slack.InteractionCallback) {
	switch in.Type {
	case slack.InteractionTypeViewSubmission:
		r.handleSubmission(ctx, in)
	case slack.InteractionTypeBlockActions:
		for _, action := range in.ActionCallback.BlockActions {
			r.handleAction(ctx, in, action)
		}
	default:
		r.logger.Debug("Ignoring interaction", "type", in.Type, "user_id", in.User.ID)
	}
}

func (r *Router) handleSubmission(ctx context.Context, in slack.InteractionCallback) {
	if in.View.CallbackID != format.IntakeCallbackID {
		r.logger.Debug("Ignoring view submission", "callback_id", in.View.CallbackID)
		return
	}
	ref, err := domain.ParseBranchRef(in.View.PrivateMetadata)
	if err != nil {
		r.logger.Warn("Intake submission without session reference", "user_id", in.User.ID, "error", err)
		return
	}
	ev := coach.IntakeSubmission{
		UserID:    in.User.ID,
		TopicID:   slackhost.ViewValue(in.View, format.TopicBlockID, format.TopicActionID),
		Situation: slackhost.ViewValue(in.View, format.SituationBlockID, format.SituationActionID),
		Ref:       ref,
	}
	ctx = identity.WithUser(ctx, ev.UserID, ref.SessionID)
	r.run(ctx, "intake", func(ctx context.Context) error { return r.svc.SubmitIntake(ctx, ev) })
}

func (r *Router) handleAction(ctx context.Context, in slack.InteractionCallback, action *slack.BlockAction) {
	choice, topicID, ok := ParseBranchAction(action.ActionID)
	if !ok {
		r.logger.Debug("Ignoring action", "action_id", action.ActionID)
		return
	}
	ref, err := domain.ParseBranchRef(action.Value)
	if err != nil {
		r.logger.Warn("Branch action without session reference",
			"user_id", in.User.ID, "action_id", action.ActionID, "error", err)
		return
	}
	ts, original := slackhost.SourceMessage(in)
	ev := coach.BranchAction{
		UserID:    in.User.ID,
		ChannelID: slackhost.ChannelOrUser(in),
		TopicID:   topicID,
		Choice:    choice,
		Ref:       ref,
		MessageTS: ts,
		Original:  original,
	}
	ctx = identity.WithUser(ctx, ev.UserID, ref.SessionID)
	r.run(ctx, "branch", func(ctx context.Context) error { return r.svc.Branch(ctx, ev) })
}

// ParseBranchAction splits a branch button action ID into its choice and
// topic.
func ParseBranchAction(actionID string) (coach.Choice, string, bool) {
	if id, ok := strings.CutPrefix(actionID, format.DigDeeperPrefix); ok && id != "" {
		return coach.ChoiceDigDeeper, id, true
	}
	if id, ok := strings.CutPrefix(actionID, format.DonePrefix); ok && id != "" {
		return coach.ChoiceDone, id, true
	}
	return "", "", false
}

func (r *Router) run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if err := r.dispatch.Go(ctx, name, fn); err != nil {
		r.logger.Warn("Dropped event", "event", name, "error", err)
	}
}
