package slackhost

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"
)

// Handler receives decoded Slack events. Implementations must return
// quickly; long work belongs on a separate goroutine.
type Handler interface {
	HandleCommand(ctx context.Context, cmd slack.SlashCommand)
	HandleInteraction(ctx context.Context, cb slack.InteractionCallback)
}

type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// SocketClient receives events over Socket Mode and acknowledges each
// request before handing it to the Handler.
type SocketClient struct {
	client  *socketmode.Client
	handler Handler
	logger  *slog.Logger
}

// NewSocketClient creates a Socket Mode client. c must carry an app-level
// token.
func NewSocketClient(c *Client, handler Handler, logger *slog.Logger) *SocketClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketClient{
		client:  socketmode.New(c.api),
		handler: handler,
		logger:  logger,
	}
}

// Run connects and reconnects until ctx is done.
func (s *SocketClient) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.client.RunContext(gctx)
	})
	g.Go(func() error {
		s.consume(gctx, s.client.Events, s.client)
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		s.logger.Info("Socket Mode client stopped", "reason", ctx.Err())
		return nil
	}
	return err
}

func (s *SocketClient) consume(ctx context.Context, events <-chan socketmode.Event, ack acker) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			s.dispatch(ctx, evt, ack)
		}
	}
}

func (s *SocketClient) dispatch(ctx context.Context, evt socketmode.Event, ack acker) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		s.logger.Info("Socket Mode connecting")
	case socketmode.EventTypeConnected:
		s.logger.Info("Socket Mode connected")
	case socketmode.EventTypeConnectionError, socketmode.EventTypeInvalidAuth:
		s.logger.Warn("Socket Mode connection problem", "type", evt.Type, "data", evt.Data)
	case socketmode.EventTypeSlashCommand:
		s.acked(evt, ack)
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			s.logger.Warn("Unexpected slash command event", "data_type", fmt.Sprintf("%T", evt.Data))
			return
		}
		if err := checkCommand(cmd); err != nil {
			s.logger.Warn("Rejected slash command", "error", err)
			return
		}
		s.handler.HandleCommand(ctx, cmd)
	case socketmode.EventTypeInteractive:
		s.acked(evt, ack)
		cb, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			s.logger.Warn("Unexpected interactive event", "data_type", fmt.Sprintf("%T", evt.Data))
			return
		}
		if err := checkInteraction(cb); err != nil {
			s.logger.Warn("Rejected interaction payload", "error", err)
			return
		}
		s.handler.HandleInteraction(ctx, cb)
	case socketmode.EventTypeEventsAPI:
		s.acked(evt, ack)
		s.logger.Debug("Ignoring Events API event")
	default:
		s.logger.Debug("Ignoring Socket Mode event", "type", evt.Type)
	}
}

// acked acknowledges evt's request, if it has one.
func (s *SocketClient) acked(evt socketmode.Event, ack acker) {
	if evt.Request == nil || evt.Request.EnvelopeID == "" {
		s.logger.Debug("Socket Mode event without envelope", "type", evt.Type)
		return
	}
	ack.Ack(*evt.Request)
}
