package slackhost

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

type recordingHandler struct {
	mu           sync.Mutex
	commands     []slack.SlashCommand
	interactions []slack.InteractionCallback
}

func (h *recordingHandler) HandleCommand(_ context.Context, cmd slack.SlashCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
}

func (h *recordingHandler) HandleInteraction(_ context.Context, cb slack.InteractionCallback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.interactions = append(h.interactions, cb)
}

type recordingAcker struct {
	envelopes []string
}

func (a *recordingAcker) Ack(req socketmode.Request, _ ...interface{}) {
	a.envelopes = append(a.envelopes, req.EnvelopeID)
}

func TestSocketClientAcksAndDispatches(t *testing.T) {
	handler := &recordingHandler{}
	ack := &recordingAcker{}
	s := &SocketClient{handler: handler, logger: discardLogger()}

	events := make(chan socketmode.Event, 8)
	events <- socketmode.Event{Type: socketmode.EventTypeConnected}
	events <- socketmode.Event{
		Type:    socketmode.EventTypeSlashCommand,
		Data:    slack.SlashCommand{Command: "/maven", UserID: "U1", ChannelID: "C1", TriggerID: "T1"},
		Request: &socketmode.Request{EnvelopeID: "env-1"},
	}
	events <- socketmode.Event{
		Type: socketmode.EventTypeInteractive,
		Data: slack.InteractionCallback{
			Type: slack.InteractionTypeBlockActions,
			User: slack.User{ID: "U1"},
			ActionCallback: slack.ActionCallbacks{BlockActions: []*slack.BlockAction{
				{ActionID: "dig_deeper_no_better_11s", Value: "r=run&s=U1%3AC1"},
			}},
		},
		Request: &socketmode.Request{EnvelopeID: "env-2"},
	}
	// Acked but dropped: no user.
	events <- socketmode.Event{
		Type:    socketmode.EventTypeSlashCommand,
		Data:    slack.SlashCommand{Command: "/maven"},
		Request: &socketmode.Request{EnvelopeID: "env-3"},
	}
	close(events)

	done := make(chan struct{})
	go func() {
		s.consume(context.Background(), events, ack)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("consume did not return after events closed")
	}

	if len(ack.envelopes) != 3 || ack.envelopes[0] != "env-1" || ack.envelopes[2] != "env-3" {
		t.Errorf("unexpected acks %v", ack.envelopes)
	}
	if len(handler.commands) != 1 || handler.commands[0].TriggerID != "T1" {
		t.Errorf("unexpected commands %+v", handler.commands)
	}
	if len(handler.interactions) != 1 || handler.interactions[0].ActionCallback.BlockActions[0].ActionID != "dig_deeper_no_better_11s" {
		t.Errorf("unexpected interactions %+v", handler.interactions)
	}
}

func TestSocketClientStopsOnCancel(t *testing.T) {
	s := &SocketClient{handler: &recordingHandler{}, logger: discardLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.consume(ctx, make(chan socketmode.Event), &recordingAcker{})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("consume did not return after cancel")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
