//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/maven/internal/coach"
	"github.com/ashureev/maven/internal/config"
	"github.com/ashureev/maven/internal/domain"
	"github.com/ashureev/maven/internal/format"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type fakeService struct {
	mu          sync.Mutex
	invocations []coach.Invocation
	intakes     []coach.IntakeSubmission
	branches    []coach.BranchAction
	guides      []coach.GuideCommand
}

func (s *fakeService) Invoke(_ context.Context, ev coach.Invocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invocations = append(s.invocations, ev)
	return nil
}

func (s *fakeService) SubmitIntake(_ context.Context, ev coach.IntakeSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intakes = append(s.intakes, ev)
	return nil
}

func (s *fakeService) Branch(_ context.Context, ev coach.BranchAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches = append(s.branches, ev)
	return nil
}

func (s *fakeService) Guide(_ context.Context, ev coach.GuideCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guides = append(s.guides, ev)
	return nil
}

// inlineDispatcher runs events synchronously so tests can assert on them.
type inlineDispatcher struct {
	names []string
}

func (d *inlineDispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	d.names = append(d.names, name)
	return fn(ctx)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(svc Service, health Pinger) (http.Handler, *inlineDispatcher) {
	d := &inlineDispatcher{}
	router := NewRouter(svc, d, config.CommandConfig{Coach: "/maven", Guide: "/maven-pdf"}, nil)
	r := chi.NewRouter()
	NewHandler(router, health).Routes(r, testSecret)
	return r, d
}

func signedForm(path string, form url.Values) *http.Request {
	body := form.Encode()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("v0:" + ts + ":" + body))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestCommands(t *testing.T) {
	svc := &fakeService{}
	srv, d := newTestServer(svc, fakePinger{})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, signedForm("/slack/commands", url.Values{
		"command":    {"/maven"},
		"user_id":    {"U1"},
		"channel_id": {"C1"},
		"trigger_id": {"T1"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(svc.invocations) != 1 || svc.invocations[0] != (coach.Invocation{UserID: "U1", ChannelID: "C1", TriggerID: "T1"}) {
		t.Errorf("Unexpected invocations %+v", svc.invocations)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, signedForm("/slack/commands", url.Values{
		"command": {"/maven-pdf"},
		"user_id": {"U1"},
		"text":    {"team-conflict"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(svc.guides) != 1 || svc.guides[0].Text != "team-conflict" {
		t.Errorf("Unexpected guide commands %+v", svc.guides)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, signedForm("/slack/commands", url.Values{"command": {"/other"}, "user_id": {"U1"}}))
	if w.Code != http.StatusOK {
		t.Errorf("Expected unknown command to be acked, got %d", w.Code)
	}
	if len(d.names) != 2 {
		t.Errorf("Expected 2 dispatched events, got %v", d.names)
	}
}

func TestCommandsRejectsUnsigned(t *testing.T) {
	svc := &fakeService{}
	srv, _ := newTestServer(svc, fakePinger{})

	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader("command=%2Fmaven&user_id=U1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
	if len(svc.invocations) != 0 {
		t.Error("Expected no invocation for unsigned request")
	}
}

func TestInteractivityViewSubmission(t *testing.T) {
	svc := &fakeService{}
	srv, _ := newTestServer(svc, fakePinger{})
	ref := domain.BranchRef{SessionID: "U1:C1", Run: "run-1", ChannelID: "C1"}

	payload := map[string]any{
		"type": "view_submission",
		"user": map[string]any{"id": "U1"},
		"view": map[string]any{
			"callback_id":      format.IntakeCallbackID,
			"private_metadata": ref.Encode(),
			"state": map[string]any{"values": map[string]any{
				format.TopicBlockID: map[string]any{
					format.TopicActionID: map[string]any{"type": "static_select", "selected_option": map[string]any{"value": "better_11s"}},
				},
				format.SituationBlockID: map[string]any{
					format.SituationActionID: map[string]any{"type": "plain_text_input", "value": "my team feels micromanaged"},
				},
			}},
		},
	}
	raw, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, signedForm("/slack/interactivity", url.Values{"payload": {string(raw)}}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(svc.intakes) != 1 {
		t.Fatalf("Expected 1 intake, got %d", len(svc.intakes))
	}
	got := svc.intakes[0]
	if got.TopicID != "better_11s" || got.Situation != "my team feels micromanaged" || got.Ref != ref {
		t.Errorf("Unexpected intake %+v", got)
	}
}

func TestInteractivityBranchActions(t *testing.T) {
	svc := &fakeService{}
	srv, _ := newTestServer(svc, fakePinger{})
	ref := domain.BranchRef{SessionID: "U1:C1", Run: "run-1", TopicID: "hard_conversations"}
	blockID := format.BranchBlockPrefix + "hard_conversations"

	payload := map[string]any{
		"type":      "block_actions",
		"user":      map[string]any{"id": "U1"},
		"channel":   map[string]any{"id": "D1"},
		"container": map[string]any{"type": "message", "message_ts": "1700000000.000100", "channel_id": "D1"},
		"message": map[string]any{
			"ts":   "1700000000.000100",
			"text": "Maven coaching on 💬 Hard Conversations",
			"blocks": []map[string]any{
				{"type": "section", "text": map[string]any{"type": "mrkdwn", "text": "coaching"}},
				{"type": "actions", "block_id": blockID, "elements": []map[string]any{
					{"type": "button", "action_id": format.DigDeeperPrefix + "hard_conversations", "value": ref.Encode(),
						"text": map[string]any{"type": "plain_text", "text": "Yes"}},
				}},
			},
		},
		"actions": []map[string]any{
			{"type": "button", "block_id": blockID, "action_id": format.DigDeeperPrefix + "hard_conversations", "value": ref.Encode()},
			{"type": "button", "block_id": "other", "action_id": "unrelated_button", "value": "x"},
			{"type": "button", "block_id": blockID, "action_id": format.DonePrefix + "hard_conversations", "value": "garbage"},
		},
	}
	raw, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, signedForm("/slack/interactivity", url.Values{"payload": {string(raw)}}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(svc.branches) != 1 {
		t.Fatalf("Expected 1 branch event, got %d", len(svc.branches))
	}
	got := svc.branches[0]
	if got.UserID != "U1" || got.ChannelID != "D1" || got.TopicID != "hard_conversations" ||
		got.Choice != coach.ChoiceDigDeeper || got.Ref != ref {
		t.Errorf("Unexpected branch event %+v", got)
	}
	if got.MessageTS != "1700000000.000100" || !format.HasBranchActions(got.Original) {
		t.Errorf("Expected source message with buttons, got ts=%q blocks=%d", got.MessageTS, len(got.Original.Blocks))
	}
}

func TestInteractivityRejectsBadPayload(t *testing.T) {
	srv, _ := newTestServer(&fakeService{}, fakePinger{})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, signedForm("/slack/interactivity", url.Values{"payload": {"{not json"}}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestParseBranchAction(t *testing.T) {
	tests := []struct {
		actionID string
		choice   coach.Choice
		topic    string
		ok       bool
	}{
		{"dig_deeper_yes_better_11s", coach.ChoiceDigDeeper, "better_11s", true},
		{"dig_deeper_no_team_development", coach.ChoiceDone, "team_development", true},
		{"dig_deeper_yes_", "", "", false},
		{"topic_select", "", "", false},
	}
	for _, tt := range tests {
		choice, topic, ok := ParseBranchAction(tt.actionID)
		if choice != tt.choice || topic != tt.topic || ok != tt.ok {
			t.Errorf("ParseBranchAction(%q) = %q, %q, %v", tt.actionID, choice, topic, ok)
		}
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(&fakeService{}, fakePinger{})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	srv, _ = newTestServer(&fakeService{}, fakePinger{err: errors.New("disk I/O error")})
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}
