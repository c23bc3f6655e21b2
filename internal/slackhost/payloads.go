package slackhost

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ashureev/maven/internal/format"
)

var errIncompletePayload = errors.New("payload missing type or user")

// ParseSlashCommand reads a form-encoded slash command from r.
func ParseSlashCommand(r *http.Request) (slack.SlashCommand, error) {
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		return slack.SlashCommand{}, fmt.Errorf("parse slash command: %w", err)
	}
	if err := checkCommand(cmd); err != nil {
		return slack.SlashCommand{}, err
	}
	return cmd, nil
}

func checkCommand(cmd slack.SlashCommand) error {
	if cmd.Command == "" || cmd.UserID == "" {
		return fmt.Errorf("slash command missing command or user_id")
	}
	return nil
}

// ParseInteraction decodes the JSON carried in the "payload" form field.
func ParseInteraction(raw []byte) (slack.InteractionCallback, error) {
	var cb slack.InteractionCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return slack.InteractionCallback{}, fmt.Errorf("decode interaction: %w", err)
	}
	if err := checkInteraction(cb); err != nil {
		return slack.InteractionCallback{}, err
	}
	return cb, nil
}

func checkInteraction(cb slack.InteractionCallback) error {
	if cb.Type == "" || cb.User.ID == "" {
		return fmt.Errorf("interaction: %w", errIncompletePayload)
	}
	return nil
}

// ViewValue returns the submitted value of an input: the selected option
// for selects, the text for plain inputs.
func ViewValue(view slack.View, blockID, actionID string) string {
	if view.State == nil {
		return ""
	}
	action, ok := view.State.Values[blockID][actionID]
	if !ok {
		return ""
	}
	if action.SelectedOption.Value != "" {
		return action.SelectedOption.Value
	}
	return action.Value
}

// ChannelOrUser returns the channel of the interaction, or the user ID for
// direct messages.
func ChannelOrUser(cb slack.InteractionCallback) string {
	for _, id := range []string{cb.Channel.ID, cb.Container.ChannelID} {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	return cb.User.ID
}

// SourceMessage returns the timestamp and content of the message a block
// action was pressed on. ts is empty when the action did not come from a
// message.
func SourceMessage(cb slack.InteractionCallback) (ts string, msg format.Message) {
	ts = cb.Container.MessageTs
	if ts == "" {
		ts = cb.Message.Timestamp
	}
	return ts, format.Message{Text: cb.Message.Text, Blocks: cb.Message.Blocks.BlockSet}
}
