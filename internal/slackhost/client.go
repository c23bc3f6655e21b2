// Package slackhost connects the coaching flow to Slack through the
// slack-go Web API and Socket Mode clients.
package slackhost

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ashureev/maven/internal/format"
)

// Client calls Slack Web API methods with a bot token.
type Client struct {
	api *slack.Client
}

// NewClient creates a Web API client. appToken is only needed for Socket
// Mode. An empty apiURL uses slack.com.
func NewClient(botToken, appToken, apiURL string) *Client {
	var opts []slack.Option
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	if appToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(appToken))
	}
	return &Client{api: slack.New(botToken, opts...)}
}

// PostMessage sends msg to channel via chat.postMessage.
func (c *Client) PostMessage(ctx context.Context, channel string, msg format.Message) error {
	if _, _, err := c.api.PostMessageContext(ctx, channel, msg.Options()...); err != nil {
		return fmt.Errorf("slack chat.postMessage: %w", err)
	}
	slog.Debug("Message posted to Slack", "channel", channel, "blocks", len(msg.Blocks))
	return nil
}

// UpdateMessage replaces the message at ts via chat.update.
func (c *Client) UpdateMessage(ctx context.Context, channel, ts string, msg format.Message) error {
	if _, _, _, err := c.api.UpdateMessageContext(ctx, channel, ts, msg.Options()...); err != nil {
		return fmt.Errorf("slack chat.update: %w", err)
	}
	return nil
}

// OpenView opens a modal for the interaction identified by triggerID.
func (c *Client) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return fmt.Errorf("slack views.open: %w", err)
	}
	return nil
}

// UserInfo looks up a workspace member.
func (c *Client) UserInfo(ctx context.Context, userID string) (*slack.User, error) {
	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("slack users.info: %w", err)
	}
	return u, nil
}
