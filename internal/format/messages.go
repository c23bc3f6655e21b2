package format

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ashureev/maven/internal/domain"
)

// Identifiers shared with the interaction router.
const (
	IntakeCallbackID  = "maven_topic_modal"
	TopicBlockID      = "topic_block"
	TopicActionID     = "topic_select"
	SituationBlockID  = "question_block"
	SituationActionID = "question_input"

	DigDeeperPrefix    = "dig_deeper_yes_"
	DonePrefix         = "dig_deeper_no_"
	BranchBlockPrefix  = "dig_deeper_actions_"
	defaultDisplayName = "Manager"
)

const (
	footerDeepDive = "_Maven — Your Leadership Code coaching partner. Built on the belief that great managers are made, not born._"
	footerClosing  = "_Maven — Your Leadership Code coaching partner._"
	footerGuide    = "_Maven — Leadership Code Coaching Guide | To save: copy this message or use Slack's \"Save\" feature_"
)

// Intake renders the topic picker modal. ref is stored in private_metadata
// and comes back with the submission.
func Intake(topics []domain.Topic, ref domain.BranchRef) (slack.ModalViewRequest, error) {
	if len(topics) == 0 {
		return slack.ModalViewRequest{}, fmt.Errorf("%w: no topics to offer", domain.ErrMalformedTopic)
	}
	options := make([]*slack.OptionBlockObject, 0, len(topics))
	for _, t := range topics {
		if err := t.CheckCoaching(); err != nil {
			return slack.ModalViewRequest{}, err
		}
		options = append(options, slack.NewOptionBlockObject(t.ID, plain(t.Label()), nil))
	}

	topicSelect := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic,
		plain("Choose a coaching topic..."), TopicActionID, options...)
	situation := slack.NewPlainTextInputBlockElement(
		plain("e.g. 'I need to address declining work quality with a team member who's been going through personal issues. I've been avoiding it for two weeks...'"),
		SituationActionID)
	situation.Multiline = true

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: IntakeCallbackID,
		Title:      plain("Maven ⚡"),
		Submit:     plain("Get Coached →"),
		Close:      plain("Not now"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			section("*Welcome, Manager.* 👋\n\nMaven is your on-the-go coaching toolkit — built for the moments when you need a thought partner *right now.*\n\n_Select a topic and describe your situation. The more specific you are, the better the coaching._"),
			divider(),
			slack.NewInputBlock(TopicBlockID, plain("📌 What's on your mind today?"), nil, topicSelect),
			slack.NewInputBlock(SituationBlockID, plain("✏️ Describe your specific situation"),
				plain("What's actually happening? Who's involved? What outcome do you want?"), situation),
		}},
		PrivateMetadata: ref.Encode(),
	}, nil
}

// CoachingReply renders rationale, tips, the generated coaching and the
// branch choice. Both buttons carry ref so the branch event is self-describing.
func CoachingReply(topic domain.Topic, text, name string, ref domain.BranchRef) (Message, error) {
	if err := topic.CheckCoaching(); err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = defaultDisplayName
	}
	ref.TopicID = topic.ID
	value := ref.Encode()

	blocks := []slack.Block{
		header("Maven Coaching " + topic.Emoji),
		section(fmt.Sprintf("*%s* — Coaching for %s", topic.Label(), name)),
		divider(),
		section("*⚡ Why This Matters*"),
		section(topic.Why),
		divider(),
		section("*🎯 3 Tips You Can Use Right Now*"),
	}
	blocks = append(blocks, numbered(topic.Tips)...)
	blocks = append(blocks,
		divider(),
		section("*🧠 Coaching for Your Situation*"),
		section(text),
		divider(),
		section("*Want to go deeper?* 👇\nThere's more — a richer exploration, 3 big ideas, and a prompt to keep this going on your own terms."),
		slack.NewActionBlock(BranchBlockPrefix+topic.ID,
			slack.NewButtonBlockElement(DigDeeperPrefix+topic.ID, value, plain("📖 Yes, dig deeper")).
				WithStyle(slack.StylePrimary),
			slack.NewButtonBlockElement(DonePrefix+topic.ID, value, plain("✓ I'm good, thanks")),
		),
	)

	return Message{Text: "Maven coaching on " + topic.Label(), Blocks: blocks}, nil
}

// DeepDive renders the intro, big ideas and the follow-up prompt to copy.
func DeepDive(topic domain.Topic) (Message, error) {
	if err := topic.CheckDeepDive(); err != nil {
		return Message{}, err
	}

	blocks := []slack.Block{
		divider(),
		header("📚 Dig Deeper — " + topic.Title),
		section(topic.DeepDiveIntro),
		divider(),
		section("*💡 3 Big Ideas to Take With You*"),
	}
	blocks = append(blocks, numbered(topic.BigIdeas)...)
	blocks = append(blocks,
		divider(),
		section("*🚀 Keep the Conversation Going*\n\nReady to go further? Here's exactly what to type next:\n\n> "+topic.FollowUpPrompt),
		contextFooter(footerDeepDive),
	)

	return Message{Text: "Digging deeper on " + topic.Label(), Blocks: blocks}, nil
}

// Closing renders the end-of-session acknowledgment.
func Closing(command string) Message {
	return Message{
		Text: "Maven session complete.",
		Blocks: []slack.Block{
			divider(),
			section(fmt.Sprintf("✅ *You're set!* Come back to Maven anytime — great managers keep coming back to the fundamentals.\n\nType `%s` to start a new session.", command)),
			contextFooter(footerClosing),
		},
	}
}

// StandaloneGuide renders a one-page guide. It does not depend on any session.
func StandaloneGuide(topic domain.Topic, text string) (Message, error) {
	if strings.TrimSpace(topic.ID) == "" || strings.TrimSpace(topic.Title) == "" {
		return Message{}, fmt.Errorf("%w: guide topic is missing id or title", domain.ErrMalformedTopic)
	}
	title := "Maven 1-Pager: " + topic.Label()
	return Message{
		Text: title,
		Blocks: []slack.Block{
			header(title),
			divider(),
			section(text),
			divider(),
			contextFooter(footerGuide),
		},
	}, nil
}

// GuideHelp lists the slugs accepted by the guide command.
func GuideHelp(command string, slugs []string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "*📄 Maven 1-Pager Generator*\n\nType `%s [topic]` to generate a downloadable coaching guide.\n\nAvailable topics:", command)
	for _, s := range slugs {
		b.WriteString("\n• `" + s + "`")
	}
	return Message{Text: "Maven PDF Generator", Blocks: []slack.Block{section(b.String())}}
}

// GuideProgress tells the user a guide is being generated.
func GuideProgress(topic domain.Topic) Message {
	return Notice(fmt.Sprintf("⏳ Generating your Maven 1-pager on *%s*...", topic.Label()))
}

// TopicNotFound reports an unknown topic and suggests the valid slugs.
func TopicNotFound(arg string, slugs []string) Message {
	return Notice(fmt.Sprintf("Topic %q not found. Try: %s", arg, joinOr(slugs)))
}

// CoachingError is the generic recoverable failure for the coaching flow.
func CoachingError(command string) Message {
	return Notice(fmt.Sprintf("Something went wrong with Maven. Please try `%s` again in a moment.", command))
}

// GuideError is the generic recoverable failure for the guide command.
func GuideError() Message {
	return Notice("Something went wrong generating your guide. Try again!")
}

// RateLimited asks the user to slow down.
func RateLimited() Message {
	return Notice("Maven is still thinking about your last request. Give it a minute and try again.")
}

// Notice is a text-only message.
func Notice(text string) Message {
	return Message{Text: text}
}

func numbered(items []string) []slack.Block {
	out := make([]slack.Block, len(items))
	for i, item := range items {
		out[i] = section(fmt.Sprintf("%d. %s", i+1, item))
	}
	return out
}

func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", or " + items[len(items)-1]
}
