package format

import (
	"strings"

	"github.com/slack-go/slack"
)

// Message is a full bot message: Block Kit blocks plus the plain-text
// fallback shown in notifications.
type Message struct {
	Text   string
	Blocks []slack.Block
}

// Options renders m for chat.postMessage and chat.update.
func (m Message) Options() []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(m.Text, false)}
	if len(m.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(m.Blocks...))
	}
	return opts
}

// Notes appended to a coaching reply once its branch has been answered.
const (
	AnsweredDigDeeper = "📖 _You chose to dig deeper._"
	AnsweredDone      = "✓ _You're all set._"
)

// Answered returns original with its branch buttons replaced by note. The
// rewritten message offers nothing to press again.
func Answered(original Message, note string) Message {
	out := Message{Text: original.Text, Blocks: make([]slack.Block, 0, len(original.Blocks)+1)}
	for _, b := range original.Blocks {
		if isBranchActions(b) {
			continue
		}
		out.Blocks = append(out.Blocks, b)
	}
	out.Blocks = append(out.Blocks, contextFooter(note))
	return out
}

// HasBranchActions reports whether msg still carries the branch buttons.
func HasBranchActions(msg Message) bool {
	for _, b := range msg.Blocks {
		if isBranchActions(b) {
			return true
		}
	}
	return false
}

func isBranchActions(b slack.Block) bool {
	a, ok := b.(*slack.ActionBlock)
	return ok && strings.HasPrefix(a.BlockID, BranchBlockPrefix)
}

func plain(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, s, true, false)
}

func mrkdwn(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, s, false, false)
}

func header(s string) slack.Block {
	return slack.NewHeaderBlock(plain(s))
}

func section(s string) slack.Block {
	return slack.NewSectionBlock(mrkdwn(s), nil, nil)
}

func divider() slack.Block {
	return slack.NewDividerBlock()
}

func contextFooter(s string) slack.Block {
	return slack.NewContextBlock("", mrkdwn(s))
}
