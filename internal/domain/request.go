package domain

// GenerationRequest is the composed input to the text-generation capability.
// It is consumed once and not retained.
type GenerationRequest struct {
	// System carries the fixed persona and style instructions.
	System string
	// User carries the per-call content: topic context and situation.
	User       string
	TopicID    string
	TopicLabel string
	// MaxTokens bounds the provider output.
	MaxTokens int
	// MaxWords is the word ceiling enforced on the returned text; 0 means none.
	MaxWords int
}
