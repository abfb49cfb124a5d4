package domain

// CompletionRequest is the provider-agnostic shape of a single completion
// call. Prompt is the newest user turn and is sent after History.
type CompletionRequest struct {
	Model             string
	SystemInstruction string
	History           []ChatMessage
	Prompt            string
	JSON              bool
	Temperature       *float32
}
