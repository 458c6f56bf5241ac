package entity

import "time"

// ConversationTurn is one append-only chat log entry. Parsed echoes the
// command interpretation for audit; the parsing logic never reads it back.
type ConversationTurn struct {
	Role      string         `json:"role"` // "user", "assistant", "system"
	Content   string         `json:"content"`
	Parsed    *ParsedCommand `json:"parsed,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ModelResponse is the raw shape returned by the hosted model service. The
// upstream API has shifted shapes across versions, so all three are kept and
// the extraction chain walks them in order.
type ModelResponse struct {
	// OutputText is the convenience flattened-text field, when present.
	OutputText string `json:"output_text,omitempty"`
	// Output is the segmented shape: a list of items with text blocks.
	Output []ModelOutputItem `json:"output,omitempty"`
	// Choices is the legacy single-message shape.
	Choices []ModelChoice `json:"choices,omitempty"`
}

type ModelOutputItem struct {
	Type    string             `json:"type"`
	Content []ModelContentPart `json:"content,omitempty"`
}

type ModelContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type ModelChoice struct {
	Message ModelChoiceMessage `json:"message"`
}

type ModelChoiceMessage struct {
	Content string `json:"content"`
}
