package llm

import (
	"context"
	"encoding/json"
)

// Roles used in chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL holds a data URL or an http(s) URL of an image.
type ImageURL struct {
	URL string `json:"url"`
}

// TextPart returns a text content part.
func TextPart(s string) ContentPart {
	return ContentPart{Type: "text", Text: s}
}

// ImagePart returns an image content part referencing url.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

// Message is a chat turn. A turn holding a single text part is sent with a
// plain string content, as chat-completions APIs expect for system prompts.
type Message struct {
	Role    string
	Content []ContentPart
}

func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Content) == 1 && m.Content[0].Type == "text" {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{m.Role, m.Content[0].Text})
	}
	return json.Marshal(struct {
		Role    string        `json:"role"`
		Content []ContentPart `json:"content"`
	}{m.Role, m.Content})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var aux struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.Role = aux.Role
	m.Content = nil
	var s string
	if err := json.Unmarshal(aux.Content, &s); err == nil {
		m.Content = []ContentPart{TextPart(s)}
		return nil
	}
	return json.Unmarshal(aux.Content, &m.Content)
}

// ChatRequest is a single-turn, non-streaming chat completion request.
// Model and sampling fields left zero are filled in by the client.
type ChatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	Stream           bool      `json:"stream"`
}

// Completion is a model reply: the full response envelope and the text of the
// first choice.
type Completion struct {
	Raw  json.RawMessage
	Text string
}

// Client sends one chat request to a model service.
type Client interface {
	Complete(ctx context.Context, req *ChatRequest) (*Completion, error)
}
