package panel

import (
	"strings"
	"time"
)

// ChatRequest is the body of the streaming chat call. ConversationID zero
// starts a new conversation.
type ChatRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
}

// ConversationSummary is one entry of the conversation list.
type ConversationSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationList is the conversation list response.
type ConversationList struct {
	Conversations []ConversationSummary `json:"conversations"`
}

// ConversationMessage is a stored message as returned by the panel.
type ConversationMessage struct {
	ID        int64     `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Conversation is a full conversation with its messages.
type Conversation struct {
	ID        int64                 `json:"id"`
	Title     string                `json:"title,omitempty"`
	UpdatedAt time.Time             `json:"updated_at,omitzero"`
	Messages  []ConversationMessage `json:"messages"`
}

// AIConfig is the panel's AI configuration. The panel masks the API key
// before returning it.
type AIConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// Configured reports whether the chat is usable. An empty key, or one the
// panel returned masked (any '*', as in "********" or "sk-****abcd"), means
// no key is configured.
func (c AIConfig) Configured() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && !strings.Contains(key, "*")
}
