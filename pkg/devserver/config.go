// Package devserver provides a local stand-in for the panel's AI chat
// backend. It keeps conversations in memory and answers chat requests with
// a scripted, word-by-word reply in the panel's stream framing.
package devserver

import "time"

// Config is the dev server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// Token, when set, is the bearer token every /api request must carry.
	Token string

	// Model and APIKey are reported by /api/ai/config. An empty APIKey
	// makes the server report itself as not configured and refuse chats.
	Model  string
	APIKey string

	// WordDelay is the pause between streamed words.
	WordDelay time.Duration
}
