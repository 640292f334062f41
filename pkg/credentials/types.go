package credentials

import "time"

// Credentials is the content of credentials.toml.
type Credentials struct {
	Version int                         `toml:"version"`
	Servers map[string]ServerCredential `toml:"servers"`
}

// ServerCredential is the bearer token stored for one panel.
type ServerCredential struct {
	Token   string    `toml:"token"`
	SavedAt time.Time `toml:"saved_at"`
}

// StoredToken describes a stored token without revealing it.
type StoredToken struct {
	Server  string
	SavedAt time.Time

	// Hint is the last characters of the token, or empty for short tokens.
	Hint string
}
