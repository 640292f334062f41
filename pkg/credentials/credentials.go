// Package credentials stores panel bearer tokens, one per server URL, in
// credentials.toml inside the .panelctl/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/panelctl/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"
	currentVersion  = 0

	// hintLength is how much of a token List reveals. Tokens shorter than
	// twice this get no hint.
	hintLength = 4
)

// ErrEmptyToken is returned by SetToken for a blank token.
var ErrEmptyToken = errors.New("token is empty")

// Manager reads and writes credentials.toml.
type Manager struct {
	path string
	now  func() time.Time
}

// NewManager resolves credentials.toml in the panelctl directory chosen by
// override (see dotdir.Manager.Target).
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	return &Manager{path: filepath.Join(dir, credentialsFile), now: time.Now}, nil
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
	}

	if creds.Servers == nil {
		creds.Servers = make(map[string]ServerCredential)
	}
	return creds, nil
}

// Save replaces credentials.toml. The file is written next to its final
// location and renamed, so a crash never leaves a truncated token file, and
// it is only ever readable by the owner.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	return dotdir.WriteFile(m.path, buf.Bytes())
}

// SetToken stores token for server, replacing any previous one.
func (m *Manager) SetToken(server, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	return m.update(func(creds *Credentials) {
		creds.Servers[Normalize(server)] = ServerCredential{Token: token, SavedAt: m.now().UTC()}
	})
}

// GetToken returns the token stored for server, or "" when there is none.
func (m *Manager) GetToken(server string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Servers[Normalize(server)].Token, nil
}

// RemoveToken deletes the token stored for server. It reports whether a
// token was stored.
func (m *Manager) RemoveToken(server string) (bool, error) {
	var removed bool
	err := m.update(func(creds *Credentials) {
		key := Normalize(server)
		_, removed = creds.Servers[key]
		delete(creds.Servers, key)
	})
	return removed, err
}

// List describes the stored tokens, sorted by server.
func (m *Manager) List() ([]StoredToken, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	stored := make([]StoredToken, 0, len(creds.Servers))
	for server, cred := range creds.Servers {
		stored = append(stored, StoredToken{
			Server:  server,
			SavedAt: cred.SavedAt,
			Hint:    hint(cred.Token),
		})
	}
	slices.SortFunc(stored, func(a, b StoredToken) int { return strings.Compare(a.Server, b.Server) })
	return stored, nil
}

// ResolveToken returns explicit when set (a flag, PANELCTL_SERVER_TOKEN or
// config.toml value), falling back to the token stored for server.
func (m *Manager) ResolveToken(server, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return m.GetToken(server)
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.path
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// Normalize maps the spellings of one panel URL to a single key:
// "HTTPS://Panel.example/" and "https://panel.example" share a token.
func Normalize(server string) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")

	u, err := url.Parse(server)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return server
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

func hint(token string) string {
	if len(token) < 2*hintLength {
		return ""
	}
	return "…" + token[len(token)-hintLength:]
}
