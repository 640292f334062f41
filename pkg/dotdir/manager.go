// Package dotdir manages the .panelctl/ directory, which holds the config
// file, stored credentials, chat logs and raw stream dumps.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".panelctl"

// HomeEnv names an environment variable that pins the panelctl directory,
// for containers and CI where neither the working directory nor $HOME is
// meaningful.
const HomeEnv = "PANELCTL_HOME"

// Manager resolves the panelctl directory.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the panelctl directory, creating it
// when missing. The first match wins:
//  1. overrideDir (the --config-dir flag)
//  2. $PANELCTL_HOME
//  3. ./.panelctl/ when it already exists
//  4. ~/.panelctl/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating panelctl directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	local := filepath.Join(cwd, dirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}
