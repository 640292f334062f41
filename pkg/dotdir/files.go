package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	dumpsDir = "dumps"
	logsDir  = "logs"

	stampLayout = "20060102T150405.000"
)

// CreateStreamDump creates a new file under .panelctl/dumps/ for a verbatim
// copy of chat response bodies. The caller must close the file.
func (m *Manager) CreateStreamDump(overrideDir string, now time.Time) (*os.File, error) {
	return m.createStamped(overrideDir, dumpsDir, "stream-", ".sse", now)
}

// StreamDumps lists the dump files in chronological order.
func (m *Manager) StreamDumps(overrideDir string) ([]string, error) {
	return m.listStamped(overrideDir, dumpsDir, "stream-", ".sse")
}

// CreateChatLog creates a new JSON log file under .panelctl/logs/ for one
// chat run. The caller must close the file.
func (m *Manager) CreateChatLog(overrideDir string, now time.Time) (*os.File, error) {
	return m.createStamped(overrideDir, logsDir, "chat-", ".jsonl", now)
}

// ChatLogs lists the chat log files in chronological order.
func (m *Manager) ChatLogs(overrideDir string) ([]string, error) {
	return m.listStamped(overrideDir, logsDir, "chat-", ".jsonl")
}

// createStamped creates sub/<prefix><now><suffix> in the target directory.
// Names derive from now in UTC so a lexical sort is chronological.
func (m *Manager) createStamped(overrideDir, sub, prefix, suffix string, now time.Time) (*os.File, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	parent := filepath.Join(dir, sub)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s directory: %w", sub, err)
	}

	name := prefix + now.UTC().Format(stampLayout) + suffix
	f, err := os.OpenFile(filepath.Join(parent, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return f, nil
}

func (m *Manager) listStamped(overrideDir, sub, prefix, suffix string) ([]string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(dir, sub, prefix+"*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", sub, err)
	}
	return paths, nil
}
