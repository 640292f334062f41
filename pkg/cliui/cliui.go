// Package cliui provides reusable terminal UI helpers (spinners, step indicators,
// markdown rendering) for panelctl commands.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	IDStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	UserStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	AssistStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	PreviewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// RoleStyle returns the label style for a transcript role.
func RoleStyle(role string) lipgloss.Style {
	if role == "user" {
		return UserStyle
	}
	return AssistStyle
}

// spinnerFrames matches bubbletea's spinner.Dot pattern used in the chat TUI.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerInterval = 80 * time.Millisecond

// Step runs fn and reports it as one line ending in a ✓ or ✗ and the
// elapsed time. On a terminal a spinner animates while fn runs; piped
// output only gets the final line, so redirected chat transcripts stay
// free of carriage returns.
func Step(w io.Writer, msg string, fn func() error) error {
	stop := func() {}
	if isTerminal(w) {
		stop = spin(w, msg)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	stop()

	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	return err
}

// spin animates msg on w until the returned func is called. The func
// returns once the last frame is written.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Field is one row of a Fields block.
type Field struct {
	Key   string
	Value string
}

// Fields writes rows as an indented key/value block with the keys padded
// to a common width. Values are written as given, styled or not.
func Fields(w io.Writer, rows ...Field) {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Key)+1)
	}
	for _, r := range rows {
		key := r.Key + ":"
		fmt.Fprintf(w, "  %s  %s\n", KeyStyle.Render(key+strings.Repeat(" ", width-lipgloss.Width(key))), r.Value)
	}
}

// MaskSecret hides a token for display. Empty stays empty so "not set"
// remains distinguishable.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
