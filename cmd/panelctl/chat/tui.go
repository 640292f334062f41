package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/panelctl/pkg/chat"
	"github.com/papercomputeco/panelctl/pkg/panel"
	"github.com/papercomputeco/panelctl/pkg/transcript"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

const notConfiguredBanner = "AI chat is not configured. Ask an administrator to set an API key in the panel's AI settings."

// chromeHeight is the number of lines around the transcript viewport:
// header, rule, status, input, help and the blank line between them.
const chromeHeight = 6

type gateState int

const (
	gatePending gateState = iota
	gateOpen
	gateClosed
)

var (
	chatTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	chatMutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chatAccentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	chatDividerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	chatBannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true).Padding(0, 1)
	chatCursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	chatErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	chatRoleUserStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	chatRoleAsstStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
)

type chatKeyMap struct {
	Send    key.Binding
	Stop    key.Binding
	New     key.Binding
	List    key.Binding
	Up      key.Binding
	Down    key.Binding
	Scroll  key.Binding
	Quit    key.Binding
	Pick    key.Binding
	Dismiss key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Stop, k.New, k.List, k.Scroll, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Stop, k.Scroll}, {k.New, k.List, k.Quit}}
}

// pickerKeyMap is the help shown while the conversation list is open.
type pickerKeyMap struct {
	chatKeyMap
}

func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Pick, k.Dismiss, k.Quit}
}

func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Pick}, {k.Dismiss, k.Quit}}
}

func defaultKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Stop:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop")),
		New:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
		List:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "conversations")),
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Pick:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Dismiss: key.NewBinding(key.WithKeys("esc", "ctrl+l"), key.WithHelp("esc", "back")),
	}
}

// conversationLister is the part of the panel client the picker needs.
type conversationLister interface {
	GetAIConfig(ctx context.Context) (*panel.AIConfig, error)
	ListConversations(ctx context.Context) ([]panel.ConversationSummary, error)
}

type chatModel struct {
	ctx     context.Context
	session *chat.Session
	panel   conversationLister
	openID  int64

	snapshot transcript.Snapshot
	state    chat.State
	gate     gateState
	aiConfig *panel.AIConfig
	banner   string
	notice   string
	failed   bool

	picker        bool
	conversations []panel.ConversationSummary
	cursor        int

	width    int
	height   int
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	keys     chatKeyMap
	help     help.Model
}

type transcriptMsg transcript.Snapshot

type stateMsg chat.State

type conversationsChangedMsg struct{}

type aiConfigLoadedMsg struct {
	config *panel.AIConfig
	err    error
}

type conversationsLoadedMsg struct {
	conversations []panel.ConversationSummary
	err           error
}

type sendDoneMsg struct {
	result chat.Result
	err    error
}

type navigatedMsg struct {
	err error
}

func runChatTUI(ctx context.Context, client *panel.Client, sc chat.Config, conversationID int64) error {
	var program *bubbletea.Program

	sc.Hooks = chat.Hooks{
		OnTranscript: func(snap transcript.Snapshot) {
			program.Send(transcriptMsg(snap))
		},
		OnStateChange: func(state chat.State) {
			program.Send(stateMsg(state))
		},
		OnConversationsChanged: func() {
			program.Send(conversationsChangedMsg{})
		},
	}

	session, err := chat.NewSession(sc)
	if err != nil {
		return err
	}

	model := newChatModel(ctx, session, client, conversationID)
	program = bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err = program.Run()
	session.Cancel()
	if errors.Is(err, bubbletea.ErrProgramKilled) {
		return nil
	}
	return err
}

func newChatModel(ctx context.Context, session *chat.Session, lister conversationLister, conversationID int64) chatModel {
	input := textinput.New()
	input.Prompt = "› "
	input.Placeholder = "Ask the assistant…"
	input.Focus()

	return chatModel{
		ctx:      ctx,
		session:  session,
		panel:    lister,
		openID:   conversationID,
		snapshot: session.Transcript(),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(chatAccentStyle)),
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	cmds := []bubbletea.Cmd{textinput.Blink, loadAIConfigCmd(m.ctx, m.panel)}
	if m.openID != 0 {
		cmds = append(cmds, openConversationCmd(m.ctx, m.session, m.openID))
	}
	return bubbletea.Batch(cmds...)
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.help.Width = msg.Width
		m.refreshTranscript()
		return m, nil
	case aiConfigLoadedMsg:
		m.aiConfig = msg.config
		switch {
		case msg.err == nil:
			m.gate = gateOpen
			m.banner = ""
		case errors.Is(msg.err, ErrNotConfigured):
			m.gate = gateClosed
			m.banner = notConfiguredBanner
		default:
			m.gate = gateClosed
			m.banner = "Could not reach the panel: " + msg.err.Error()
		}
		return m, nil
	case transcriptMsg:
		m.snapshot = transcript.Snapshot(msg)
		m.refreshTranscript()
		return m, nil
	case stateMsg:
		wasBusy := m.state.Busy()
		m.state = chat.State(msg)
		if m.state.Busy() && !wasBusy {
			m.notice = ""
			m.failed = false
			return m, m.spinner.Tick
		}
		return m, nil
	case spinner.TickMsg:
		if !m.state.Busy() {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshTranscript()
		return m, cmd
	case conversationsChangedMsg:
		m.notice = fmt.Sprintf("Saved as conversation #%d", m.session.Transcript().Conversation.ID)
		return m, loadConversationsCmd(m.ctx, m.panel)
	case conversationsLoadedMsg:
		if msg.err != nil {
			m.notice = "Could not load conversations: " + msg.err.Error()
			m.failed = true
			return m, nil
		}
		m.conversations = msg.conversations
		m.cursor = clamp(m.cursor, len(m.conversations)-1)
		return m, nil
	case sendDoneMsg:
		m.notice, m.failed = sendNotice(msg.result, msg.err)
		return m, nil
	case navigatedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			m.failed = true
			return m, nil
		}
		m.picker = false
		m.notice = ""
		m.failed = false
		return m, nil
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.session.Cancel()
		return m, bubbletea.Quit
	}

	if m.picker {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Stop):
		if m.session.Cancel() {
			m.notice = "Stopping…"
		}
		return m, nil
	case key.Matches(msg, m.keys.New):
		m.notice = "Starting a new conversation…"
		return m, newConversationCmd(m.ctx, m.session)
	case key.Matches(msg, m.keys.List):
		m.picker = true
		return m, loadConversationsCmd(m.ctx, m.panel)
	case key.Matches(msg, m.keys.Scroll):
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Send):
		return m.submit()
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) handlePickerKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Dismiss):
		m.picker = false
	case key.Matches(msg, m.keys.Down):
		m.cursor = clamp(m.cursor+1, len(m.conversations)-1)
	case key.Matches(msg, m.keys.Up):
		m.cursor = clamp(m.cursor-1, len(m.conversations)-1)
	case key.Matches(msg, m.keys.Pick):
		if len(m.conversations) == 0 {
			return m, nil
		}
		id := m.conversations[m.cursor].ID
		m.notice = fmt.Sprintf("Opening conversation #%d…", id)
		return m, openConversationCmd(m.ctx, m.session, id)
	}
	return m, nil
}

// submit sends the input unless the gate is closed or a reply is still
// streaming. The session enforces single-flight on its own; checking here
// keeps the typed text when the send would be refused.
func (m chatModel) submit() (bubbletea.Model, bubbletea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	switch {
	case m.gate == gatePending:
		m.notice = "Still checking the panel's AI configuration…"
		return m, nil
	case m.gate == gateClosed:
		m.notice = "Chat is unavailable"
		m.failed = true
		return m, nil
	case m.session.State().Busy():
		m.notice = "Wait for the reply to finish or press esc to stop it"
		return m, nil
	}

	m.input.Reset()
	return m, sendCmd(m.ctx, m.session, text)
}

func (m *chatModel) refreshTranscript() {
	m.viewport.SetContent(renderTranscript(m.snapshot, m.viewport.Width, m.spinner.View()))
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	var b strings.Builder

	b.WriteString(renderHeaderLine(m.width, chatTitleStyle.Render("panelctl chat")+"  "+m.conversationLabel(), m.modelLabel()))
	b.WriteString("\n")
	b.WriteString(renderRule(m.width))
	b.WriteString("\n")

	switch {
	case m.banner != "":
		b.WriteString(padLines(chatBannerStyle.Render(ansi.Truncate(m.banner, max(m.width-2, 10), "…")), m.viewport.Height))
	case m.picker:
		b.WriteString(padLines(m.viewPicker(), m.viewport.Height))
	default:
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	b.WriteString(m.viewStatus())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.picker {
		b.WriteString(chatMutedStyle.Render(m.help.View(pickerKeyMap{m.keys})))
	} else {
		b.WriteString(chatMutedStyle.Render(m.help.View(m.keys)))
	}

	return b.String()
}

func (m chatModel) conversationLabel() string {
	conv := m.snapshot.Conversation
	if conv.ID == 0 {
		return chatMutedStyle.Render("new conversation")
	}
	label := fmt.Sprintf("#%d", conv.ID)
	if conv.Title != "" {
		label += " " + conv.Title
	}
	return chatAccentStyle.Render(ansi.Truncate(label, 48, "…"))
}

func (m chatModel) modelLabel() string {
	if m.aiConfig == nil || m.aiConfig.Model == "" {
		return ""
	}
	return chatMutedStyle.Render(m.aiConfig.Model)
}

func (m chatModel) viewStatus() string {
	switch {
	case m.state == chat.StateSending:
		return m.spinner.View() + chatMutedStyle.Render(" sending…")
	case m.state == chat.StateStreaming:
		return m.spinner.View() + chatMutedStyle.Render(" streaming… esc to stop")
	case m.failed:
		return chatErrorStyle.Render(m.notice)
	default:
		return chatMutedStyle.Render(m.notice)
	}
}

func (m chatModel) viewPicker() string {
	if len(m.conversations) == 0 {
		return chatMutedStyle.Render("No stored conversations.")
	}

	width := m.width
	if width <= 0 {
		width = 80
	}

	start, end := visibleRange(len(m.conversations), m.cursor, max(m.viewport.Height, 1))
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		conv := m.conversations[i]
		row := fmt.Sprintf("#%-6d %-16s %s", conv.ID, conv.UpdatedAt.Local().Format("Jan 02 15:04"), conv.Title)
		row = ansi.Truncate(row, width-2, "…")
		if i == m.cursor {
			lines = append(lines, chatCursorStyle.Render("› "+row))
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return strings.Join(lines, "\n")
}

func renderTranscript(snap transcript.Snapshot, width int, spinnerView string) string {
	msgs := snap.Conversation.Messages
	if len(msgs) == 0 {
		return chatMutedStyle.Render("Ask the assistant anything. Replies stream in as they are written.")
	}

	if width <= 0 {
		width = 80
	}
	body := lipgloss.NewStyle().Width(max(width-2, 10)).PaddingLeft(2)

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		content := msg.Content
		if msg.ID == snap.PendingID && content == "" {
			content = spinnerView
		}
		blocks = append(blocks, roleLabel(msg.Role)+"\n"+body.Render(content))
	}
	return strings.Join(blocks, "\n\n")
}

func roleLabel(role transcript.Role) string {
	if role == transcript.RoleUser {
		return chatRoleUserStyle.Render("you")
	}
	return chatRoleAsstStyle.Render("assistant")
}

func sendNotice(res chat.Result, err error) (string, bool) {
	switch {
	case errors.Is(err, chat.ErrBusy):
		return "Wait for the reply to finish or press esc to stop it", false
	case err != nil:
		return err.Error(), true
	}

	switch res.State {
	case chat.StateCancelled:
		return "Stopped", false
	case chat.StateFailed:
		return "The reply failed", true
	}
	return "", false
}

func loadAIConfigCmd(ctx context.Context, lister conversationLister) bubbletea.Cmd {
	return func() bubbletea.Msg {
		cfg, err := lister.GetAIConfig(ctx)
		if err == nil && !cfg.Configured() {
			err = ErrNotConfigured
		}
		return aiConfigLoadedMsg{config: cfg, err: err}
	}
}

func loadConversationsCmd(ctx context.Context, lister conversationLister) bubbletea.Cmd {
	return func() bubbletea.Msg {
		convs, err := lister.ListConversations(ctx)
		return conversationsLoadedMsg{conversations: convs, err: err}
	}
}

// The following commands block on the session, so they run on bubbletea's
// command goroutines and never on the update loop.

func sendCmd(ctx context.Context, session *chat.Session, text string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		res, err := session.Send(ctx, text)
		return sendDoneMsg{result: res, err: err}
	}
}

func newConversationCmd(ctx context.Context, session *chat.Session) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return navigatedMsg{err: session.NewConversation(ctx)}
	}
}

func openConversationCmd(ctx context.Context, session *chat.Session, id int64) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return navigatedMsg{err: session.OpenConversation(ctx, id)}
	}
}

func clamp(value, upper int) int {
	if upper < 0 {
		return 0
	}
	return min(max(value, 0), upper)
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := lineWidth - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	return chatDividerStyle.Render(strings.Repeat("─", lineWidth))
}

// padLines pads block with empty lines to height so the footer stays put.
func padLines(block string, height int) string {
	lines := strings.Split(block, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= size {
		return 0, total
	}
	start := max(cursor-size/2, 0)
	end := start + size
	if end > total {
		end = total
		start = end - size
	}
	return start, end
}
