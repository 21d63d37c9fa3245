package tui

import (
	"context"
	"strings"
	"sync"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/progress"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

// Session is the part of the upgrade coordinator the view drives
type Session interface {
	Title() string
	State() upgrade.State
	IsRunning() bool
	IsUpToDate() bool
	Start(ctx context.Context) error
	ResetUpgrade(ctx context.Context) error
}

var _ Session = (*upgrade.Coordinator)(nil)

// StateMsg carries a coordinator snapshot into the view
type StateMsg upgrade.State

type resetDoneMsg struct{ err error }

type startFailedMsg struct{ err error }

type confirmRequestMsg struct {
	message string
	answer  chan<- bool
}

const (
	defaultWidth     = 80
	defaultLogHeight = 12
)

// UpgradeModel renders one upgrade session: status, progress bar and the
// accumulated log. s starts, r resets and q quits.
type UpgradeModel struct {
	ctx     context.Context
	session Session

	state    upgrade.State
	bar      progressbar.Model
	log      viewport.Model
	notice   string
	width    int
	quitting bool

	// Reset confirmation hosted inline
	confirm *ConfirmModel
	answer  chan<- bool
}

// NewUpgradeModel creates the view for session
func NewUpgradeModel(ctx context.Context, session Session) UpgradeModel {
	bar := progressbar.New(progressbar.WithDefaultGradient())
	bar.Width = defaultWidth - 4

	return UpgradeModel{
		ctx:     ctx,
		session: session,
		state:   session.State(),
		bar:     bar,
		log:     viewport.New(defaultWidth, defaultLogHeight),
		width:   defaultWidth,
	}
}

func (m UpgradeModel) Init() tea.Cmd {
	return nil
}

func (m UpgradeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, msg.Width-4)
		m.log.Width = msg.Width
		m.log.Height = max(3, msg.Height-10)
		return m, nil

	case StateMsg:
		m.state = upgrade.State(msg)
		m.log.SetContent(m.state.Output)
		m.log.GotoBottom()
		return m, nil

	case confirmRequestMsg:
		if m.answer != nil {
			// Only one prompt at a time
			msg.answer <- false
			return m, nil
		}
		c := NewConfirmModel(msg.message)
		m.confirm = &c
		m.answer = msg.answer
		return m, nil

	case startFailedMsg:
		m.notice = failedStyle.Render(msg.err.Error())
		return m, nil

	case resetDoneMsg:
		if msg.err != nil {
			m.notice = failedStyle.Render(msg.err.Error())
		} else {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m UpgradeModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c, done := m.confirm.update(msg)
	if !done {
		m.confirm = &c
		return m, nil
	}
	m.answer <- c.GetSelected()
	if !c.GetSelected() {
		m.notice = i18n.T("reset.cancelled", nil)
	}
	m.confirm = nil
	m.answer = nil
	return m, nil
}

func (m UpgradeModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "s":
		switch {
		case m.session.IsRunning():
			m.notice = i18n.T("upgrade.alreadyRunning", nil)
			return m, nil
		case m.session.IsUpToDate():
			m.notice = i18n.T("upgrade.upToDate", nil)
			return m, nil
		}
		m.notice = ""
		return m, m.startCmd()

	case "r":
		m.notice = ""
		return m, m.resetCmd()
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

// startCmd runs Start off the event loop since it publishes state changes
// back into the program.
func (m UpgradeModel) startCmd() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		if err := session.Start(ctx); err != nil {
			return startFailedMsg{err: err}
		}
		return nil
	}
}

func (m UpgradeModel) resetCmd() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return resetDoneMsg{err: session.ResetUpgrade(ctx)}
	}
}

func (m UpgradeModel) View() string {
	if m.quitting {
		return ""
	}
	if m.confirm != nil {
		return m.confirm.View()
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.session.Title()))
	b.WriteString("\n")
	b.WriteString(statusStyle(m.state.Status).Render(StatusText(m.state.Status)))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(barPercent(m.state.Percent)))
	b.WriteString("\n\n")
	if m.state.Output != "" {
		b.WriteString(m.log.View())
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(i18n.T("upgrade.help", nil)))

	return b.String()
}

// StatusText is the localized description of status
func StatusText(status progress.Status) string {
	return i18n.T("upgrade.status."+status.String(), nil)
}

func barPercent(percent int) float64 {
	return float64(min(100, max(0, percent))) / 100
}

// ViewPrompter asks for confirmation inside a running UpgradeModel
type ViewPrompter struct {
	mu      sync.Mutex
	program *tea.Program
}

var _ upgrade.Prompter = (*ViewPrompter)(nil)

// SetProgram binds the prompter to the program hosting the view
func (p *ViewPrompter) SetProgram(program *tea.Program) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.program = program
}

// Confirm blocks until the user answers inside the view. Without a bound
// program nothing is confirmed.
func (p *ViewPrompter) Confirm(ctx context.Context, message string, onConfirmed func(context.Context) error) error {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()
	if program == nil {
		return nil
	}

	answer := make(chan bool, 1)
	program.Send(confirmRequestMsg{message: message, answer: answer})

	select {
	case ok := <-answer:
		if !ok {
			return nil
		}
		return onConfirmed(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunUpgradeView shows the session until the user quits
func RunUpgradeView(ctx context.Context, coordinator *upgrade.Coordinator, prompter *ViewPrompter) error {
	p := tea.NewProgram(NewUpgradeModel(ctx, coordinator), tea.WithContext(ctx))

	prompter.SetProgram(p)
	coordinator.OnChange(func(state upgrade.State) {
		p.Send(StateMsg(state))
	})
	defer func() {
		coordinator.OnChange(nil)
		prompter.SetProgram(nil)
	}()

	_, err := p.Run()
	return err
}
