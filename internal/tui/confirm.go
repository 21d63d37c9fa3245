package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

// ConfirmOption represents one answer of a confirmation prompt
type ConfirmOption struct {
	Value       bool
	Label       string
	Description string
}

// ConfirmModel is the bubbletea model for a yes/no confirmation
type ConfirmModel struct {
	message   string
	options   []ConfirmOption
	cursor    int
	selected  bool
	quitting  bool
	confirmed bool
}

// NewConfirmModel creates a confirmation model for message.
// The cursor starts on "no" since the prompted actions are destructive.
func NewConfirmModel(message string) ConfirmModel {
	options := []ConfirmOption{
		{
			Value:       true,
			Label:       i18n.T("confirm.option.yes", nil),
			Description: i18n.T("confirm.option.yes.desc", nil),
		},
		{
			Value:       false,
			Label:       i18n.T("confirm.option.no", nil),
			Description: i18n.T("confirm.option.no.desc", nil),
		},
	}

	return ConfirmModel{
		message: message,
		options: options,
		cursor:  1,
	}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, done := m.update(msg)
	if done {
		return m, tea.Quit
	}
	return m, nil
}

// update applies a key press and reports whether the prompt is finished.
// It is shared with UpgradeModel, which hosts the prompt inline.
func (m ConfirmModel) update(msg tea.Msg) (ConfirmModel, bool) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, false
	}

	switch key.String() {
	case "ctrl+c", "q", "esc", "n":
		m.selected = false
		m.confirmed = true
		m.quitting = true
		return m, true

	case "y":
		m.selected = true
		m.confirmed = true
		m.quitting = true
		return m, true

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}

	case "enter", " ":
		m.selected = m.options[m.cursor].Value
		m.confirmed = true
		m.quitting = true
		return m, true
	}

	return m, false
}

func (m ConfirmModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.message))
	b.WriteString("\n\n")

	for i, opt := range m.options {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		var labelLine string
		var descLine string

		if i == m.cursor {
			labelLine = selectedStyle.Render(fmt.Sprintf("%s%s", cursor, opt.Label))
			descLine = descSelectedStyle.Render(opt.Description)
		} else {
			labelLine = optionStyle.Render(fmt.Sprintf("%s%s", cursor, opt.Label))
			descLine = descStyle.Render(opt.Description)
		}

		b.WriteString(labelLine)
		b.WriteString("\n")
		b.WriteString(descLine)
		b.WriteString("\n\n")
	}

	help := helpStyle.Render("↑/↓: " + i18n.T("confirm.help.move", nil) + " | Enter: " + i18n.T("confirm.help.select", nil))
	b.WriteString(help)

	return modalStyle.Render(b.String())
}

// GetSelected returns whether user selected yes
func (m ConfirmModel) GetSelected() bool {
	return m.selected
}

// IsConfirmed returns whether the user answered
func (m ConfirmModel) IsConfirmed() bool {
	return m.confirmed
}

// RunConfirm launches an interactive confirmation
func RunConfirm(message string) (bool, error) {
	p := tea.NewProgram(NewConfirmModel(message))

	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}

	m := finalModel.(ConfirmModel)
	return m.IsConfirmed() && m.GetSelected(), nil
}

var (
	_ upgrade.Prompter = ConfirmPrompter{}
	_ upgrade.Prompter = StaticPrompter{}
	_ upgrade.Prompter = (*LinePrompter)(nil)
)

// ConfirmPrompter asks with a standalone bubbletea program
type ConfirmPrompter struct{}

func (ConfirmPrompter) Confirm(ctx context.Context, message string, onConfirmed func(context.Context) error) error {
	ok, err := RunConfirm(message)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return onConfirmed(ctx)
}

// StaticPrompter answers every prompt with Accept
type StaticPrompter struct {
	Accept bool
}

func (p StaticPrompter) Confirm(ctx context.Context, _ string, onConfirmed func(context.Context) error) error {
	if !p.Accept {
		return nil
	}
	return onConfirmed(ctx)
}

// LinePrompter asks on a plain line-oriented terminal
type LinePrompter struct {
	In  io.Reader
	Out io.Writer
}

// Confirm prints message and reads the answer. Only an explicit yes
// accepts.
func (p *LinePrompter) Confirm(ctx context.Context, message string, onConfirmed func(context.Context) error) error {
	fmt.Fprint(p.Out, message+" [y/N] ")

	reader := bufio.NewReader(p.In)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return nil
	}

	input = strings.TrimSpace(strings.ToLower(input))
	if input != "y" && input != "yes" {
		return nil
	}
	return onConfirmed(ctx)
}
