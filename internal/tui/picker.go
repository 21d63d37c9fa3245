package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/egoavara/repo-upgrade/internal/git"
	"github.com/egoavara/repo-upgrade/internal/i18n"
)

// PickerItem is one repository offered by the picker
type PickerItem struct {
	Name     string
	URL      string
	Path     string
	Version  string
	Latest   string
	UpToDate bool
	Selected bool
}

// PickResult holds the result of a picker session
type PickResult struct {
	Names     []string
	Cancelled bool
}

// PickerModel is the bubbletea model for choosing repositories to upgrade
type PickerModel struct {
	items         []PickerItem
	filteredItems []int
	cursor        int
	width         int
	height        int
	searchInput   textinput.Model
	quitting      bool
	confirmed     bool
}

// NewPickerModel creates a picker over items
func NewPickerModel(items []PickerItem) PickerModel {
	ti := textinput.New()
	ti.Placeholder = i18n.T("picker.filter", nil)
	ti.CharLimit = 50
	ti.Width = 30

	m := PickerModel{
		items:       append([]PickerItem(nil), items...),
		searchInput: ti,
	}
	m.applyFilter()
	return m
}

func (m PickerModel) Init() tea.Cmd {
	return nil
}

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m PickerModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		// If search has text, clear it; otherwise quit
		if m.searchInput.Value() != "" {
			m.searchInput.SetValue("")
			m.applyFilter()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down":
		if m.cursor < len(m.filteredItems)-1 {
			m.cursor++
		}

	case "tab":
		if idx, ok := m.current(); ok {
			m.items[idx].Selected = !m.items[idx].Selected
		}

	case "ctrl+a":
		for i := range m.items {
			m.items[i].Selected = !m.items[i].UpToDate
		}

	case "enter":
		if len(m.selectedNames()) == 0 {
			idx, ok := m.current()
			if !ok {
				return m, nil
			}
			m.items[idx].Selected = true
		}
		m.confirmed = true
		m.quitting = true
		return m, tea.Quit

	case "backspace":
		val := m.searchInput.Value()
		if len(val) > 0 {
			m.searchInput.SetValue(val[:len(val)-1])
			m.applyFilter()
		}

	default:
		// Any other printable character goes to search
		if len(msg.String()) == 1 && msg.String()[0] >= 32 && msg.String()[0] < 127 {
			m.searchInput.SetValue(m.searchInput.Value() + msg.String())
			m.applyFilter()
		}
	}

	return m, nil
}

func (m *PickerModel) applyFilter() {
	query := strings.ToLower(m.searchInput.Value())
	m.filteredItems = nil

	if query == "" {
		for i := range m.items {
			m.filteredItems = append(m.filteredItems, i)
		}
	} else {
		searchables := make([]string, len(m.items))
		for i, item := range m.items {
			searchables[i] = strings.ToLower(item.Name + " " + item.URL)
		}
		for _, match := range fuzzy.Find(query, searchables) {
			m.filteredItems = append(m.filteredItems, match.Index)
		}
	}

	if m.cursor >= len(m.filteredItems) {
		m.cursor = max(0, len(m.filteredItems)-1)
	}
}

// current returns the index into items under the cursor
func (m PickerModel) current() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.filteredItems) {
		return -1, false
	}
	return m.filteredItems[m.cursor], true
}

func (m PickerModel) selectedNames() []string {
	var names []string
	for _, item := range m.items {
		if item.Selected {
			names = append(names, item.Name)
		}
	}
	return names
}

// Result returns the outcome of the session
func (m PickerModel) Result() PickResult {
	if !m.confirmed {
		return PickResult{Cancelled: true}
	}
	return PickResult{Names: m.selectedNames()}
}

func (m PickerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(i18n.T("picker.header", map[string]any{"Count": len(m.items)})))
	b.WriteString("\n")

	listWidth := 40
	previewWidth := max(30, m.width-listWidth-6)
	listHeight := max(5, m.height-8)

	var listLines []string
	for i, idx := range m.filteredItems {
		listLines = append(listLines, m.renderItem(i, m.items[idx]))
	}

	start := 0
	if m.cursor >= listHeight {
		start = m.cursor - listHeight + 1
	}
	end := min(start+listHeight, len(listLines))

	visibleList := strings.Join(listLines[start:end], "\n")

	listBox := lipgloss.NewStyle().Width(listWidth).Render(visibleList)
	previewBox := previewStyle.Width(previewWidth).Height(listHeight).Render(m.renderPreview())

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, listBox, "  ", previewBox))
	b.WriteString("\n\n")

	if query := m.searchInput.Value(); query != "" {
		b.WriteString("> " + query + "_")
	} else {
		b.WriteString(helpStyle.Render("> " + i18n.T("picker.filter", nil)))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(i18n.T("picker.help", nil)))

	return b.String()
}

func (m PickerModel) renderItem(idx int, item PickerItem) string {
	cursor := "  "
	if idx == m.cursor {
		cursor = "> "
	}

	checkbox := "[ ]"
	if item.Selected {
		checkbox = "[x]"
	}

	text := fmt.Sprintf("%s%s %s", cursor, checkbox, item.Name)
	switch {
	case idx == m.cursor:
		return selectedStyle.Render(text)
	case item.UpToDate:
		return upToDateStyle.Render(text)
	default:
		return behindStyle.Render(text)
	}
}

func (m PickerModel) renderPreview() string {
	idx, ok := m.current()
	if !ok {
		return i18n.T("picker.empty", nil)
	}
	item := m.items[idx]

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Name: %s\n", item.Name))
	if item.URL != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", item.URL))
	}
	if item.Path != "" {
		b.WriteString(fmt.Sprintf("Path: %s\n", item.Path))
	}
	b.WriteString(fmt.Sprintf("Installed: %s\n", git.ShortCommit(item.Version)))
	if item.Latest != "" {
		b.WriteString(fmt.Sprintf("Latest: %s\n", git.ShortCommit(item.Latest)))
	}
	b.WriteString("\n")
	if item.UpToDate {
		b.WriteString(upToDateStyle.Render(i18n.T("list.upToDate", nil)))
	} else {
		b.WriteString(behindStyle.Render(i18n.T("list.behind", nil)))
	}
	return b.String()
}

// RunPicker launches the interactive repository picker
func RunPicker(items []PickerItem) (*PickResult, error) {
	p := tea.NewProgram(NewPickerModel(items), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	result := finalModel.(PickerModel).Result()
	return &result, nil
}
