package tui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egoavara/repo-upgrade/internal/progress"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmModelDefaultsToNo(t *testing.T) {
	m := NewConfirmModel("reset?")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := next.(ConfirmModel)
	assert.NotNil(t, cmd)
	assert.True(t, got.IsConfirmed())
	assert.False(t, got.GetSelected())
}

func TestConfirmModelSelectYes(t *testing.T) {
	m := NewConfirmModel("reset?")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, next.(ConfirmModel).GetSelected())

	next, _ = NewConfirmModel("reset?").Update(runes("y"))
	assert.True(t, next.(ConfirmModel).GetSelected())

	next, _ = NewConfirmModel("reset?").Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, next.(ConfirmModel).GetSelected())
}

func TestConfirmModelView(t *testing.T) {
	view := NewConfirmModel("reset everything?").View()
	assert.Contains(t, view, "reset everything?")
	assert.Contains(t, view, "confirm.option.no")
}

func TestStaticPrompter(t *testing.T) {
	calls := 0
	fn := func(context.Context) error { calls++; return nil }

	require.NoError(t, StaticPrompter{Accept: false}.Confirm(context.Background(), "x", fn))
	assert.Equal(t, 0, calls)
	require.NoError(t, StaticPrompter{Accept: true}.Confirm(context.Background(), "x", fn))
	assert.Equal(t, 1, calls)
}

func TestLinePrompter(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"\n", false},
		{"n\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		called := false
		p := &LinePrompter{In: strings.NewReader(tt.input), Out: &out}
		err := p.Confirm(context.Background(), "Continue?", func(context.Context) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, called, "input %q", tt.input)
		assert.Equal(t, "Continue? [y/N] ", out.String())
	}
}

func pickerItems() []PickerItem {
	return []PickerItem{
		{Name: "discourse", URL: "https://github.com/discourse/discourse.git", UpToDate: false},
		{Name: "docker_manager", URL: "https://github.com/discourse/docker_manager.git", UpToDate: true},
		{Name: "discourse-solved", URL: "https://github.com/discourse/discourse-solved.git", UpToDate: false},
	}
}

func TestPickerEnterPicksCursor(t *testing.T) {
	var m tea.Model = NewPickerModel(pickerItems())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.NotNil(t, cmd)
	assert.Equal(t, PickResult{Names: []string{"docker_manager"}}, m.(PickerModel).Result())
}

func TestPickerFilterAndToggle(t *testing.T) {
	var m tea.Model = NewPickerModel(pickerItems())
	for _, r := range "solved" {
		m, _ = m.Update(runes(string(r)))
	}
	assert.Equal(t, []int{2}, m.(PickerModel).filteredItems)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.(PickerModel).filteredItems, 3)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"discourse-solved"}, m.(PickerModel).Result().Names)
}

func TestPickerSelectAllBehind(t *testing.T) {
	var m tea.Model = NewPickerModel(pickerItems())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"discourse", "discourse-solved"}, m.(PickerModel).Result().Names)
}

func TestPickerCancel(t *testing.T) {
	var m tea.Model = NewPickerModel(pickerItems())
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotNil(t, cmd)
	assert.True(t, m.(PickerModel).Result().Cancelled)
}

type fakeSession struct {
	mu       sync.Mutex
	running  bool
	upToDate bool
	starts   int
	startErr error
	resetErr error
	state    upgrade.State
}

func (s *fakeSession) Title() string        { return "Upgrade All" }
func (s *fakeSession) State() upgrade.State { return s.state }
func (s *fakeSession) IsRunning() bool      { return s.running }
func (s *fakeSession) IsUpToDate() bool     { return s.upToDate }
func (s *fakeSession) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return s.startErr
}
func (s *fakeSession) ResetUpgrade(context.Context) error {
	return s.resetErr
}

func TestUpgradeModelStart(t *testing.T) {
	session := &fakeSession{}
	var m tea.Model = NewUpgradeModel(context.Background(), session)

	m, cmd := m.Update(runes("s"))
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.Equal(t, 1, session.starts)
	assert.Empty(t, m.(UpgradeModel).notice)
}

func TestUpgradeModelStartRefused(t *testing.T) {
	session := &fakeSession{startErr: assert.AnError}
	var m tea.Model = NewUpgradeModel(context.Background(), session)

	m, cmd := m.Update(runes("s"))
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())
	assert.Contains(t, m.(UpgradeModel).notice, assert.AnError.Error())
}

func TestUpgradeModelStartGuards(t *testing.T) {
	session := &fakeSession{running: true}
	var m tea.Model = NewUpgradeModel(context.Background(), session)

	m, cmd := m.Update(runes("s"))
	assert.Nil(t, cmd)
	assert.Equal(t, "upgrade.alreadyRunning", m.(UpgradeModel).notice)

	session.running, session.upToDate = false, true
	m, cmd = m.Update(runes("s"))
	assert.Nil(t, cmd)
	assert.Equal(t, "upgrade.upToDate", m.(UpgradeModel).notice)
	assert.Equal(t, 0, session.starts)
}

func TestUpgradeModelRendersState(t *testing.T) {
	var m tea.Model = NewUpgradeModel(context.Background(), &fakeSession{})
	m, _ = m.Update(StateMsg{Output: "*** Upgrading discourse\n", Status: progress.StatusRunning, Percent: 40})

	view := m.View()
	assert.Contains(t, view, "Upgrade All")
	assert.Contains(t, view, "upgrade.status.running")
	assert.Contains(t, view, "*** Upgrading discourse")
}

func TestUpgradeModelResetError(t *testing.T) {
	session := &fakeSession{resetErr: assert.AnError}
	var m tea.Model = NewUpgradeModel(context.Background(), session)

	m, cmd := m.Update(runes("r"))
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())
	assert.Contains(t, m.(UpgradeModel).notice, assert.AnError.Error())
}

func TestUpgradeModelInlineConfirm(t *testing.T) {
	var m tea.Model = NewUpgradeModel(context.Background(), &fakeSession{})
	answer := make(chan bool, 1)

	m, _ = m.Update(confirmRequestMsg{message: "really reset?", answer: answer})
	assert.Contains(t, m.View(), "really reset?")

	// Keys go to the prompt, not the view
	m, _ = m.Update(runes("s"))
	m, _ = m.Update(runes("y"))
	assert.True(t, <-answer)
	assert.Nil(t, m.(UpgradeModel).confirm)
}

func TestUpgradeModelSecondConfirmDeclined(t *testing.T) {
	var m tea.Model = NewUpgradeModel(context.Background(), &fakeSession{})
	first := make(chan bool, 1)
	second := make(chan bool, 1)

	m, _ = m.Update(confirmRequestMsg{message: "a", answer: first})
	_, _ = m.Update(confirmRequestMsg{message: "b", answer: second})
	assert.False(t, <-second)
}

func TestViewPrompterWithoutProgram(t *testing.T) {
	p := &ViewPrompter{}
	called := false
	err := p.Confirm(context.Background(), "x", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestBarPercent(t *testing.T) {
	assert.Equal(t, 0.0, barPercent(-5))
	assert.Equal(t, 0.5, barPercent(50))
	assert.Equal(t, 1.0, barPercent(250))
}

func TestPlainPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewPlainPrinter(&out)

	p.Update(upgrade.State{Output: "line 1\n", Status: progress.StatusRunning})
	p.Update(upgrade.State{Output: "line 1\nline 2\n", Status: progress.StatusRunning, Percent: 50})
	p.Update(upgrade.State{Output: "line 1\nline 2\n", Status: progress.StatusComplete, Percent: 100})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusComplete, status)

	assert.Equal(t,
		"line 1\nupgrade.status.running\nline 2\n[ 50%]\n[100%]\nupgrade.status.complete\n",
		out.String())
}

func TestPlainPrinterAfterReset(t *testing.T) {
	var out bytes.Buffer
	p := NewPlainPrinter(&out)

	p.Update(upgrade.State{Output: "old\n", Status: progress.StatusFailed})
	p.Update(upgrade.State{})
	p.Update(upgrade.State{Output: "new\n"})

	assert.Equal(t, "old\nupgrade.status.failed\nnew\n", out.String())
}

func TestSpinner(t *testing.T) {
	var out safeBuffer
	s := NewSpinner(&out, "discourse")
	s.Start()
	s.Stop(true)
	assert.True(t, strings.HasSuffix(out.String(), "✓ discourse\n"))
}

type safeBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *safeBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
