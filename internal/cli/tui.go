package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gunho/artifact/pkg/theme"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// ThemeListModel is the bubbletea model for interactive theme selection in
// the render command.
type ThemeListModel struct {
	Themes   []string
	Cursor   int
	Selected string
	aborted  bool
}

// NewThemeListModel creates a theme list model over all known palettes.
func NewThemeListModel() ThemeListModel {
	return ThemeListModel{Themes: theme.Names()}
}

func (m ThemeListModel) Init() tea.Cmd {
	return nil
}

func (m ThemeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Themes)-1 {
				m.Cursor++
			}
		case "enter":
			m.Selected = m.Themes[m.Cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ThemeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Theme"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	for i, name := range m.Themes {
		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		b.WriteString(cursor + style.Render(name) + "\n")
	}
	return b.String()
}

// pickTheme runs the interactive theme picker and returns the chosen
// palette name, or "" when the user aborts.
func pickTheme() (string, error) {
	final, err := tea.NewProgram(NewThemeListModel()).Run()
	if err != nil {
		return "", fmt.Errorf("theme picker: %w", err)
	}
	m, ok := final.(ThemeListModel)
	if !ok || m.aborted {
		return "", nil
	}
	return m.Selected, nil
}
