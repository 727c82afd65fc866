package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/relay/pkg/upstream"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listHeaderStyle   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// itemBrowserModel - Interactive item browsing
// =============================================================================

// itemBrowserModel is the bubbletea model for scrolling through items.
type itemBrowserModel struct {
	items    []upstream.Item
	cursor   int
	offset   int
	height   int
	selected *upstream.Item
}

func newItemBrowserModel(items []upstream.Item) itemBrowserModel {
	return itemBrowserModel{items: items, height: 15}
}

func (m itemBrowserModel) Init() tea.Cmd {
	return nil
}

func (m itemBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "home", "g":
			m.cursor, m.offset = 0, 0
		case "end", "G":
			m.cursor = len(m.items) - 1
			m.offset = max(m.cursor-m.height+1, 0)
		case "enter":
			item := m.items[m.cursor]
			m.selected = &item
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
		if m.cursor >= m.offset+m.height {
			m.offset = m.cursor - m.height + 1
		}
	}
	return m, nil
}

func (m itemBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Items"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.items))
	b.WriteString(renderItemTable(m.items, m.cursor, m.offset, end))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.items))))

	return b.String()
}

// renderItemTable renders items[offset:end] as a bordered table. cursor is
// the absolute index to highlight, or -1 for none.
func renderItemTable(items []upstream.Item, cursor, offset, end int) string {
	rows := make([][]string, 0, end-offset)
	for i := offset; i < end; i++ {
		marker := "  "
		if i == cursor {
			marker = "▸ "
		}
		rows = append(rows, []string{marker, strconv.Itoa(items[i].ID), items[i].Name})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Name").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return listHeaderStyle
			}
			if offset+row == cursor {
				return listSelectedStyle
			}
			if col == 1 {
				return StyleNumber
			}
			return StyleValue
		})
	return t.Render()
}
