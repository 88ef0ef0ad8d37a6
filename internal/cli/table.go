package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mwilhelmy/recall/internal/memory"
	"golang.org/x/term"
)

const fallbackWidth = 100

var (
	headerStyle = lipgloss.NewStyle().Foreground(defaultTheme.Status).Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// terminalWidth returns the current terminal width, or a fixed fallback
// when stdout is not a terminal (pipes, tests).
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallbackWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

// renderResultTable formats search results as a four-column table sized
// to the terminal. Long descriptions are truncated so each result stays
// on one row.
func renderResultTable(results []memory.SearchResult, width int) string {
	if len(results) == 0 {
		return "No results above the relevance threshold.\n"
	}

	// Fixed budget for title, year and relevance; the description gets
	// whatever is left.
	descWidth := width - 46
	if descWidth < 20 {
		descWidth = 20
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(defaultTheme.Hint)).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("Title", "Description", "Year", "Relevance")

	for _, r := range results {
		t.Row(
			truncate(r.Record.ExternalID, 24),
			truncate(r.Record.Description, descWidth),
			r.Record.AdditionalMetadata,
			fmt.Sprintf("%.4f", r.Relevance),
		)
	}

	return t.Render() + "\n"
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
