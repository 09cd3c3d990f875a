package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

const tableCellMaxWidth = 50
const tableCellEllipsis = "..."

var tableHeaderStyle = lipgloss.NewStyle().Bold(true)

// formatTable lays rows out in columns separated by two spaces. Widths
// are measured on printable runes so styled cells line up.
func formatTable(headers []string, rows [][]string) string {
	normalizedRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		normalizedRow := make([]string, len(row))
		for i, cell := range row {
			normalizedRow[i] = truncateTableCell(cell)
		}
		normalizedRows = append(normalizedRows, normalizedRow)
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = ansi.PrintableRuneWidth(header)
	}
	for _, row := range normalizedRows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			widths[i] = max(widths[i], ansi.PrintableRuneWidth(cell))
		}
	}

	var builder strings.Builder
	writeRow := func(row []string, style func(string) string) {
		for i, cell := range row {
			builder.WriteString(style(cell))
			if i == len(row)-1 {
				builder.WriteByte('\n')
				continue
			}
			padding := widths[i] - ansi.PrintableRuneWidth(cell)
			builder.WriteString(strings.Repeat(" ", padding+2))
		}
	}

	writeRow(headers, func(s string) string { return tableHeaderStyle.Render(s) })
	for _, row := range normalizedRows {
		writeRow(row, func(s string) string { return s })
	}
	return builder.String()
}

func truncateTableCell(value string) string {
	value = normalizeTableCell(value)
	return truncate.StringWithTail(value, tableCellMaxWidth, tableCellEllipsis)
}

func normalizeTableCell(value string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(value)
}
