package analysis

import (
	"strings"
)

// cellSeparator joins the cells of one table row in Segment.Content.
const cellSeparator = " | "

// FormatTable encodes rows as table segment content: one row per line,
// cells separated by " | ". Line breaks and pipes inside a cell are replaced
// so the layout survives a round trip through ParseTable.
func FormatTable(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			c = strings.ReplaceAll(c, "\r\n", " ")
			c = strings.ReplaceAll(c, "\n", " ")
			c = strings.ReplaceAll(c, "|", "∣")
			cells[i] = strings.TrimSpace(c)
		}
		lines = append(lines, strings.Join(cells, cellSeparator))
	}
	return strings.Join(lines, "\n")
}

// ParseTable splits table segment content into rows of cells. Outer pipes
// of Markdown-style rows are tolerated and separator rows such as
// "|---|:---:|" are skipped. Rows are padded to the widest row.
func ParseTable(content string) [][]string {
	var rows [][]string
	width := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "|") {
			line = line[1:]
		}
		if strings.HasSuffix(line, "|") {
			line = line[:len(line)-1]
		}
		cells := strings.Split(line, "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if isSeparatorRow(cells) {
			continue
		}
		if len(cells) > width {
			width = len(cells)
		}
		rows = append(rows, cells)
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			return false
		}
		if strings.Trim(c, "-:") != "" {
			return false
		}
	}
	return true
}
