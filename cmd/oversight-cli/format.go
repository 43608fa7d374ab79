package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode json", err)
	}
}

// formatTable prints headers, a dash separator, and rows with columns
// padded to the widest cell. Trailing whitespace is trimmed per line.
func formatTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	fmt.Println(renderRow(headers, widths))

	sep := make([]string, len(headers))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	fmt.Println(renderRow(sep, widths))

	for _, row := range rows {
		fmt.Println(renderRow(row, widths))
	}
}

func renderRow(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cell)
		if i < len(widths) && len(cell) < widths[i] {
			b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// output renders v according to the --format flag. Commands with a real
// table rendering call formatTable themselves; for the rest, table falls
// back to JSON.
func output(v any, quietVal string) {
	switch flagFmt {
	case "quiet":
		fmt.Println(quietVal)
	default:
		formatJSON(v)
	}
}
