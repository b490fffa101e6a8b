package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const tabWidth = 4

// WrapText wraps text to maxWidth runes per line, breaking on whitespace when
// it can and inside a word when it must. Newlines in text are kept. Tabs
// become spaces and carriage returns are dropped so that widths stay honest.
func WrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{}
	}

	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth))

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if utf8.RuneCountInString(line) <= maxWidth {
			result = append(result, line)
			continue
		}
		result = append(result, wrapLine(line, maxWidth)...)
	}
	return result
}

// wrapLine wraps a single overlong line. Runs of whitespace collapse to one
// space at the join points.
func wrapLine(line string, maxWidth int) []string {
	var result []string
	var current strings.Builder
	width := 0

	flush := func() {
		result = append(result, current.String())
		current.Reset()
		width = 0
	}

	for _, word := range splitWords(line) {
		runes := []rune(word)

		if len(runes) > maxWidth {
			if width > 0 {
				flush()
			}
			for len(runes) > maxWidth {
				result = append(result, string(runes[:maxWidth]))
				runes = runes[maxWidth:]
			}
			current.WriteString(string(runes))
			width = len(runes)
			continue
		}

		needed := len(runes)
		if width > 0 {
			needed++
		}
		if width+needed > maxWidth {
			flush()
		} else if width > 0 {
			current.WriteByte(' ')
			width++
		}
		current.WriteString(word)
		width += len(runes)
	}

	if width > 0 {
		flush()
	}
	return result
}

// splitWords splits text on whitespace
func splitWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

// truncate shortens s to at most width runes, marking the cut with an
// ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

// oneLine flattens s for a single-row preview.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
