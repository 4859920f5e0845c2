package diagnose

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const boxWidth = 72

// Render draws a Help record as box-drawn console text. Rendering is pure and
// has no bearing on classification; callers that want different output can
// format the Help value themselves.
//
// Example output:
//
//	┌──────────────────────────────┐
//	│ Connection Refused           │
//	├──────────────────────────────┤
//	│ Nothing is accepting ...     │
//	│                              │
//	│ Suggestions:                 │
//	│   1. Verify the server ...   │
//	└──────────────────────────────┘
func Render(h Help) string {
	inner := boxWidth - 4 // "│ " + " │"

	var b strings.Builder

	rule := strings.Repeat("─", boxWidth-2)
	b.WriteString("┌" + rule + "┐\n")

	for _, line := range wrap(h.Title, inner) {
		writeRow(&b, line, inner)
	}

	b.WriteString("├" + rule + "┤\n")

	for _, line := range wrap(h.Explanation, inner) {
		writeRow(&b, line, inner)
	}

	if len(h.Suggestions) > 0 {
		writeRow(&b, "", inner)
		writeRow(&b, "Suggestions:", inner)
		for i, s := range h.Suggestions {
			prefix := "  " + strconv.Itoa(i+1) + ". "
			cont := strings.Repeat(" ", utf8.RuneCountInString(prefix))
			for j, line := range wrap(s, inner-utf8.RuneCountInString(prefix)) {
				if j == 0 {
					writeRow(&b, prefix+line, inner)
				} else {
					writeRow(&b, cont+line, inner)
				}
			}
		}
	}

	if h.DocsURL != "" {
		writeRow(&b, "", inner)
		writeRow(&b, "Docs: "+h.DocsURL, inner)
	}

	b.WriteString("└" + rule + "┘\n")

	return b.String()
}

func writeRow(b *strings.Builder, line string, inner int) {
	pad := inner - utf8.RuneCountInString(line)
	if pad < 0 {
		pad = 0
	}

	b.WriteString("│ ")
	b.WriteString(line)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(" │\n")
}

// wrap breaks text into lines no wider than width runes, splitting on spaces.
// Words longer than width are emitted on their own line, unbroken.
func wrap(text string, width int) []string {
	if text == "" {
		return []string{""}
	}

	var lines []string
	var current string

	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}

	if current != "" {
		lines = append(lines, current)
	}

	return lines
}
