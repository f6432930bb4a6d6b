package agent

import "strings"

// nbsp is a non-breaking space, which presentation surfaces do not
// collapse the way they collapse runs of regular spaces.
const nbsp = "\u00a0"

// HardenWhitespace prepares a message for injection into a rendering
// surface: every collapsible space is replaced by a non-breaking
// space, line by line, so multi-line art renders with its columns
// intact. Newlines themselves are never altered.
func HardenWhitespace(s string) string {
	if !strings.Contains(s, " ") {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.ReplaceAll(line, " ", nbsp)
	}
	return strings.Join(lines, "\n")
}
