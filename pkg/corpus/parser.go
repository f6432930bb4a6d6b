package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Options controls bulk-mode splitting
type Options struct {
	// AltWord is a whole-word alternate delimiter recognized next to
	// the canonical '&'. Matched case-insensitively. Empty disables it.
	AltWord string
}

// DefaultOptions returns the default parser options
func DefaultOptions() Options {
	return Options{AltWord: "and"}
}

// Invisible formatting characters stripped from bulk content before
// splitting: zero-width spaces/joiners, BOM, bidi controls.
var invisibleRunes = regexp.MustCompile(`[\x{200B}-\x{200F}\x{FEFF}\x{202A}-\x{202E}\x{2060}-\x{206F}]`)

// Visually-confusable ampersand variants folded to the canonical '&'.
var ampersandVariants = strings.NewReplacer(
	"\uFE60", "&", // ﹠ small ampersand
	"\uFF06", "&", // ＆ fullwidth ampersand
	"\u214B", "&", // ⅋ turned ampersand
	"\uA4F8", "&", // ꓸ lisu letter tone
	"\uFE14", "&", // ︔ presentation semicolon
)

// Parse turns a corpus descriptor into a Corpus.
//
// If the descriptor names an existing file it is first tried in
// structured mode: every non-blank line must decode as a JSON string
// literal, and each decoded string becomes one message, verbatim.
// Structured mode is the unambiguous escape path for messages that
// embed newlines or delimiter characters.
//
// If the descriptor is not a file, or any line fails to decode, the
// whole raw content falls back to bulk mode: NFKC-normalize, fold
// line endings, strip invisible formatting characters, fold
// ampersand lookalikes, then split on '&' (and the whole-word
// AltWord when configured). Surrounding whitespace is trimmed from
// each piece; interior newlines are untouched; empty pieces are
// dropped.
func Parse(descriptor string, opts Options) (*Corpus, error) {
	content := descriptor

	if info, err := os.Stat(descriptor); err == nil && !info.IsDir() {
		data, err := os.ReadFile(descriptor)
		if err != nil {
			return nil, &ParseError{
				Descriptor: descriptor,
				Reason:     fmt.Sprintf("failed to read file: %v", err),
				Err:        err,
			}
		}

		if messages, ok := parseStructured(string(data)); ok {
			return New(messages)
		}

		// Any undecodable line discards the whole structured attempt;
		// the raw content is re-parsed in bulk mode instead.
		content = string(data)
	}

	messages := splitBulk(content, opts)
	if len(messages) == 0 {
		return nil, &ParseError{
			Descriptor: descriptor,
			Reason:     "no messages after splitting",
		}
	}

	c, err := New(messages)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// parseStructured decodes one JSON string literal per non-blank line.
// Returns ok=false when any line fails to decode or no lines remain.
func parseStructured(content string) ([]Message, bool) {
	var messages []Message

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		var s string
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, false
		}
		messages = append(messages, Message(s))
	}

	if len(messages) == 0 {
		return nil, false
	}
	return messages, true
}

// splitBulk normalizes a free-form block and splits it into messages
func splitBulk(content string, opts Options) []Message {
	content = norm.NFKC.String(content)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = invisibleRunes.ReplaceAllString(content, "")
	content = ampersandVariants.Replace(content)

	pattern := `\s*&\s*`
	if opts.AltWord != "" {
		pattern = `\s*(?:&|(?i:\b` + regexp.QuoteMeta(opts.AltWord) + `\b))\s*`
	}
	splitter := regexp.MustCompile(pattern)

	var messages []Message
	for _, piece := range splitter.Split(content, -1) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		messages = append(messages, Message(piece))
	}

	return messages
}
