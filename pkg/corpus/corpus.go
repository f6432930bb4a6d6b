package corpus

import "fmt"

// Message is one opaque payload. It may span multiple lines and carry
// significant leading or trailing whitespace; both are preserved
// exactly as parsed.
type Message string

// Corpus is an ordered, immutable, non-empty sequence of messages
// shared read-only across all agents.
type Corpus struct {
	messages []Message
}

// New creates a corpus from already-parsed messages
func New(messages []Message) (*Corpus, error) {
	if len(messages) == 0 {
		return nil, &ParseError{Reason: "corpus is empty"}
	}

	// Copy so callers cannot mutate the corpus afterwards
	copied := make([]Message, len(messages))
	copy(copied, messages)

	return &Corpus{messages: copied}, nil
}

// Len returns the number of messages
func (c *Corpus) Len() int {
	return len(c.messages)
}

// At returns the message at index i. i must be in [0, Len())
func (c *Corpus) At(i int) Message {
	return c.messages[i]
}

// Next returns the cursor index following i, wrapping to 0 past the end
func (c *Corpus) Next(i int) int {
	return (i + 1) % len(c.messages)
}

// Messages returns a copy of all messages in order
func (c *Corpus) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// ParseError reports an unreadable or empty corpus. It is fatal at
// startup and never produced afterwards.
type ParseError struct {
	Descriptor string
	Reason     string
	Err        error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Descriptor != "" {
		return fmt.Sprintf("corpus %q: %s", e.Descriptor, e.Reason)
	}
	return fmt.Sprintf("corpus: %s", e.Reason)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}
