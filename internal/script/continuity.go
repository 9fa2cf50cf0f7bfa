package script

import "strings"

// DefaultTailWords is how many trailing words of each segment are carried
// into the next request.
const DefaultTailWords = 200

// ExtractTail returns the last n whitespace-separated words of text joined by
// single spaces. Text with n words or fewer is returned unchanged.
func ExtractTail(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[len(words)-n:], " ")
}

// Continuity is the running conversation-so-far context for one pipeline run.
// It only grows by appending the tail of each finished segment.
type Continuity struct {
	tailWords int
	buf       strings.Builder
}

// NewContinuity creates an empty context that keeps tailWords words per
// segment. Non-positive values use DefaultTailWords.
func NewContinuity(tailWords int) *Continuity {
	if tailWords <= 0 {
		tailWords = DefaultTailWords
	}
	return &Continuity{tailWords: tailWords}
}

// Append adds the tail of a segment's output, preceded by a newline.
func (c *Continuity) Append(segment string) {
	c.buf.WriteString("\n")
	c.buf.WriteString(ExtractTail(segment, c.tailWords))
}

func (c *Continuity) String() string {
	return c.buf.String()
}
