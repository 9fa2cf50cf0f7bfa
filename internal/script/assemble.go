package script

import "strings"

// AssembleScript joins segment outputs in plan order. Each output is preceded
// by a blank line and followed by a newline; empty outputs still contribute
// their separators.
func AssembleScript(outputs []string) string {
	var sb strings.Builder
	for _, out := range outputs {
		sb.WriteString("\n\n")
		sb.WriteString(out)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Assembled is a finished script with its derived first speaker.
type Assembled struct {
	Text       string
	First      Persona
	Match      MatchResult
	EmptyCount int // segments that came back empty
}

// Assemble concatenates outputs and runs the first-speaker scan once.
func Assemble(outputs []string, roster Roster) Assembled {
	text := AssembleScript(outputs)
	_, match := MatchIntroduction(text, roster)

	empty := 0
	for _, out := range outputs {
		if strings.TrimSpace(out) == "" {
			empty++
		}
	}
	return Assembled{
		Text:       text,
		First:      FirstSpeaker(text, roster),
		Match:      match,
		EmptyCount: empty,
	}
}
