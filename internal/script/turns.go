package script

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// blankLine matches a turn boundary: a line with nothing but whitespace.
var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// Turn is one contiguous block of dialogue spoken by a single host.
type Turn struct {
	Index   int
	Speaker Persona
	Text    string
}

// SegmentTurns splits text on blank lines, drops whitespace-only blocks and
// assigns speakers by strict alternation starting with first. The result is
// a pure function of (text, first, roster).
func SegmentTurns(text string, first Persona, roster Roster) []Turn {
	second := roster.Other(first)

	var turns []Turn
	for _, block := range blankLine.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		speaker := first
		if len(turns)%2 == 1 {
			speaker = second
		}
		turns = append(turns, Turn{Index: len(turns), Speaker: speaker, Text: block})
	}
	return turns
}

// ParseFirstSpeaker recovers the first-speaker tag from a script file name.
// The second result is false when the name carries no tag for either host.
func ParseFirstSpeaker(path string, roster Roster) (Persona, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, p := range roster.Personas() {
		if strings.HasSuffix(stem, speakerTag(p)) {
			return p, true
		}
	}
	for _, p := range roster.Personas() {
		if strings.Contains(stem, p.Name+"_first") {
			return p, true
		}
	}
	return Persona{}, false
}

// Script is a persisted script split into turns.
type Script struct {
	Path   string
	Text   string
	First  Persona
	Tagged bool // false when First fell back to roster.B
	Turns  []Turn
}

// LoadScript reads a script artifact and segments it into turns. Scripts
// without a first-speaker tag start with roster.B, the same default the
// assembler uses when no self-introduction is found.
func LoadScript(path string, roster Roster) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}

	first, tagged := ParseFirstSpeaker(path, roster)
	if !tagged {
		first = roster.B
	}
	text := string(data)
	return &Script{
		Path:   path,
		Text:   text,
		First:  first,
		Tagged: tagged,
		Turns:  SegmentTurns(text, first, roster),
	}, nil
}

// Hosts returns the first speaker followed by the other host.
func (s *Script) Hosts(roster Roster) []Persona {
	return []Persona{s.First, roster.Other(s.First)}
}

// Labelled renders the turns as "Name: text" blocks separated by blank lines.
func (s *Script) Labelled() string {
	parts := make([]string, len(s.Turns))
	for i, t := range s.Turns {
		parts[i] = t.Speaker.Name + ": " + t.Text
	}
	return strings.Join(parts, "\n\n")
}
