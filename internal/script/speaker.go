package script

import "strings"

// MatchResult classifies a self-introduction scan.
type MatchResult int

const (
	MatchNone MatchResult = iota
	MatchUnique
	MatchAmbiguous
)

func (m MatchResult) String() string {
	switch m {
	case MatchUnique:
		return "unique"
	case MatchAmbiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

// IntroductionMarker is the literal a host uses to introduce themselves.
func IntroductionMarker(p Persona) string {
	return "I'm " + p.Name
}

// MatchIntroduction scans text for the self-introduction marker of each host.
// It returns the persona only when exactly one marker is present.
//
// This is a plain substring heuristic: "I'm Vicky" also matches Vic.
func MatchIntroduction(text string, roster Roster) (Persona, MatchResult) {
	var found []Persona
	for _, p := range roster.Personas() {
		if strings.Contains(text, IntroductionMarker(p)) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return Persona{}, MatchNone
	case 1:
		return found[0], MatchUnique
	default:
		return Persona{}, MatchAmbiguous
	}
}

// FirstSpeaker decides who opens the episode: roster.A when its
// self-introduction appears anywhere in the assembled script, otherwise
// roster.B. Call it once, on the full script.
func FirstSpeaker(text string, roster Roster) Persona {
	p, res := MatchIntroduction(text, roster)
	switch res {
	case MatchUnique:
		return p
	case MatchAmbiguous:
		return roster.A
	default:
		return roster.B
	}
}
