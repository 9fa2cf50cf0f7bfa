package script

import (
	"fmt"
	"regexp"
	"strings"
)

// ReviewIssue describes a quality problem found in an assembled script.
type ReviewIssue struct {
	Category string // "empty_segment", "length", "labels", "introduction", "closing", "balance"
	Message  string
}

// Review runs cheap heuristic checks over the segment outputs and the
// assembled script. Issues are advisory; the script is written regardless.
func Review(plan Plan, outputs []string, asm Assembled, roster Roster, show Show, topic string) []ReviewIssue {
	var issues []ReviewIssue
	issues = append(issues, checkSegments(plan, outputs)...)
	issues = append(issues, checkSpeakerLabels(asm.Text, roster)...)
	issues = append(issues, checkIntroduction(asm)...)
	issues = append(issues, checkClosing(asm.Text, show, topic)...)
	issues = append(issues, checkTurnBalance(SegmentTurns(asm.Text, asm.First, roster))...)
	return issues
}

func checkSegments(plan Plan, outputs []string) []ReviewIssue {
	var issues []ReviewIssue
	for i, seg := range plan {
		if i >= len(outputs) {
			break
		}
		words := len(strings.Fields(outputs[i]))
		switch {
		case words == 0:
			issues = append(issues, ReviewIssue{
				Category: "empty_segment",
				Message:  fmt.Sprintf("segment %q is empty", seg.Name),
			})
		case words < seg.Words/2:
			issues = append(issues, ReviewIssue{
				Category: "length",
				Message:  fmt.Sprintf("segment %q has %d words, target is %d", seg.Name, words, seg.Words),
			})
		}
	}
	return issues
}

func checkSpeakerLabels(text string, roster Roster) []ReviewIssue {
	re := regexp.MustCompile(`(?m)^\s*(?:` + regexp.QuoteMeta(roster.A.Name) + `|` + regexp.QuoteMeta(roster.B.Name) + `)\s*:`)
	if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
		return []ReviewIssue{{
			Category: "labels",
			Message:  fmt.Sprintf("script contains %d speaker labels that will be read aloud", n),
		}}
	}
	return nil
}

func checkIntroduction(asm Assembled) []ReviewIssue {
	switch asm.Match {
	case MatchNone:
		return []ReviewIssue{{
			Category: "introduction",
			Message:  fmt.Sprintf("no host self-introduction found, assuming %s speaks first", asm.First.Name),
		}}
	case MatchAmbiguous:
		return []ReviewIssue{{
			Category: "introduction",
			Message:  fmt.Sprintf("both hosts introduce themselves, assuming %s speaks first", asm.First.Name),
		}}
	}
	return nil
}

func checkClosing(text string, show Show, topic string) []ReviewIssue {
	if show.ClosingTemplate == "" {
		return nil
	}
	// Compare the last line only; models often re-wrap the first one.
	lines := strings.Split(strings.TrimSpace(show.ClosingMessage(topic)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if !strings.Contains(text, last) {
		return []ReviewIssue{{
			Category: "closing",
			Message:  "closing message not found verbatim",
		}}
	}
	return nil
}

func checkTurnBalance(turns []Turn) []ReviewIssue {
	if len(turns) < 2 {
		return nil
	}
	words := map[string]int{}
	total := 0
	for _, t := range turns {
		n := len(strings.Fields(t.Text))
		words[t.Speaker.Name] += n
		total += n
	}

	var issues []ReviewIssue
	if total == 0 {
		return nil
	}
	for _, name := range []string{turns[0].Speaker.Name, turns[1].Speaker.Name} {
		if pct := float64(words[name]) / float64(total); pct < 0.30 {
			issues = append(issues, ReviewIssue{
				Category: "balance",
				Message:  fmt.Sprintf("%s speaks only %.0f%% of the words", name, pct*100),
			})
		}
	}
	return issues
}
