package script

import (
	"fmt"
	"strings"
)

// OpeningLine fills the show's ritual opening sentence.
func (s Show) OpeningLine(opener, cohost Persona) string {
	return strings.NewReplacer("{opener}", opener.Name, "{cohost}", cohost.Name).Replace(s.OpeningTemplate)
}

// ClosingMessage fills the verbatim closing message with topic.
func (s Show) ClosingMessage(topic string) string {
	return strings.ReplaceAll(s.ClosingTemplate, "{topic}", topic)
}

// BuildSystemPrompt describes the show, the two hosts and the output format.
func BuildSystemPrompt(show Show, roster Roster) string {
	a, b := roster.A.Name, roster.B.Name

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional podcast script writer for %q, a podcast specifically designed for %s.\n\n", show.Name, show.Audience)

	sb.WriteString("HOSTS:\n")
	for _, p := range roster.Personas() {
		fmt.Fprintf(&sb, "- %s: %s\n", p.Name, strings.Join(strings.Fields(p.Description), " "))
	}

	sb.WriteString(`
CONVERSATION DYNAMIC:
- Both hosts are capable of being either the explainer or the questioner
- The explainer introduces concepts and provides technical depth
- The questioner asks clarifying questions and occasionally uses analogies when a concept is particularly complex
- Both keep their distinct personalities while working together to explain the paper
- Use analogies sparingly and only when they genuinely help explain a complex concept
- Allow each host to speak for longer stretches when explaining a concept
- Don't switch speakers unnecessarily; let the flow of ideas determine when to switch
- Never end segments with goodbyes or wrap-ups unless it's the final closing segment

SCRIPT REQUIREMENTS:
- Conversational but sophisticated, like friends discussing tech over coffee
- Playful banter and natural reactions ("oh wow", "that's wild", "no way")
- Cover the key technical details of the paper with intellectual rigor
- No citations or music cues
- Each segment except the closing ends mid-conversation, ready to flow into the next
- Avoid artificial transitions or segment markers in the dialogue

FORMAT REQUIREMENTS:
- Write each line of dialogue on its own line
- Include a blank line between speakers
`)
	fmt.Fprintf(&sb, "- Do not use speaker labels like '%s:' or '%s:'\n", a, b)
	sb.WriteString("- Keep the formatting clean and consistent throughout\n\n")
	fmt.Fprintf(&sb, "The script should flow naturally between hosts, with %s and %s creating an engaging dynamic throughout the discussion.", a, b)

	return sb.String()
}

// PromptInput carries everything a user instruction is built from.
type PromptInput struct {
	Segment SegmentSpec
	Slice   string
	History string
	Topic   string
	Show    Show
	Roster  Roster
	Opener  Persona
}

// BuildUserPrompt renders the instruction for one segment according to its role.
func BuildUserPrompt(in PromptInput) string {
	switch in.Segment.Role {
	case RoleOpening:
		return openingPrompt(in)
	case RoleClosing:
		return closingPrompt(in)
	default:
		return bodyPrompt(in)
	}
}

func openingPrompt(in PromptInput) string {
	cohost := in.Roster.Other(in.Opener)

	var sb strings.Builder
	sb.WriteString("Write a lively, engaging introduction to the podcast. Include:\n")
	fmt.Fprintf(&sb, "1. The exact intro line combined with host introductions in a single line, spoken by %s:\n\"%s\"\n",
		in.Opener.Name, in.Show.OpeningLine(in.Opener, cohost))
	fmt.Fprintf(&sb, "   Introduce %s and %s exactly once each, by name only.\n", in.Opener.Name, cohost.Name)
	sb.WriteString("2. Then focus on the main thesis of the paper. Extract the key argument and present it in an engaging way.\n")
	sb.WriteString("3. Keep the tone sophisticated yet engaging, with a natural flow between hosts.\n")
	sb.WriteString("4. End mid-conversation, ready to flow into the next segment.\n\n")
	fmt.Fprintf(&sb, "Segment Description: %s\n", in.Segment.Description)
	fmt.Fprintf(&sb, "Target Word Count: %d\n", in.Segment.Words)
	writeSource(&sb, in.Slice)
	writeFormatReminder(&sb, in.Roster)
	return sb.String()
}

func bodyPrompt(in PromptInput) string {
	var sb strings.Builder
	writeHistory(&sb, in.History)
	fmt.Fprintf(&sb, "Segment Description: %s\n", in.Segment.Description)
	fmt.Fprintf(&sb, "Target Word Count: %d\n", in.Segment.Words)
	writeSource(&sb, in.Slice)
	fmt.Fprintf(&sb, "Write approximately %d words, continuing the natural conversation about the paper.\n", in.Segment.Words)
	sb.WriteString(`Specifically:
1. Continue the discussion naturally without any meta-commentary about transitions or segments
2. End mid-conversation, ready to flow into the next segment
3. Do not use phrases like "let's pick up where we left off"
4. Allow each host to speak for longer stretches when explaining concepts
5. Do not switch speakers unnecessarily
`)
	fmt.Fprintf(&sb, "\nKeep the conversation between %s and %s balanced and engaging throughout.\n", in.Roster.A.Name, in.Roster.B.Name)
	writeFormatReminder(&sb, in.Roster)
	return sb.String()
}

func closingPrompt(in PromptInput) string {
	var sb strings.Builder
	writeHistory(&sb, in.History)
	fmt.Fprintf(&sb, "Segment Description: %s\n", in.Segment.Description)
	fmt.Fprintf(&sb, "Target Word Count: %d\n", in.Segment.Words)
	writeSource(&sb, in.Slice)
	fmt.Fprintf(&sb, "Write approximately %d words, making sure the dialogue transitions smoothly into the closing message.\n", in.Segment.Words)
	fmt.Fprintf(&sb, "Keep the conversation between %s and %s balanced and engaging throughout.\n\n", in.Roster.A.Name, in.Roster.B.Name)
	fmt.Fprintf(&sb, "End with this exact closing message:\n\"%s\"\n", in.Show.ClosingMessage(in.Topic))
	writeFormatReminder(&sb, in.Roster)
	return sb.String()
}

func writeHistory(sb *strings.Builder, history string) {
	sb.WriteString("Continue the podcast script from the previous segment. The conversation so far is:\n")
	sb.WriteString(history)
	sb.WriteString("\n\n")
}

func writeSource(sb *strings.Builder, slice string) {
	if slice == "" {
		sb.WriteString("\n")
		return
	}
	sb.WriteString("\nPDF Content:\n")
	sb.WriteString(slice)
	sb.WriteString("\n\n")
}

func writeFormatReminder(sb *strings.Builder, roster Roster) {
	fmt.Fprintf(sb, "\nFormat the dialogue naturally, without using speaker labels like '%s:' or '%s:'. ", roster.A.Name, roster.B.Name)
	sb.WriteString("Instead, write each line of dialogue on its own line with a blank line between speakers.")
}
