package script

import "fmt"

// Persona defines one of the two hosts: the name used in the dialogue and the
// voice traits handed to the script writer.
type Persona struct {
	Name        string
	Description string
	Voice       string // optional TTS voice override for this host
}

// Roster is the fixed pair of hosts for a run. A is the persona whose
// self-introduction decides the first speaker; B is the fallback.
type Roster struct {
	A Persona
	B Persona
}

// DefaultRoster returns the Talking Machines hosts.
func DefaultRoster() Roster {
	return Roster{A: DefaultVicPersona, B: DefaultAlexPersona}
}

// DefaultVicPersona is the sharp, sarcastic London-born host.
var DefaultVicPersona = Persona{
	Name: "Vic",
	Description: `British, early 20's, sarcastic, witty, and intellectually sharp. She lives in SF but is from London.
She's tech-savvy but maintains a healthy skepticism of AI hype. She's quick with clever quips and dry humor, often
making witty observations about tech culture. She's passionate about making tech accessible but doesn't shy away
from technical depth.`,
}

// DefaultAlexPersona is the curious, grounded New York host.
var DefaultAlexPersona = Persona{
	Name: "Alex",
	Description: `American, early 20's, girl-next-door vibe with a sharp mind. She lives in NY and brings a fresh
perspective to tech discussions. She's naturally curious and asks the questions many listeners might be thinking.
She has a knack for finding relatable examples and making complex concepts approachable. She's enthusiastic about
tech's potential but maintains a balanced view.`,
}

// Validate checks that both hosts are named and distinct.
func (r Roster) Validate() error {
	if r.A.Name == "" || r.B.Name == "" {
		return fmt.Errorf("roster needs two named personas")
	}
	if r.A.Name == r.B.Name {
		return fmt.Errorf("roster personas must have distinct names (both are %q)", r.A.Name)
	}
	return nil
}

// Personas returns the hosts in roster order.
func (r Roster) Personas() []Persona {
	return []Persona{r.A, r.B}
}

// Other returns the co-host of p.
func (r Roster) Other(p Persona) Persona {
	if p.Name == r.A.Name {
		return r.B
	}
	return r.A
}

// Lookup finds a persona by name.
func (r Roster) Lookup(name string) (Persona, bool) {
	switch name {
	case r.A.Name:
		return r.A, true
	case r.B.Name:
		return r.B, true
	}
	return Persona{}, false
}

// Show holds the fixed identity of the podcast: its name, the ritual opening
// sentence, and the verbatim closing message. {opener}, {cohost} and {topic}
// are substituted at prompt time.
type Show struct {
	Name            string
	Audience        string
	OpeningTemplate string
	ClosingTemplate string
}

// DefaultShow returns the Talking Machines show configuration.
func DefaultShow() Show {
	return Show{
		Name:     "Talking Machines by Su Park",
		Audience: "women aged 15-35 who are curious about AI and technology",
		OpeningTemplate: `Welcome to 'Talking Machines by Su Park' the podcast where we talk machines, the bots, and the hottest ` +
			`AI papers off the press, to demystify the world of artificial intelligence research!!! ` +
			`I'm {opener}, and with me today is my lovely co-host, {cohost}.`,
		ClosingTemplate: `Thanks for joining us on Talking Machines today! We hope you enjoyed learning about {topic}. ` +
			`Our goal is not to bore you but fill you in on what's happening in the sci-fi-slowly-becoming-our-reality ` +
			`era we're living in. And today we learned about {topic}.
Until next time! You can find us on instagram at talking underscore machines underscore podcast.`,
	}
}
