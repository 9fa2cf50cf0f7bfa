package script

import (
	"path/filepath"
	"strings"
)

// TopicFromSource derives the spoken topic from a source file name:
// "Self_Reflection_2504.04022.pdf" becomes "Self Reflection".
func TopicFromSource(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, base)
	base = strings.TrimSpace(base)
	base = strings.ReplaceAll(base, "_", " ")
	return strings.Join(strings.Fields(base), " ")
}

// TopicFromScript derives the topic from a script artifact name, ignoring
// the first-speaker tag.
func TopicFromScript(path string, roster Roster) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, p := range roster.Personas() {
		stem = strings.TrimSuffix(stem, speakerTag(p))
	}
	return TopicFromSource(stem + scriptExt)
}
