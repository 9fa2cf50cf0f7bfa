package script

import "strings"

// ParagraphSeparator delimits paragraphs in extracted source text.
const ParagraphSeparator = "\n\n"

// SplitParagraphs splits text into blank-line-delimited paragraphs. The
// result always has at least one element.
func SplitParagraphs(text string) []string {
	return strings.Split(text, ParagraphSeparator)
}

// Halves partitions paragraphs into two contiguous halves; the first holds
// floor(n/2) paragraphs.
func Halves(paragraphs []string) (first, second []string) {
	mid := len(paragraphs) / 2
	return paragraphs[:mid], paragraphs[mid:]
}

// SplitDocument returns the first and second halves of text, split on
// paragraph boundaries. With fewer than two paragraphs the first half is empty.
func SplitDocument(text string) (first, second string) {
	a, b := Halves(SplitParagraphs(text))
	return strings.Join(a, ParagraphSeparator), strings.Join(b, ParagraphSeparator)
}

// Document is a source text with its halves computed once.
type Document struct {
	Full       string
	FirstHalf  string
	SecondHalf string
}

// NewDocument splits text into halves.
func NewDocument(text string) Document {
	first, second := SplitDocument(text)
	return Document{Full: text, FirstHalf: first, SecondHalf: second}
}

// Slice returns the part of the document selected by s.
func (d Document) Slice(s Slice) string {
	switch s {
	case SliceFull:
		return d.Full
	case SliceFirstHalf:
		return d.FirstHalf
	case SliceSecondHalf:
		return d.SecondHalf
	default:
		return ""
	}
}
