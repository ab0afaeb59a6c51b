package document

import "strings"

// Document is the extracted text of one book, in reading order.
// It is immutable once produced by a parser.
type Document struct {
	Name  string // base name of the source file, without extension
	Title string // best-effort title (metadata or heading), may equal Name
	Text  string // full concatenated text
	Pages int    // page count where the format has pages, else 0
}

// Chunk is an ordered, contiguous substring of a Document's text.
// Chunks of one split are disjoint and concatenate back to the input.
type Chunk struct {
	Index int    // 0-based position in the chunk sequence
	Text  string
	Doc   string // parent document name, for logging only
}

// Empty reports whether the document carries no usable text.
func (d *Document) Empty() bool {
	return d == nil || strings.TrimSpace(d.Text) == ""
}

// Head returns up to n leading bytes of the text, cut at a rune boundary.
func (d *Document) Head(n int) string {
	return headRunes(d.Text, n)
}

// Tail returns up to n trailing bytes of the text, cut at a rune boundary.
func (d *Document) Tail(n int) string {
	if len(d.Text) <= n {
		return d.Text
	}
	cut := len(d.Text) - n
	for cut < len(d.Text) && !isRuneStart(d.Text[cut]) {
		cut++
	}
	return d.Text[cut:]
}

func headRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
