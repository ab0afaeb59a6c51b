package chunker

import "github.com/dgallion1/bookgest/internal/document"

func testDoc(name, text string) *document.Document {
	return &document.Document{Name: name, Title: name, Text: text}
}
