package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/bookgest/internal/document"
)

// Config controls chunking behavior.
type Config struct {
	MaxTokens      int     // Token budget per chunk.
	WindowFraction float64 // Fraction of the target window a boundary must clear to be used.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:      25000,
		WindowFraction: 0.5,
	}
}

// SplitDocument splits a document's text and tags chunks with its name.
func SplitDocument(doc *document.Document, cfg Config) []document.Chunk {
	chunks := Split(doc.Text, cfg)
	for i := range chunks {
		chunks[i].Doc = doc.Name
	}
	return chunks
}

// Split breaks text into an ordered sequence of chunks bounded by the token
// budget, cutting at paragraph breaks where possible and sentence ends
// otherwise. Concatenating the chunks in order reproduces the input exactly.
func Split(text string, cfg Config) []document.Chunk {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 25000
	}
	if cfg.WindowFraction <= 0 || cfg.WindowFraction >= 1 {
		cfg.WindowFraction = 0.5
	}

	estimated := EstimateTokens(text)
	if estimated <= cfg.MaxTokens {
		return []document.Chunk{{Index: 0, Text: text}}
	}

	numChunks := (estimated + cfg.MaxTokens - 1) / cfg.MaxTokens
	chunkSize := len(text) / numChunks

	var chunks []document.Chunk
	start := 0
	for i := 1; i < numChunks; i++ {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}

		// A boundary candidate counts only if it lands past the window
		// fraction; otherwise the cut stays at the raw target position.
		threshold := start + int(float64(chunkSize)*cfg.WindowFraction)

		if cut := paragraphCut(text, start, end); cut > threshold {
			end = cut
		} else if cut := sentenceCut(text, start, end); cut > threshold {
			end = cut
		} else {
			// Hard cut. May split a sentence; align to a rune boundary so
			// the split never bisects a multi-byte character.
			for end > start && end < len(text) && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				// The target landed inside the first rune; take the whole
				// rune rather than emit an empty chunk.
				_, n := utf8.DecodeRuneInString(text[start:])
				end = start + n
			}
		}

		chunks = append(chunks, document.Chunk{Index: len(chunks), Text: text[start:end]})
		start = end
		if start >= len(text) {
			break
		}
	}

	// Final chunk absorbs all remaining text.
	if start < len(text) || len(chunks) == 0 {
		chunks = append(chunks, document.Chunk{Index: len(chunks), Text: text[start:]})
	}

	return chunks
}

// paragraphCut returns the byte offset just past the last paragraph break
// (double newline) in text[start:end], or -1.
func paragraphCut(text string, start, end int) int {
	idx := strings.LastIndex(text[start:end], "\n\n")
	if idx == -1 {
		return -1
	}
	return start + idx + 2
}

// sentence terminators searched, in no particular order; the latest match wins.
var sentenceEnds = []string{". ", "。", "！", "？"}

// sentenceCut returns the byte offset just past the latest sentence-ending
// punctuation in text[start:end], or -1. For ". " the cut is after the
// period, keeping the trailing space with the next chunk's text intact.
func sentenceCut(text string, start, end int) int {
	best := -1
	window := text[start:end]
	for _, sep := range sentenceEnds {
		idx := strings.LastIndex(window, sep)
		if idx == -1 {
			continue
		}
		cut := start + idx
		if sep == ". " {
			cut++ // after the period
		} else {
			cut += len(sep)
		}
		if cut > best {
			best = cut
		}
	}
	return best
}
