package chunker

import "regexp"

var asciiWordRe = regexp.MustCompile(`[a-zA-Z]+`)

// EstimateTokens gives a rough token count for mixed Chinese/English text.
// A CJK ideograph counts ~1.5 tokens, an ASCII word ~1, everything else
// (punctuation, digits, whitespace) ~0.5 per code point. This is a
// heuristic, not a tokenizer; exact counts are not required for chunking.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	cjk := 0
	total := 0
	for _, r := range text {
		total++
		if r >= 0x4E00 && r <= 0x9FFF {
			cjk++
		}
	}

	words := asciiWordRe.FindAllString(text, -1)
	wordChars := 0
	for _, w := range words {
		wordChars += len(w)
	}

	other := total - cjk - wordChars
	if other < 0 {
		other = 0
	}

	est := float64(cjk)*1.5 + float64(len(words)) + float64(other)*0.5
	return int(est)
}
