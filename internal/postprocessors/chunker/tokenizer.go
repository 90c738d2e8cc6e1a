package chunker

import "github.com/rivo/uniseg"

// Tokenizer splits text into tokens whose concatenation is the original text.
type Tokenizer interface {
	Tokenize(text string) []string
}

// WordTokenizer splits text at Unicode word boundaries (UAX #29).
// Words, whitespace runs and punctuation each become one token, so a token
// boundary never falls inside a code point or grapheme cluster.
type WordTokenizer struct{}

// Tokenize returns the word segments of text in order.
func (WordTokenizer) Tokenize(text string) []string {
	var tokens []string
	state := -1
	rest := text
	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		tokens = append(tokens, word)
	}
	return tokens
}
