package moderation

import (
	_ "embed"
	"strings"
)

//go:embed default_words.txt
var defaultWordsFile string

// DefaultWords returns the embedded forbidden word list, one word per line,
// blank lines and # comments ignored.
func DefaultWords() []string {
	var words []string
	for _, line := range strings.Split(defaultWordsFile, "\n") {
		word := strings.TrimSpace(line)
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words = append(words, word)
	}
	return words
}
