// Package moderation censors forbidden words in chat messages before they
// are persisted or broadcast. Matching is resilient to casing, spacing
// tricks ("b a d g e r") and common leet substitutions ("b4dger").
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	log         *slog.Logger
	matcher     *goahocorasick.Machine
	replacement rune
}

// textMapping links a normalized rune stream back to positions in the
// original string so only the offending characters get replaced.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized form
// of the forbidden word list.
func NewModerator(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, w := range words {
		patterns[i] = normalizeRunes([]rune(w))
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{log: log, matcher: machine, replacement: replacement}, nil
}

// Censor replaces every character of every forbidden match with the
// replacement rune, preserving the original length and spacing. It returns
// the censored text and the normalized form of each match, for telemetry.
func (m *Moderator) Censor(original string) (string, []string) {
	mapping := m.normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	found := make([]string, 0, len(spans))
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		// Blank out everything between the first and last original rune of
		// the match, separators included.
		from := mapping.origIdx[start]
		to := mapping.origIdx[end-1]
		for i := from; i <= to; i++ {
			origRunes[i] = m.replacement
		}
	}

	if len(found) > 0 {
		m.log.Debug("Censored forbidden words", "count", len(found))
	}
	return string(origRunes), found
}

// normalize lowers, de-leets and strips separator runes while remembering
// where each kept rune came from.
func (m *Moderator) normalize(input string) textMapping {
	origRunes := []rune(input)
	mapping := textMapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		clean := deleet(r)
		if isSeparator(clean) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(clean))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := deleet(r)
		if isSeparator(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// leet maps common substitution characters back to their letter.
var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

func deleet(r rune) rune {
	if mapped, ok := leet[r]; ok {
		return mapped
	}
	return r
}

// isSeparator identifies runes ignored during pattern matching.
func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
