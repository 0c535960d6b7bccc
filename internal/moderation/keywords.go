package moderation

import (
	"context"
	"strings"
	"unicode"
)

// Canonical dictionaries. They are normalized with cleanText at init so
// they compare against input in the same form.
var threatWords = []string{
	"rape", "kill", "murder", "assault", "attack", "destroy", "execute",
	"shoot", "stab", "strangle", "threat", "threatening", "revenge",
	"retaliate", "slaughter", "massacre", "annihilate",
}

var selfHarmPhrases = []string{
	"suicide", "kill myself", "end my life", "take my life", "end it all",
	"self harm", "cut myself", "hurt myself", "harm myself", "want to die",
	"wish i was dead", "not worth living", "better off dead", "end myself",
	"unalive",
}

var obfuscation = strings.NewReplacer(
	"@", "a", "4", "a", "3", "e", "!", "i", "1", "i", "0", "o",
	"$", "s", "5", "s", "7", "t", "+", "t",
	"а", "a", "е", "e", "і", "i", "о", "o", "р", "p", // Cyrillic look-alikes
)

var (
	normalizedThreats  = normalizeAll(threatWords)
	normalizedSelfHarm = normalizeAll(selfHarmPhrases)
)

// KeywordClassifier is the offline classifier: it maps self-harm phrases to
// "self-harm" and threat words to "violence".
type KeywordClassifier struct{}

// Classify never fails.
func (KeywordClassifier) Classify(_ context.Context, text string) (Result, error) {
	cleaned := cleanText(text)
	res := Result{Categories: map[string]bool{}}
	if matchesAny(cleaned, normalizedSelfHarm) {
		res.Flagged = true
		res.Categories["self-harm"] = true
	}
	if matchesAny(cleaned, normalizedThreats) {
		res.Flagged = true
		res.Categories["violence"] = true
	}
	return res, nil
}

// cleanText lowercases, undoes common character substitutions, replaces
// non-letters with spaces, collapses repeated letters ("kiiill" -> "kil")
// and squeezes whitespace.
func cleanText(text string) string {
	s := obfuscation.Replace(strings.ToLower(text))

	var b strings.Builder
	var last rune
	lastLetter := false
	for _, r := range s {
		letter := unicode.IsLetter(r)
		if !letter {
			r = ' '
		}
		if letter && lastLetter && r == last {
			continue
		}
		b.WriteRune(r)
		last, lastLetter = r, letter
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// matchesAny reports whether cleaned contains any dictionary entry. Single
// words must match a whole word ("skill" is not "kill"); phrases match as
// substrings.
func matchesAny(cleaned string, dict []string) bool {
	words := strings.Fields(cleaned)
	for _, entry := range dict {
		if !strings.Contains(cleaned, entry) {
			continue
		}
		if strings.Contains(entry, " ") {
			return true
		}
		for _, w := range words {
			if w == entry {
				return true
			}
		}
	}
	return false
}

func normalizeAll(entries []string) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = cleanText(e)
	}
	return out
}
