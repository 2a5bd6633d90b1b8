package utils

import "strings"

// NameMatchThreshold is the minimum shared-significant-word ratio for two
// listing names to be considered the same property. Below it, a CSV row is
// left unmatched rather than guessed.
const NameMatchThreshold = 0.6

// significantWords lowercases a listing name and keeps words longer than
// two characters, splitting on spaces and hyphens. Short fillers ("at",
// "by", unit numbers like "2B") carry no matching signal.
func significantWords(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(name)), func(r rune) bool {
		return r == ' ' || r == '-' || r == '\t'
	})
	var words []string
	for _, w := range fields {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

// MatchPropertyName finds which of propertyNames the candidate listing name
// refers to. Exact case-insensitive match wins immediately; otherwise the
// best name with a shared-word overlap ratio of at least NameMatchThreshold
// is returned. The ratio is |common| / max(|candidate words|, |name words|),
// so a short name cannot match a long one on a single word.
//
// Returns the matched property name and true, or "" and false.
func MatchPropertyName(candidate string, propertyNames []string) (string, bool) {
	cand := strings.ToLower(strings.TrimSpace(candidate))
	if cand == "" {
		return "", false
	}

	for _, name := range propertyNames {
		if strings.ToLower(strings.TrimSpace(name)) == cand {
			return name, true
		}
	}

	candWords := significantWords(candidate)
	if len(candWords) == 0 {
		return "", false
	}

	bestRatio := 0.0
	bestName := ""
	for _, name := range propertyNames {
		nameWords := significantWords(name)
		if len(nameWords) == 0 {
			continue
		}
		common := 0
		for _, w := range nameWords {
			for _, c := range candWords {
				if w == c {
					common++
					break
				}
			}
		}
		denom := len(nameWords)
		if len(candWords) > denom {
			denom = len(candWords)
		}
		ratio := float64(common) / float64(denom)
		if ratio > bestRatio {
			bestRatio = ratio
			bestName = name
		}
	}

	if bestRatio >= NameMatchThreshold {
		return bestName, true
	}
	return "", false
}
