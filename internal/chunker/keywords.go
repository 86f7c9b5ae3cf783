package chunker

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultKeywordLimit is the number of keywords extracted when the caller
// passes no limit.
const DefaultKeywordLimit = 10

// stopWords are high-frequency English words with no topical signal.
// Words of three characters or fewer never reach the lookup, so entries
// like "the" and "and" are excluded by length instead.
var stopWords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "from": {}, "have": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "their": {},
	"there": {}, "about": {}, "which": {}, "when": {}, "where": {},
	"what": {}, "been": {}, "were": {}, "they": {}, "them": {},
	"than": {}, "then": {}, "your": {}, "these": {}, "those": {},
	"some": {}, "such": {}, "into": {}, "over": {}, "only": {},
	"also": {}, "after": {}, "before": {}, "because": {}, "between": {},
	"through": {}, "during": {}, "under": {}, "while": {}, "other": {},
	"more": {}, "most": {}, "very": {}, "each": {}, "both": {},
	"must": {}, "just": {}, "being": {}, "does": {}, "doing": {},
	"until": {}, "against": {}, "above": {}, "below": {}, "again": {},
	"here": {}, "once": {}, "same": {}, "itself": {}, "however": {},
}

// ExtractKeywords returns up to limit distinct keywords from text, most
// frequent first. Tokens are lowercased, must be longer than three
// characters, and must not be stop words. Ties are broken by first
// appearance so the result is deterministic.
func ExtractKeywords(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var unique []string
	for i, tok := range tokens {
		if len(tok) <= 3 {
			continue
		}
		if _, ok := stopWords[tok]; ok {
			continue
		}
		if _, ok := counts[tok]; !ok {
			firstSeen[tok] = i
			unique = append(unique, tok)
		}
		counts[tok]++
	}
	if len(unique) == 0 {
		return nil
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if counts[unique[i]] != counts[unique[j]] {
			return counts[unique[i]] > counts[unique[j]]
		}
		return firstSeen[unique[i]] < firstSeen[unique[j]]
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}
