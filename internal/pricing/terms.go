package pricing

import (
	"regexp"
	"strings"
)

// maxSearchTerms caps how many ladder rungs are actually searched.
const maxSearchTerms = 3

// maxCleanedTermLen bounds the cleaned-description rung.
const maxCleanedTermLen = 50

var (
	partNumberPattern  = regexp.MustCompile(`(?i)(?:mfr|mfg|manufacturer|item\s*#?|part\s*#?)[#:\s]*(\S+)`)
	fillerWordPattern  = regexp.MustCompile(`(?i)\b(the|and|for|with|each|per|unit|item|qty|no|number)\b`)
	punctuationPattern = regexp.MustCompile(`[,;()\[\]{}#]`)
)

var keywordStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {},
	"each": {}, "per": {}, "unit": {}, "item": {},
}

// buildSearchTerms derives the query ladder for one product, most specific
// first: the item number, an embedded part number, the cleaned first line of
// the description, and a three-keyword subset. Duplicates collapse in order.
func buildSearchTerms(itemNumber, description string) []string {
	var terms []string
	add := func(term string) {
		if term == "" {
			return
		}
		for _, existing := range terms {
			if existing == term {
				return
			}
		}
		terms = append(terms, term)
	}

	add(strings.TrimSpace(itemNumber))

	desc := strings.TrimSpace(description)
	if desc == "" {
		return terms
	}
	firstLine := strings.TrimSpace(strings.SplitN(desc, "\n", 2)[0])

	if m := partNumberPattern.FindStringSubmatch(desc); m != nil {
		add(m[1])
	}

	cleaned := fillerWordPattern.ReplaceAllString(firstLine, "")
	cleaned = punctuationPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if len(cleaned) > maxCleanedTermLen {
		cleaned = cleaned[:maxCleanedTermLen]
	}
	add(strings.TrimSpace(cleaned))

	var keywords []string
	for _, word := range strings.Fields(firstLine) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := keywordStopWords[strings.ToLower(word)]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == 3 {
			break
		}
	}
	if len(keywords) >= 2 {
		add(strings.Join(keywords, " "))
	}

	return terms
}
