package recognition

import (
	prose "github.com/jdkato/prose/v2"
)

var stopwords = map[string][]string{
	"fr": {"le", "la", "les", "un", "une", "des", "et", "ou", "avec", "pour", "sur", "dans", "par", "de", "du", "est", "ici"},
	"de": {"der", "die", "das", "und", "oder", "mit", "für", "auf", "von", "zu", "den", "dem", "des", "ist", "ein", "eine"},
	"en": {"the", "and", "or", "with", "for", "on", "in", "at", "to", "of", "a", "an", "is", "are", "was", "were", "your"},
}

// DetectLanguage tags text as fr, de or en by counting stopword hits over the
// token stream; ties and unrecognized text come back as "unknown".
func DetectLanguage(text string) string {
	if text == "" {
		return "unknown"
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return "unknown"
	}

	counts := map[string]int{}
	for _, tok := range doc.Tokens() {
		word := lowerASCII(tok.Text)
		for lang, words := range stopwords {
			for _, w := range words {
				if word == w {
					counts[lang]++
				}
			}
		}
	}

	best, bestCount := "unknown", 0
	tied := false
	for lang, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount = lang, n
			tied = false
		case n == bestCount && n > 0:
			tied = true
		}
	}
	if bestCount == 0 || tied {
		return "unknown"
	}
	return best
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
