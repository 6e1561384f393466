package services

import (
	"strings"
	"unicode/utf8"

	"jarvis-backend/domain/config"
)

// KeywordExtractor picks salient terms out of assistant replies.
// A term is a whitespace-separated token that starts with an ASCII capital
// and is longer than the configured minimum.
type KeywordExtractor struct {
	minLength   int
	maxKeywords int
}

// NewKeywordExtractor creates an extractor from the domain rules
func NewKeywordExtractor(cfg *config.DomainConfig) *KeywordExtractor {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &KeywordExtractor{
		minLength:   cfg.KeywordMinLength,
		maxKeywords: cfg.MaxKeywordsPerTurn,
	}
}

// ExtractKeywords returns up to maxKeywords qualifying tokens in order of appearance.
// No qualifying token yields an empty, non-nil slice.
func (e *KeywordExtractor) ExtractKeywords(text string) []string {
	keywords := make([]string, 0, e.maxKeywords)
	for _, token := range strings.Fields(text) {
		if len(keywords) == e.maxKeywords {
			break
		}
		if utf8.RuneCountInString(token) > e.minLength && isASCIIUpper(token[0]) {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// NormalizeID strips every character that is not an ASCII letter.
// Distinct tokens can map to the same id ("Energy," and "Energy2").
func NormalizeID(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for i := 0; i < len(token); i++ {
		c := token[i]
		if isASCIIUpper(c) || (c >= 'a' && c <= 'z') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isASCIIUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}
