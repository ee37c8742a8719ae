package source

import (
	"strings"
	"unicode/utf8"
)

// Rule labels text that contains any of its keywords.
type Rule struct {
	Label    string
	Keywords []string
}

// Rules is an ordered keyword table; order decides which label wins in First.
type Rules []Rule

// All returns every label whose keywords occur in text, in table order.
func (r Rules) All(text string) []string {
	lower := strings.ToLower(text)
	var labels []string
	for _, rule := range r {
		if containsAny(lower, rule.Keywords) {
			labels = append(labels, rule.Label)
		}
	}
	return labels
}

// First returns the first matching label, or fallback.
func (r Rules) First(text, fallback string) string {
	lower := strings.ToLower(text)
	for _, rule := range r {
		if containsAny(lower, rule.Keywords) {
			return rule.Label
		}
	}
	return fallback
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Single builds a table where each keyword maps to one label.
func Single(pairs ...string) Rules {
	rules := make(Rules, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		rules = append(rules, Rule{Label: pairs[i+1], Keywords: []string{pairs[i]}})
	}
	return rules
}

// Head returns the first n characters of s.
func Head(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// LongEnough reports whether s has at least n characters once trimmed.
func LongEnough(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}
