package chunking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxKeyTerms      = 10
	maxEquations     = 5
	maxEquationRunes = 100
)

var (
	quotedTermPattern = regexp.MustCompile(`"([^"]+)"`)
	titleCasePattern  = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`)
	assignmentPattern = regexp.MustCompile(`[=+\-*/]\s*[A-Za-z0-9]|[A-Za-z]\s*=`)
	formulaPattern    = regexp.MustCompile(`[A-Z][a-z]?\s*=|∑|Σ|∫|√|π|α|β|γ|Δ`)
	diagramKeywords   = []string{"figure", "diagram", "fig.", "illustration", "graph", "chart"}
)

// extractKeyTerms returns quoted strings and multi-word Title-Case phrases in
// first-seen order. A phrase may not start at the first byte of the text, so
// "Newton Second Law ..." contributes "Second Law".
func extractKeyTerms(text string) []string {
	terms := newOrderedSet(maxKeyTerms)
	for _, m := range quotedTermPattern.FindAllStringSubmatch(text, -1) {
		terms.add(m[1])
	}
	from := 0
	if loc := titleCasePattern.FindStringIndex(text); loc != nil && loc[0] == 0 {
		from = 1
	}
	for _, loc := range titleCasePattern.FindAllStringIndex(text[from:], -1) {
		terms.add(text[from+loc[0] : from+loc[1]])
	}
	return terms.values()
}

func extractEquations(text string) []string {
	equations := newOrderedSet(maxEquations)
	for _, line := range strings.Split(text, "\n") {
		if !assignmentPattern.MatchString(line) && !formulaPattern.MatchString(line) {
			continue
		}
		eq := strings.TrimSpace(line)
		if eq == "" || utf8.RuneCountInString(eq) >= maxEquationRunes {
			continue
		}
		equations.add(eq)
	}
	return equations.values()
}

func hasDiagramReference(text string) bool {
	return containsAny(strings.ToLower(text), diagramKeywords)
}

type orderedSet struct {
	limit int
	seen  map[string]struct{}
	items []string
}

func newOrderedSet(limit int) *orderedSet {
	return &orderedSet{limit: limit, seen: make(map[string]struct{}, limit), items: make([]string, 0, limit)}
}

func (s *orderedSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" || len(s.items) >= s.limit {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) values() []string {
	return s.items
}
