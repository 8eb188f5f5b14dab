package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type intentFamily struct {
	chunkType domain.ChunkType
	patterns  []*regexp.Regexp
}

// intentFamilies are checked in order; the first family with a match wins.
var intentFamilies = []intentFamily{
	{
		chunkType: domain.ChunkConcept,
		patterns: compileAll(
			`^what (is|are|does|do)\b`,
			`^explain\b`,
			`^define\b`,
			`^describe\b`,
			`definition of`,
			`meaning of`,
			`concept of`,
			`tell me about`,
		),
	},
	{
		chunkType: domain.ChunkExample,
		patterns: compileAll(
			`example`,
			`show me`,
			`demonstrate`,
			`sample`,
			`case study`,
		),
	},
	{
		chunkType: domain.ChunkQuestion,
		patterns: compileAll(
			`^how (do|to|can)\b`,
			`^solve\b`,
			`^calculate\b`,
			`^find\b`,
			`^determine\b`,
			`practice`,
			`exercise`,
			`problem`,
		),
	},
}

// complementary is the secondary chunk type fetched next to an intent.
var complementary = map[domain.ChunkType]domain.ChunkType{
	domain.ChunkConcept:  domain.ChunkExample,
	domain.ChunkExample:  domain.ChunkConcept,
	domain.ChunkQuestion: domain.ChunkExample,
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// DetectIntent returns nil when the query carries no recognizable intent.
func DetectIntent(query string) *domain.ChunkType {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	for _, family := range intentFamilies {
		for _, p := range family.patterns {
			if p.MatchString(q) {
				t := family.chunkType
				return &t
			}
		}
	}
	return nil
}

func intentLabel(intent *domain.ChunkType) string {
	if intent == nil {
		return "none"
	}
	return strings.ToLower(string(*intent))
}
