package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Splitter is the sentence-aware sliding window used for documents without
// detectable structure. ChunkSize is in characters, Overlap in words.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlapWords int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlapWords < 0 {
		overlapWords = 0
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlapWords,
	}
}

// Split accumulates whole sentences until the next one would push the chunk
// past ChunkSize, then seeds the next chunk with up to the last Overlap words.
// The seed gives up its leading words until it fits beside the sentence, so
// no chunk exceeds ChunkSize.
func (s *Splitter) Split(text string) []string {
	sentences := s.sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	out := make([]string, 0, len(sentences)/4+1)
	current := ""
	for _, sentence := range sentences {
		if current != "" && utf8.RuneCountInString(current)+1+utf8.RuneCountInString(sentence) > s.ChunkSize {
			out = append(out, current)
			current = joinWords(s.seed(current, sentence), sentence)
			continue
		}
		current = joinWords(current, sentence)
	}
	if strings.TrimSpace(current) != "" {
		out = append(out, current)
	}
	return out
}

// sentences splits after '.', '!' or '?' followed by whitespace. A sentence
// longer than ChunkSize is cut into word runs that fit.
func (s *Splitter) sentences(text string) []string {
	runes := []rune(text)
	out := make([]string, 0, 32)
	start := 0
	for i, r := range runes {
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			out = s.appendSentence(out, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		out = s.appendSentence(out, string(runes[start:]))
	}
	return out
}

func (s *Splitter) appendSentence(out []string, raw string) []string {
	sentence := normalizeSpace(raw)
	if sentence == "" {
		return out
	}
	if utf8.RuneCountInString(sentence) <= s.ChunkSize {
		return append(out, sentence)
	}

	var piece strings.Builder
	for _, word := range strings.Fields(sentence) {
		if piece.Len() > 0 && utf8.RuneCountInString(piece.String())+1+utf8.RuneCountInString(word) > s.ChunkSize {
			out = append(out, piece.String())
			piece.Reset()
		}
		if piece.Len() > 0 {
			piece.WriteByte(' ')
		}
		piece.WriteString(word)
	}
	if piece.Len() > 0 {
		out = append(out, piece.String())
	}
	return out
}

// seed returns the overlap carried from prev that still fits before next.
func (s *Splitter) seed(prev, next string) string {
	words := strings.Fields(lastWords(prev, s.Overlap))
	room := s.ChunkSize - utf8.RuneCountInString(next) - 1
	for len(words) > 0 && utf8.RuneCountInString(strings.Join(words, " ")) > room {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func lastWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func joinWords(left, right string) string {
	switch {
	case left == "":
		return right
	case right == "":
		return left
	default:
		return left + " " + right
	}
}
