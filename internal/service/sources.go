package service

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

const (
	maxAnswerSources = 2
	snippetMaxChars  = 150
)

// UUIDGenerator defines an interface for generating UUIDs
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// buildSources turns the best retrieved chunks into short, citable excerpts.
func buildSources(results []domain.RetrievalResult) []domain.Source {
	n := len(results)
	if n > maxAnswerSources {
		n = maxAnswerSources
	}
	sources := make([]domain.Source, 0, n)
	for _, r := range results[:n] {
		sources = append(sources, domain.Source{
			ChunkID:   r.Chunk.ID,
			SourceTag: r.Chunk.SourceTag,
			Snippet:   makeSnippet(r.Chunk.Text, snippetMaxChars),
			Score:     r.Score,
		})
	}
	return sources
}

// makeSnippet collapses whitespace and cuts content to at most maxChars runes,
// ending on a word boundary when one is close enough.
func makeSnippet(content string, maxChars int) string {
	if content == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(clean) <= maxChars {
		return clean
	}

	runes := []rune(clean)
	cut := maxChars - 3
	if i := strings.LastIndex(string(runes[:cut+1]), " "); i > 0 && utf8.RuneCountInString(clean[:i]) >= cut/2 {
		return strings.TrimSpace(clean[:i]) + "..."
	}
	return string(runes[:cut]) + "..."
}
