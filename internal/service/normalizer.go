package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxChunkChars is used when a caller passes a non-positive limit.
const DefaultMaxChunkChars = 1000

// ChunkConfig controls how cleaned text is split for embedding.
type ChunkConfig struct {
	MaxChars int
	// MinChars is the shortest chunk that may end on a soft boundary.
	MinChars int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfigFor(DefaultMaxChunkChars)
}

// ChunkConfigFor derives a config from a maximum chunk length.
func ChunkConfigFor(maxChars int) ChunkConfig {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	return ChunkConfig{MaxChars: maxChars, MinChars: maxChars / 2}
}

// NormalizeAndChunk cleans raw OCR output and splits it into chunks of at most
// maxChunkChars runes. It returns nil when nothing meaningful remains.
func NormalizeAndChunk(raw string, maxChunkChars int) []string {
	clean := CleanText(raw)
	if clean == "" {
		return nil
	}
	return chunkText(clean, ChunkConfigFor(maxChunkChars))
}

// CleanText repairs encoding, strips control characters, collapses whitespace
// within lines and reduces runs of blank lines to a single paragraph break.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}
	text := strings.ToValidUTF8(raw, "")
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, text)

	var sb strings.Builder
	sb.Grow(len(text))
	pendingBreak := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if sb.Len() > 0 {
				pendingBreak = true
			}
			continue
		}
		if sb.Len() > 0 {
			if pendingBreak {
				sb.WriteString("\n\n")
			} else {
				sb.WriteByte('\n')
			}
		}
		pendingBreak = false
		sb.WriteString(line)
	}
	return sb.String()
}

func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, len(runes)/cfg.MaxChars+1)
	start := 0
	for start < len(runes) {
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
		if start >= len(runes) {
			break
		}

		end := start + cfg.MaxChars
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		minCut := start + cfg.MinChars
		if cfg.MinChars >= cfg.MaxChars || cfg.MinChars < 0 {
			minCut = start
		}

		cut := findBoundary(runes, minCut, end)
		if chunk := strings.TrimSpace(string(runes[start:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = cut
	}

	return chunks
}

// findBoundary picks the cut position in (minCut, end], preferring a paragraph
// break, then a sentence end, then any whitespace. It falls back to end.
func findBoundary(runes []rune, minCut, end int) int {
	for i := end; i > minCut; i-- {
		if i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > minCut; i-- {
		if isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	if unicode.IsSpace(runes[end]) {
		return end
	}
	for i := end; i > minCut; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}
