// Package embedding provides a local, dependency-free embedding model.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const (
	DefaultDimension = 384
	hashingName      = "hashing"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {},
}

// HashingEmbedder maps text to a fixed-size vector by feature hashing word
// unigrams and bigrams. Equal text always yields an equal vector, and texts
// sharing vocabulary land close together under cosine similarity.
type HashingEmbedder struct {
	dimension int
}

func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashingEmbedder{dimension: dimension}
}

func (e *HashingEmbedder) Name() string { return hashingName }

func (e *HashingEmbedder) Dimension() int { return e.dimension }

// Embed returns an L2-normalized vector. It never returns the zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dimension)
	features := e.features(text)
	for _, f := range features {
		idx, sign := e.bucket(f.term)
		vec[idx] += sign * f.weight
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		// Only punctuation, or features cancelled out.
		vec[0] = 1
		norm = 1
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimension)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

type feature struct {
	term   string
	weight float64
}

func (e *HashingEmbedder) features(text string) []feature {
	all := tokenize(text)
	tokens := make([]string, 0, len(all))
	for _, tok := range all {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		tokens = all
	}

	out := make([]feature, 0, len(tokens)*2)
	for i, tok := range tokens {
		out = append(out, feature{term: "u:" + tok, weight: 1})
		if i > 0 {
			out = append(out, feature{term: "b:" + tokens[i-1] + " " + tok, weight: 0.5})
		}
	}
	return out
}

func (e *HashingEmbedder) bucket(term string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(e.dimension)), sign
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
