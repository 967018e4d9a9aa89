// Package tokenizer counts prompt tokens with the cl100k_base encoding.
package tokenizer

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const encodingName = "cl100k_base"

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var (
	shared     *Counter
	sharedOnce sync.Once
)

// Counter counts tokens. Without an encoding it estimates one token per four runes.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// Default returns the process-wide counter, loading the encoding once.
func Default() *Counter {
	sharedOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			slog.Warn("tokenizer: encoding unavailable, using estimate", "encoding", encodingName, "error", err)
			shared = &Counter{}
			return
		}
		shared = &Counter{encoding: enc}
	})
	return shared
}

// Estimator returns a counter that never loads an encoding.
func Estimator() *Counter {
	return &Counter{}
}

// Method reports how tokens are counted.
func (c *Counter) Method() string {
	if c.encoding == nil {
		return "estimate"
	}
	return "tiktoken"
}

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.encoding == nil {
		return estimate(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Truncate returns the longest prefix of text that fits in maxTokens.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if c.Count(text) <= maxTokens {
		return text
	}
	if c.encoding == nil {
		runes := []rune(text)
		limit := maxTokens * 4
		if limit > len(runes) {
			limit = len(runes)
		}
		for limit > 0 && estimate(string(runes[:limit])) > maxTokens {
			limit--
		}
		return string(runes[:limit])
	}
	tokens := c.encoding.Encode(text, nil, nil)
	out := c.encoding.Decode(tokens[:maxTokens])
	// A cut inside a multi-byte rune decodes to an invalid tail.
	for len(out) > 0 && !utf8.ValidString(out) {
		out = out[:len(out)-1]
	}
	return out
}

func estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
