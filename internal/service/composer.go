package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

const (
	DefaultHistoryWindow    = 6
	DefaultMaxContextTokens = 3000
)

// LanguageModel completes a prompt. Implementations are the chat-completions
// client and the Anthropic client.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TokenCounter measures prompt sections against the context budget.
type TokenCounter interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}

// PromptTemplates holds the fixed prose of the prompt. It can be overridden from YAML.
type PromptTemplates struct {
	Instruction   string `yaml:"instruction"`
	NoKnowledge   string `yaml:"no_knowledge"`
	ContextHeader string `yaml:"context_header"`
	HistoryHeader string `yaml:"history_header"`
}

// DefaultPromptTemplates returns the built-in prompt prose.
func DefaultPromptTemplates() PromptTemplates {
	return PromptTemplates{
		Instruction: "You are a personal knowledge assistant. Answer the question using only the captured knowledge below. " +
			"If it does not contain the answer, say that you do not have that information. Do not invent facts.",
		NoKnowledge: "No matching knowledge was found in the captured notes. " +
			"Tell the user you have no information about this in their captured knowledge instead of guessing an answer.",
		ContextHeader: "Captured knowledge:",
		HistoryHeader: "Recent conversation:",
	}
}

// LoadPromptTemplates reads overrides from a YAML file. Keys missing from the
// file keep their defaults.
func LoadPromptTemplates(path string) (PromptTemplates, error) {
	tpl := DefaultPromptTemplates()
	if path == "" {
		return tpl, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tpl, fmt.Errorf("failed to read prompt templates: %w", err)
	}
	var override PromptTemplates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tpl, fmt.Errorf("failed to parse prompt templates %s: %w", path, err)
	}
	if override.Instruction != "" {
		tpl.Instruction = override.Instruction
	}
	if override.NoKnowledge != "" {
		tpl.NoKnowledge = override.NoKnowledge
	}
	if override.ContextHeader != "" {
		tpl.ContextHeader = override.ContextHeader
	}
	if override.HistoryHeader != "" {
		tpl.HistoryHeader = override.HistoryHeader
	}
	return tpl, nil
}

type ComposerConfig struct {
	Templates        PromptTemplates
	HistoryWindow    int
	MaxContextTokens int
}

// AnswerComposer builds a grounded prompt and asks the language model once.
type AnswerComposer struct {
	model         LanguageModel
	counter       TokenCounter
	templates     PromptTemplates
	historyWindow int
	maxTokens     int
}

func NewAnswerComposer(model LanguageModel, counter TokenCounter, cfg ComposerConfig) *AnswerComposer {
	if cfg.HistoryWindow < 0 {
		cfg.HistoryWindow = 0
	} else if cfg.HistoryWindow == 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = DefaultMaxContextTokens
	}
	if cfg.Templates == (PromptTemplates{}) {
		cfg.Templates = DefaultPromptTemplates()
	}
	return &AnswerComposer{
		model:         model,
		counter:       counter,
		templates:     cfg.Templates,
		historyWindow: cfg.HistoryWindow,
		maxTokens:     cfg.MaxContextTokens,
	}
}

// ComposeAnswer returns the model's answer, trimmed of surrounding whitespace.
func (c *AnswerComposer) ComposeAnswer(ctx context.Context, query string, retrieved []domain.RetrievalResult, history []domain.ConversationTurn) (string, error) {
	prompt := c.BuildPrompt(query, retrieved, history)

	out, err := c.model.Complete(ctx, prompt)
	if err != nil {
		return "", domain.Wrap(ctx, domain.ErrCodeGenerationFailed, "language model failed", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", domain.ErrEmptyModelOutput
	}
	return out, nil
}

// BuildPrompt assembles instruction, context, history and question. The
// context and history sections together stay within the token budget: older
// turns go first, then the lowest-scored chunks, and the top chunk is truncated last.
func (c *AnswerComposer) BuildPrompt(query string, retrieved []domain.RetrievalResult, history []domain.ConversationTurn) string {
	results := make([]domain.RetrievalResult, len(retrieved))
	copy(results, retrieved)
	domain.SortResults(results)

	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = formatContextEntry(i+1, r)
	}

	turns := history
	if len(turns) > c.historyWindow {
		turns = turns[len(turns)-c.historyWindow:]
	}
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}

	total := c.countAll(entries) + c.countAll(lines)
	for total > c.maxTokens && len(lines) > 0 {
		total -= c.counter.Count(lines[0])
		lines = lines[1:]
	}
	for total > c.maxTokens && len(entries) > 1 {
		total -= c.counter.Count(entries[len(entries)-1])
		entries = entries[:len(entries)-1]
	}
	if total > c.maxTokens && len(entries) == 1 {
		entries[0] = c.counter.Truncate(entries[0], c.maxTokens)
	}

	var sb strings.Builder
	sb.WriteString(c.templates.Instruction)
	sb.WriteString("\n\n")

	if len(entries) == 0 {
		sb.WriteString(c.templates.NoKnowledge)
	} else {
		sb.WriteString(c.templates.ContextHeader)
		for _, e := range entries {
			sb.WriteByte('\n')
			sb.WriteString(e)
		}
	}
	sb.WriteString("\n\n")

	if len(lines) > 0 {
		sb.WriteString(c.templates.HistoryHeader)
		for _, l := range lines {
			sb.WriteByte('\n')
			sb.WriteString(l)
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(query))
	sb.WriteString("\nAnswer:")
	return sb.String()
}

func (c *AnswerComposer) countAll(parts []string) int {
	n := 0
	for _, p := range parts {
		n += c.counter.Count(p)
	}
	return n
}

func formatContextEntry(n int, r domain.RetrievalResult) string {
	if r.Chunk.SourceTag == "" {
		return fmt.Sprintf("[%d] %s", n, r.Chunk.Text)
	}
	return fmt.Sprintf("[%d] (source: %s) %s", n, r.Chunk.SourceTag, r.Chunk.Text)
}
