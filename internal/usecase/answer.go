package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"LinkVault/internal/ports"
	"LinkVault/internal/sanitize"
)

// AnswerMode selects the synthesis prompt template.
type AnswerMode string

const (
	ModeStandard AnswerMode = "standard"
	ModeDeep     AnswerMode = "deep"
)

const contextDelimiter = "\n\n---\n\n"

const standardSystemPrompt = "You answer questions using only the provided archive sources. " +
	"Cite source titles when drawing on them. If the sources do not cover the question, say so."

const deepSystemPrompt = "You are a research analyst synthesizing a personal knowledge archive. " +
	"Work across all provided sources: surface key insights, recurring themes, points of " +
	"disagreement, and gaps the archive does not cover. Attribute claims to their sources."

// Per-mode bounds for excerpt size and generation budget.
var answerBudgets = map[AnswerMode]struct {
	excerptChars int
	maxTokens    int
}{
	ModeStandard: {excerptChars: 1200, maxTokens: 1024},
	ModeDeep:     {excerptChars: 2500, maxTokens: 4096},
}

// AnswerService turns retrieved records plus a query into a synthesized
// answer via the generative provider.
type AnswerService struct {
	generator ports.Generator
	logger    *slog.Logger
}

// NewAnswerService constructs the synthesizer.
func NewAnswerService(generator ports.Generator, logger *slog.Logger) *AnswerService {
	return &AnswerService{generator: generator, logger: logger}
}

// Answer builds one bounded context block per retrieved record and asks
// the provider for a completion. When retrieval produced zero records the
// result is empty with a nil error: generation is skipped, never forced
// on empty context. Provider failures propagate unchanged.
func (a *AnswerService) Answer(ctx context.Context, query string, records []ScoredRecord, mode AnswerMode) (string, error) {
	if len(records) == 0 {
		a.debug("no records retrieved, skipping generation", "mode", mode)
		return "", nil
	}

	budget, ok := answerBudgets[mode]
	if !ok {
		mode = ModeStandard
		budget = answerBudgets[ModeStandard]
	}

	blocks := make([]string, 0, len(records))
	for i, sr := range records {
		blocks = append(blocks, buildContextBlock(i+1, sr, budget.excerptChars))
	}

	system := standardSystemPrompt
	prompt := fmt.Sprintf("Sources:\n\n%s\n\nQuestion: %s", strings.Join(blocks, contextDelimiter), query)
	if mode == ModeDeep {
		system = deepSystemPrompt
		prompt = fmt.Sprintf("Sources:\n\n%s\n\nResearch question: %s\n\n"+
			"Synthesize across sources: insights, themes, and gaps.",
			strings.Join(blocks, contextDelimiter), query)
	}

	answer, err := a.generator.Complete(ctx, ports.CompletionRequest{
		System:    system,
		Prompt:    prompt,
		MaxTokens: budget.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

func buildContextBlock(index int, sr ScoredRecord, excerptChars int) string {
	rec := sr.Record

	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s\n", index, orUntitled(rec.Title))
	if rec.AuthorName != "" {
		fmt.Fprintf(&b, "Author: %s\n", rec.AuthorName)
	}
	fmt.Fprintf(&b, "URL: %s\n", rec.URL)
	if len(rec.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(rec.Topics, ", "))
	}
	if rec.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", rec.Summary)
	}
	if rec.BodyText != "" {
		fmt.Fprintf(&b, "Excerpt: %s\n", sanitize.Truncate(rec.BodyText, excerptChars))
	}
	return strings.TrimRight(b.String(), "\n")
}

func orUntitled(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}

func (a *AnswerService) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
