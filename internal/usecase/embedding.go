package usecase

import (
	"strings"

	"LinkVault/internal/domain"
	"LinkVault/internal/sanitize"
)

// embeddingInputLimit approximates the provider's input-size ceiling in
// bytes; input is truncated before submission.
const embeddingInputLimit = 8000

// BuildEmbeddingInput assembles the text submitted for embedding from
// structured fields in fixed priority, so the highest-signal fields
// survive truncation. Deterministic for identical records.
func BuildEmbeddingInput(rec *domain.ContentRecord) string {
	var parts []string
	add := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		parts = append(parts, label+": "+value)
	}

	add("Title", rec.Title)
	add("Summary", rec.Summary)
	if !strings.EqualFold(strings.TrimSpace(rec.Description), strings.TrimSpace(rec.Summary)) {
		add("Description", rec.Description)
	}
	add("Author", rec.AuthorName)
	add("Topics", strings.Join(rec.Topics, ", "))
	add("Content", rec.BodyText)

	return sanitize.Truncate(strings.Join(parts, "\n"), embeddingInputLimit)
}
