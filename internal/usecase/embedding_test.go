package usecase

import (
	"strings"
	"testing"

	"LinkVault/internal/domain"
)

func TestBuildEmbeddingInputPriority(t *testing.T) {
	t.Parallel()

	rec := &domain.ContentRecord{
		Title:      "Linear Types",
		Summary:    "Ownership without garbage collection.",
		AuthorName: "P. Wadler",
		Topics:     []string{"types", "memory"},
		BodyText:   "Body of the article.",
	}

	got := BuildEmbeddingInput(rec)
	want := "Title: Linear Types\n" +
		"Summary: Ownership without garbage collection.\n" +
		"Author: P. Wadler\n" +
		"Topics: types, memory\n" +
		"Content: Body of the article."
	if got != want {
		t.Errorf("input = %q\nwant %q", got, want)
	}
}

func TestBuildEmbeddingInputSkipsDescriptionEqualToSummary(t *testing.T) {
	t.Parallel()

	rec := &domain.ContentRecord{
		Title:       "A",
		Summary:     "Same text.",
		Description: "  same TEXT.  ",
	}
	got := BuildEmbeddingInput(rec)
	if strings.Contains(got, "Description:") {
		t.Errorf("duplicate description included: %q", got)
	}

	rec.Description = "Distinct abstract."
	got = BuildEmbeddingInput(rec)
	if !strings.Contains(got, "Description: Distinct abstract.") {
		t.Errorf("distinct description omitted: %q", got)
	}
}

func TestBuildEmbeddingInputEmptyRecord(t *testing.T) {
	t.Parallel()

	if got := BuildEmbeddingInput(&domain.ContentRecord{}); got != "" {
		t.Errorf("input = %q, want empty", got)
	}
}

func TestBuildEmbeddingInputTruncates(t *testing.T) {
	t.Parallel()

	rec := &domain.ContentRecord{
		Title:    "Big",
		BodyText: strings.Repeat("x", embeddingInputLimit*2),
	}
	got := BuildEmbeddingInput(rec)
	if len(got) > embeddingInputLimit {
		t.Errorf("input length = %d, want <= %d", len(got), embeddingInputLimit)
	}
	if !strings.HasPrefix(got, "Title: Big") {
		t.Errorf("title lost under truncation: %q", got[:40])
	}
}

func TestBuildEmbeddingInputDeterministic(t *testing.T) {
	t.Parallel()

	rec := &domain.ContentRecord{Title: "T", Summary: "S", BodyText: "B"}
	if BuildEmbeddingInput(rec) != BuildEmbeddingInput(rec) {
		t.Error("input not deterministic for identical records")
	}
}
