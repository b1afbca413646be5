package sanitize

import (
	"strings"
	"testing"
)

func TestCleanRemovesControlAndPrivateUse(t *testing.T) {
	t.Parallel()

	in := "Hello\x00 \x07World\uE000!\v"
	got := Clean(in)
	if got != "Hello World!" {
		t.Fatalf("got %q", got)
	}
}

func TestCleanKeepsNewlinesAndTabs(t *testing.T) {
	t.Parallel()

	got := Clean("line one\r\nline two\tend")
	if got != "line one\nline two\tend" {
		t.Fatalf("got %q", got)
	}
}

func TestCleanCollapsesBlankLines(t *testing.T) {
	t.Parallel()

	got := Clean("a\n\n\n\n\nb")
	if got != "a\n\nb" {
		t.Fatalf("got %q", got)
	}
}

func TestCleanComposesAfterStripping(t *testing.T) {
	t.Parallel()

	// A control character between a base letter and a combining accent:
	// composition must see the pair the strip exposes.
	got := Clean("cafe\x07\u0301")
	if got != "caf\u00e9" {
		t.Fatalf("got %q, want composed form", got)
	}
	if again := Clean(got); again != got {
		t.Fatalf("not stable: %q != %q", again, got)
	}
}

func TestCleanIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"plain text",
		"e\x07\u0301 and a\x00\u0308o",
		"unícode\x00 mixed",
		"  padded  \n\n\n\nlines\r\n",
		"",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestTruncateRespectsRuneBoundaries(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("é", 10) // 2 bytes each
	got := Truncate(s, 5)
	if got != strings.Repeat("é", 2) {
		t.Fatalf("got %q (%d bytes)", got, len(got))
	}
	if Truncate("short", 100) != "short" {
		t.Fatal("under-limit input must be unchanged")
	}
}
