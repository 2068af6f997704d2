package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExtractBasicDocument(t *testing.T) {
	source := `# Getting Started

This is the first paragraph. It has two sentences.

Second paragraph here
`
	e := NewMarkdownExtractor()
	got, err := e.Extract(context.Background(), source)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if got.Title != "Getting Started" {
		t.Errorf("Title = %q, want %q", got.Title, "Getting Started")
	}
	if !strings.Contains(got.Text, "Getting Started.") {
		t.Errorf("heading not terminated as a sentence: %q", got.Text)
	}
	if !strings.Contains(got.Text, "Second paragraph here.") {
		t.Errorf("unterminated paragraph did not get a period: %q", got.Text)
	}
	if got.WordCount != len(strings.Fields(got.Text)) {
		t.Errorf("WordCount = %d, text has %d words", got.WordCount, len(strings.Fields(got.Text)))
	}
}

func TestExtractSkipsCodeAndImages(t *testing.T) {
	source := "Before the code.\n\n```go\nfunc secret() {}\n```\n\n![diagram](https://example.com/d.png)\n\nAfter the code.\n"
	e := NewMarkdownExtractor()
	got, err := e.Extract(context.Background(), source)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	for _, banned := range []string{"func secret", "example.com", "diagram"} {
		if strings.Contains(got.Text, banned) {
			t.Errorf("extracted text contains %q: %q", banned, got.Text)
		}
	}
	if !strings.Contains(got.Text, "Before the code.") || !strings.Contains(got.Text, "After the code.") {
		t.Errorf("surrounding prose lost: %q", got.Text)
	}
}

func TestExtractKeepsLinkAndInlineCodeText(t *testing.T) {
	source := "Read the [installation guide](https://example.com/install) and run `make install`.\n"
	e := NewMarkdownExtractor()
	got, err := e.Extract(context.Background(), source)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if !strings.Contains(got.Text, "installation guide") {
		t.Errorf("link text dropped: %q", got.Text)
	}
	if strings.Contains(got.Text, "https://") {
		t.Errorf("link URL leaked into text: %q", got.Text)
	}
	if !strings.Contains(got.Text, "make install") {
		t.Errorf("inline code dropped: %q", got.Text)
	}
}

func TestExtractListItems(t *testing.T) {
	source := "Shopping list:\n\n- apples\n- fresh bread\n- oat milk\n"
	e := NewMarkdownExtractor()
	got, err := e.Extract(context.Background(), source)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !strings.Contains(got.Text, "apples.") {
		t.Errorf("list item not terminated as a sentence: %q", got.Text)
	}
}

func TestExtractNoContent(t *testing.T) {
	e := NewMarkdownExtractor()
	for _, source := range []string{"", "```\ncode only\n```\n", "![img](x.png)\n"} {
		if _, err := e.Extract(context.Background(), source); !errors.Is(err, ErrNoContent) {
			t.Errorf("Extract(%q) error = %v, want ErrNoContent", source, err)
		}
	}
}

func TestExtractTooShort(t *testing.T) {
	e := NewMarkdownExtractor(WithMinWords(10))
	_, err := e.Extract(context.Background(), "Two words.")
	if !errors.Is(err, ErrContentTooShort) {
		t.Errorf("error = %v, want ErrContentTooShort", err)
	}
}

func TestExtractSelection(t *testing.T) {
	source := "First sentence stays out. The selected middle part is read aloud. Tail stays out."
	start := strings.Index(source, "The selected")
	end := strings.Index(source, " Tail")

	e := NewMarkdownExtractor()
	got, err := e.ExtractSelection(context.Background(), source, start, end)
	if err != nil {
		t.Fatalf("ExtractSelection returned error: %v", err)
	}
	if !strings.Contains(got.Text, "selected middle part") {
		t.Errorf("selection missing: %q", got.Text)
	}
	if strings.Contains(got.Text, "First sentence") || strings.Contains(got.Text, "Tail") {
		t.Errorf("selection leaked surrounding text: %q", got.Text)
	}
}

func TestExtractSelectionClampsRange(t *testing.T) {
	source := "Only a few words here."
	e := NewMarkdownExtractor()

	if _, err := e.ExtractSelection(context.Background(), source, -10, len(source)+10); err != nil {
		t.Errorf("clamped full-range selection failed: %v", err)
	}
	if _, err := e.ExtractSelection(context.Background(), source, 15, 5); !errors.Is(err, ErrNoContent) {
		t.Errorf("inverted range error = %v, want ErrNoContent", err)
	}
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewMarkdownExtractor()
	if _, err := e.Extract(ctx, "Some text."); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
