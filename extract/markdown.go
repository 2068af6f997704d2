// Package extract turns document sources into plain speakable text. The
// playback core reads only the extractor's output, so everything that should
// not be spoken (code blocks, raw HTML, image URLs) is removed here.
package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Sentinel errors returned by extractors.
var (
	// ErrNoContent means the source contained no speakable text at all.
	ErrNoContent = errors.New("extract: no speakable content")
	// ErrContentTooShort means speakable text was found but is below the
	// extractor's minimum word count.
	ErrContentTooShort = errors.New("extract: content too short to read aloud")
)

// Result is the speakable form of a document.
type Result struct {
	// Text is plain prose with sentence punctuation preserved, suitable
	// for tokenizing and feeding to a synthesizer.
	Text string
	// Title is the document's first heading, or empty if it has none.
	Title string
	// WordCount is the number of whitespace-delimited tokens in Text.
	WordCount int
}

// Extractor produces speakable text from a raw document source.
type Extractor interface {
	Extract(ctx context.Context, source string) (Result, error)
}

// MarkdownExtractor extracts speakable prose from markdown documents.
// Code blocks, HTML blocks, and images are dropped; link and emphasis text
// is kept; headings and list items get a trailing period so they read as
// complete sentences.
type MarkdownExtractor struct {
	minWords    int
	includeCode bool
}

// Option configures a MarkdownExtractor.
type Option func(*MarkdownExtractor)

// WithMinWords sets the minimum word count below which Extract returns
// ErrContentTooShort.
func WithMinWords(n int) Option {
	return func(e *MarkdownExtractor) { e.minWords = n }
}

// WithCodeBlocks includes a spoken placeholder for code blocks instead of
// dropping them silently.
func WithCodeBlocks(include bool) Option {
	return func(e *MarkdownExtractor) { e.includeCode = include }
}

// NewMarkdownExtractor creates an extractor with default settings.
func NewMarkdownExtractor(opts ...Option) *MarkdownExtractor {
	e := &MarkdownExtractor{minWords: 3}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses source as markdown and returns its speakable text.
func (e *MarkdownExtractor) Extract(ctx context.Context, source string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	md := goldmark.New()
	reader := text.NewReader([]byte(source))
	doc := md.Parser().Parse(reader)

	var buf strings.Builder
	var title string
	e.walkNode(doc, reader.Source(), &buf, &title)

	out := normalizeWhitespace(buf.String())
	words := len(strings.Fields(out))
	if words == 0 {
		return Result{}, ErrNoContent
	}
	if words < e.minWords {
		return Result{}, ErrContentTooShort
	}

	return Result{Text: out, Title: title, WordCount: words}, nil
}

// ExtractSelection extracts only the byte range [start, end) of source,
// clamped to the source's bounds. The range slices the raw source, not the
// extracted text, matching a text selection made on the original document.
func (e *MarkdownExtractor) ExtractSelection(ctx context.Context, source string, start, end int) (Result, error) {
	if start < 0 {
		start = 0
	}
	if end > len(source) {
		end = len(source)
	}
	if start >= end {
		return Result{}, ErrNoContent
	}
	return e.Extract(ctx, source[start:end])
}

// walkNode recursively collects speakable text from the markdown AST.
func (e *MarkdownExtractor) walkNode(node ast.Node, source []byte, buf *strings.Builder, title *string) {
	switch n := node.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if e.includeCode {
			buf.WriteString("Code block omitted. ")
		}
		return

	case *ast.HTMLBlock, *ast.RawHTML, *ast.Image:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteString(" ")
		}

	case *ast.CodeSpan:
		// Inline code is usually an identifier worth hearing.
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.Heading:
		var hbuf strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			e.walkNode(c, source, &hbuf, title)
		}
		heading := strings.TrimSpace(hbuf.String())
		if heading == "" {
			return
		}
		if *title == "" {
			*title = heading
		}
		buf.WriteString(heading)
		endBlock(buf)
		return

	case *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			e.walkNode(c, source, buf, title)
		}
		endBlock(buf)
		return

	case *ast.Link:
		// Speak the link text, never the URL.
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			e.walkNode(c, source, buf, title)
		}
		return

	case *ast.ThematicBreak:
		endBlock(buf)
		return
	}

	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		e.walkNode(c, source, buf, title)
	}
}

// endBlock closes a block element so it reads as its own sentence: a period
// is appended unless the text already ends with sentence punctuation, then
// a separating space.
func endBlock(buf *strings.Builder) {
	content := strings.TrimRight(buf.String(), " \t\n")
	if content == "" {
		return
	}
	buf.Reset()
	buf.WriteString(content)
	switch content[len(content)-1] {
	case '.', '!', '?', ':', ';':
	default:
		buf.WriteString(".")
	}
	buf.WriteString(" ")
}

// normalizeWhitespace collapses whitespace runs into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
