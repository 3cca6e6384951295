package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apresai/promptpatterns/internal/metrics"
)

type SourceType string

const (
	SourceURL     SourceType = "url"
	SourcePDF     SourceType = "pdf"
	SourceText    SourceType = "text"
	SourceLiteral SourceType = "literal"

	// maxInputSize is the maximum allowed size for input content (25 MB).
	maxInputSize = 25 * 1024 * 1024

	// MaxRunes caps the text handed to a pattern as its scenario input.
	MaxRunes = 8000
)

func (s SourceType) String() string {
	return string(s)
}

// Content is custom input text for the style transfer and persona patterns.
type Content struct {
	Text      string
	Title     string
	Source    string
	Type      SourceType
	Chars     int
	Truncated bool
}

type Ingester interface {
	Ingest(ctx context.Context, source string) (*Content, error)
}

// DetectSource classifies --input: an http(s) URL, a PDF path, an existing
// file, or otherwise the literal text itself.
func DetectSource(input string) SourceType {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return SourceURL
	}
	if strings.HasSuffix(strings.ToLower(input), ".pdf") {
		return SourcePDF
	}
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		return SourceText
	}
	return SourceLiteral
}

func NewIngester(input string) Ingester {
	switch DetectSource(input) {
	case SourceURL:
		return &URLIngester{}
	case SourcePDF:
		return &PDFIngester{}
	case SourceText:
		return &TextIngester{}
	default:
		return &LiteralIngester{}
	}
}

// Load ingests input with the ingester DetectSource picks and clamps the
// result to MaxRunes.
func Load(ctx context.Context, input string) (*Content, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}
	c, err := NewIngester(input).Ingest(ctx, input)
	if err != nil {
		return nil, err
	}
	c.Text = strings.TrimSpace(c.Text)
	if r := []rune(c.Text); len(r) > MaxRunes {
		c.Text = string(r[:MaxRunes])
		c.Truncated = true
	}
	c.Chars = metrics.CountChars(c.Text)
	return c, nil
}

// LiteralIngester treats the source string as the text.
type LiteralIngester struct{}

func (l *LiteralIngester) Ingest(_ context.Context, source string) (*Content, error) {
	return &Content{
		Text:   source,
		Title:  titleFromText(source, 80),
		Source: "inline",
		Type:   SourceLiteral,
	}, nil
}

func titleFromText(text string, maxLen int) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		line = text[:idx]
	}
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > maxLen {
		line = string(r[:maxLen]) + "..."
	}
	if line == "" {
		return "Untitled"
	}
	return line
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxInputSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxInputSize/(1024*1024))
	}
	return nil
}
