package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type TextIngester struct{}

func (t *TextIngester) Ingest(ctx context.Context, source string) (*Content, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", source, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file %s is not UTF-8 text", source)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("file %s is empty", source)
	}

	return &Content{
		Text:   text,
		Title:  titleFromText(text, 80),
		Source: filepath.Base(source),
		Type:   SourceText,
	}, nil
}
