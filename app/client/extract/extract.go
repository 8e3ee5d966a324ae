package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

var ErrUnsupportedKind = errors.New("unsupported file kind")

var textExtensions = []string{".pdf", ".txt"}

type Extractor struct{}

func New(_ *do.Injector) (*Extractor, error) {
	return &Extractor{}, nil
}

// Supported reports whether text can be extracted from a file with this name.
func Supported(filename string) bool {
	return pie.Contains(textExtensions, extension(filename))
}

// Text extracts the text of a pdf or txt file.
func (e *Extractor) Text(ctx context.Context, data []byte, filename string) (string, error) {
	var loader documentloaders.Loader

	switch extension(filename) {
	case ".pdf":
		loader = documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	case ".txt":
		loader = documentloaders.NewText(bytes.NewReader(data))
	default:
		return "", fmt.Errorf("%s: %w", filename, ErrUnsupportedKind)
	}

	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", filename, err)
	}

	return join(docs), nil
}

func join(docs []schema.Document) string {
	pages := pie.Map(docs, func(d schema.Document) string {
		return d.PageContent
	})
	return strings.TrimSpace(strings.Join(pages, "\n"))
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
