package material

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/metrics"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrEmptyFile   = errors.New("empty file")
	ErrNoText      = errors.New("no text could be extracted")
)

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// Ext is the lower-cased extension including the dot.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Extractor turns a document's bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// Registry picks an extractor by file extension.
type Registry struct {
	byExt   map[string]Extractor
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewRegistry returns a registry with the built-in formats registered.
func NewRegistry(m *metrics.Metrics, logger zerolog.Logger) *Registry {
	r := &Registry{
		byExt:   make(map[string]Extractor),
		metrics: m,
		logger:  logger.With().Str("component", "material_extractor").Logger(),
	}
	plain := ExtractorFunc(extractPlain)
	r.Register(".txt", plain)
	r.Register(".md", plain)
	r.Register(".json", plain)
	r.Register(".csv", ExtractorFunc(extractCSV))
	r.Register(".docx", ExtractorFunc(extractDOCX))
	r.Register(".pptx", ExtractorFunc(extractPPTX))
	r.Register(".pdf", ExtractorFunc(extractPDF))
	return r
}

// Register adds or replaces the extractor for ext (".pdf" or "pdf").
func (r *Registry) Register(ext string, e Extractor) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.byExt[ext] = e
}

// Supports reports whether name has a registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.byExt[File{Name: name}.Ext()]
	return ok
}

func (r *Registry) Extract(ctx context.Context, f File) (string, error) {
	ext := f.Ext()
	e, ok := r.byExt[ext]
	if !ok {
		r.metrics.ObserveExtraction(ext, "unsupported")
		return "", fmt.Errorf("%s: %w %q", f.Name, ErrUnsupported, ext)
	}
	if len(f.Data) == 0 {
		r.metrics.ObserveExtraction(ext, "empty")
		return "", fmt.Errorf("%s: %w", f.Name, ErrEmptyFile)
	}

	text, err := e.Extract(ctx, f.Data)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrNoText
	}
	if err != nil {
		r.metrics.ObserveExtraction(ext, "error")
		r.logger.Warn().Err(err).Str("file", f.Name).Msg("text extraction failed")
		return "", fmt.Errorf("%s: %w", f.Name, err)
	}
	r.metrics.ObserveExtraction(ext, "ok")
	return strings.TrimSpace(text), nil
}

func extractPlain(_ context.Context, data []byte) (string, error) {
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

// extractCSV renders each record as one comma-separated line.
func extractCSV(_ context.Context, data []byte) (string, error) {
	rd := csv.NewReader(bytes.NewReader(data))
	rd.FieldsPerRecord = -1
	rd.LazyQuotes = true

	var b strings.Builder
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("csv: %w", err)
		}
		b.WriteString(strings.Join(rec, ", "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}
