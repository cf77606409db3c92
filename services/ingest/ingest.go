// Package ingest turns uploaded files into retrievable chunks.
//
// Loader selection is explicit: a file's extension maps to a Format variant,
// and unsupported formats produce a typed IngestionError instead of failing
// somewhere inside a loader. Parsed text is both split into chunks for the
// vector index and returned whole for summarization.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/docsage/docsage/services/vectorstore"
)

var (
	chunkSize    = 1000
	chunkOverlap = 200

	defaultSeparators  = []string{"\n\n", "\n", " ", ""}
	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
)

// IngestionError reports a file that could not be ingested.
type IngestionError struct {
	File string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed for %q: %v", e.File, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Format detection
// ============================================================================

// Format identifies how a file's content gets parsed.
type Format int

const (
	FormatText Format = iota
	FormatMarkdown
	FormatCSV
	FormatPDF
	FormatHTML
	FormatUnsupported
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatMarkdown:
		return "markdown"
	case FormatCSV:
		return "csv"
	case FormatPDF:
		return "pdf"
	case FormatHTML:
		return "html"
	default:
		return "unsupported"
	}
}

// DetectFormat maps a file path to its Format by extension. Anything not in
// the table is FormatUnsupported.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".log":
		return FormatText
	case ".md", ".markdown":
		return FormatMarkdown
	case ".csv":
		return FormatCSV
	case ".pdf":
		return FormatPDF
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatUnsupported
	}
}

// ============================================================================
// Processing
// ============================================================================

// Processor loads, parses, and splits documents.
type Processor struct {
	splitterFor func(Format) textsplitter.TextSplitter
}

// NewProcessor creates a Processor with the default splitter table.
func NewProcessor() *Processor {
	return &Processor{splitterFor: splitterForFormat}
}

// Ingest processes each file and returns the chunks for indexing alongside
// the raw per-file text for summarization. The first failing file aborts the
// batch with an *IngestionError naming it.
func (p *Processor) Ingest(ctx context.Context, paths []string) ([]vectorstore.Chunk, []string, error) {
	var allChunks []vectorstore.Chunk
	var rawTexts []string

	for _, path := range paths {
		docs, err := p.loadFile(ctx, path)
		if err != nil {
			return nil, nil, &IngestionError{File: path, Err: err}
		}

		format := DetectFormat(path)
		splitter := p.splitterFor(format)
		base := filepath.Base(path)

		part := 0
		for _, doc := range docs {
			rawTexts = append(rawTexts, doc.PageContent)

			pieces, err := splitter.SplitText(doc.PageContent)
			if err != nil {
				return nil, nil, &IngestionError{File: path, Err: fmt.Errorf("splitting text: %w", err)}
			}
			for _, piece := range pieces {
				part++
				allChunks = append(allChunks, vectorstore.Chunk{
					Content: piece,
					Source:  fmt.Sprintf("%s_part_%d", base, part),
				})
			}
		}

		slog.Info("Ingested file", "file", base, "format", format.String(), "chunks", part)
	}

	return allChunks, rawTexts, nil
}

// loadFile opens the file and parses it with the loader for its format.
func (p *Processor) loadFile(ctx context.Context, path string) ([]schema.Document, error) {
	format := DetectFormat(path)
	if format == FormatUnsupported {
		return nil, fmt.Errorf("unsupported file format %q", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var loader documentloaders.Loader
	switch format {
	case FormatText, FormatMarkdown:
		loader = documentloaders.NewText(f)
	case FormatCSV:
		loader = documentloaders.NewCSV(f)
	case FormatPDF:
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat file: %w", err)
		}
		loader = documentloaders.NewPDF(f, info.Size())
	case FormatHTML:
		loader = documentloaders.NewHTML(f)
	}

	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing %s content: %w", format.String(), err)
	}
	return docs, nil
}

// splitterForFormat picks separators suited to the format. Markdown splits
// on headings first so chunks follow the document structure.
func splitterForFormat(format Format) textsplitter.TextSplitter {
	switch format {
	case FormatMarkdown:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(markdownSeparators),
		)
	default:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(defaultSeparators),
		)
	}
}
