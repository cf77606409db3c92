package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"notes.txt", FormatText},
		{"README.md", FormatMarkdown},
		{"data.CSV", FormatCSV},
		{"paper.pdf", FormatPDF},
		{"page.html", FormatHTML},
		{"archive.docx", FormatUnsupported},
		{"binary.exe", FormatUnsupported},
		{"noextension", FormatUnsupported},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectFormat(tc.path))
		})
	}
}

func TestIngest_TextFile(t *testing.T) {
	content := "The expense policy allows remote workers to claim internet costs.\n" +
		"Claims must be filed within thirty days of the billing date."
	path := writeTempFile(t, "policy.txt", content)

	chunks, raw, err := NewProcessor().Ingest(context.Background(), []string{path})
	require.NoError(t, err)

	require.Len(t, raw, 1)
	assert.Contains(t, raw[0], "expense policy")

	require.NotEmpty(t, chunks)
	assert.Equal(t, "policy.txt_part_1", chunks[0].Source)
	assert.Contains(t, chunks[0].Content, "expense policy")
}

func TestIngest_SplitsLongDocuments(t *testing.T) {
	paragraph := strings.Repeat("This sentence pads the document well past one chunk. ", 60)
	path := writeTempFile(t, "long.txt", paragraph)

	chunks, raw, err := NewProcessor().Ingest(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Greater(t, len(chunks), 1, "a 3000+ char document must split into multiple chunks")

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), 1000, "chunk %d exceeds the size limit", i)
	}
}

func TestIngest_UnsupportedFormat(t *testing.T) {
	path := writeTempFile(t, "sheet.xlsx", "not really a spreadsheet")

	_, _, err := NewProcessor().Ingest(context.Background(), []string{path})
	require.Error(t, err)

	var ingErr *IngestionError
	require.True(t, errors.As(err, &ingErr), "error must be an *IngestionError")
	assert.Equal(t, path, ingErr.File)
	assert.Contains(t, ingErr.Error(), "unsupported file format")
}

func TestIngest_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.txt")

	_, _, err := NewProcessor().Ingest(context.Background(), []string{missing})
	require.Error(t, err)

	var ingErr *IngestionError
	require.True(t, errors.As(err, &ingErr))
	assert.Equal(t, missing, ingErr.File)
}

func TestIngest_MultipleFiles(t *testing.T) {
	a := writeTempFile(t, "a.txt", "First document about onboarding.")
	b := writeTempFile(t, "b.md", "# Second\n\nSecond document about payroll.")

	chunks, raw, err := NewProcessor().Ingest(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Len(t, raw, 2)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a.txt_part_1", chunks[0].Source)
	assert.Equal(t, "b.md_part_1", chunks[1].Source)
}
