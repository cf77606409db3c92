// Package vectorstore provides per-session document indexes for retrieval.
//
// Every chat session owns a namespace inside the index. Chunks added under a
// namespace are only visible to searches in that namespace, so one session's
// documents never leak into another session's answers. Two implementations
// exist: a Weaviate-backed index for deployments and an in-memory index for
// tests and single-process runs.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Chunk is one retrievable unit of document text.
type Chunk struct {
	// Content is the chunk text that gets embedded and returned to the chain.
	Content string
	// Source identifies where the chunk came from, e.g. "report.pdf_part_3".
	Source string
	// Score is the similarity score assigned by a search. Zero on ingestion.
	Score float64
}

// Retriever searches a single namespace for chunks similar to a query.
//
// Search returns at most k chunks ordered by descending Score. An empty
// result is not an error; it means the namespace holds nothing relevant.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
}

// Index manages namespaced chunk storage.
//
// CreateNamespace prepares storage for a namespace and is idempotent.
// DeleteNamespace removes every chunk in the namespace and is idempotent.
// Add stores chunks under the namespace and reports how many were written.
// Retriever binds a Retriever to the namespace; the returned value stays
// valid even if the namespace is later deleted (searches just come back
// empty).
type Index interface {
	CreateNamespace(ctx context.Context, namespace string) error
	DeleteNamespace(ctx context.Context, namespace string) error
	Add(ctx context.Context, namespace string, chunks []Chunk) (int, error)
	Retriever(namespace string) Retriever
}

// IndexError reports a failed index operation with its namespace and verb.
type IndexError struct {
	Namespace string
	Op        string
	Err       error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s failed for namespace %q: %v", e.Op, e.Namespace, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// IsIndexError reports whether err is or wraps an *IndexError.
func IsIndexError(err error) bool {
	var ie *IndexError
	return errors.As(err, &ie)
}

// sortChunksByScore orders chunks by descending Score in place. The sort is
// stable so equally scored chunks keep their backend ordering.
func sortChunksByScore(chunks []Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
}
