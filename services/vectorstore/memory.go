package vectorstore

import (
	"context"
	"math"
	"strings"
	"sync"
	"unicode"
)

// MemoryIndex keeps all chunks in process memory and ranks searches by
// term-frequency cosine similarity. It needs no embedding backend, which
// makes it the default for tests and for running without Weaviate.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string][]memoryEntry
}

var _ Index = (*MemoryIndex)(nil)

type memoryEntry struct {
	chunk Chunk
	terms map[string]float64
	norm  float64
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{namespaces: make(map[string][]memoryEntry)}
}

// CreateNamespace registers the namespace. Creating one that already exists
// keeps its chunks.
func (m *MemoryIndex) CreateNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.namespaces[namespace]; !ok {
		m.namespaces[namespace] = nil
	}
	return nil
}

// DeleteNamespace drops the namespace and all its chunks. Deleting a missing
// namespace is a no-op.
func (m *MemoryIndex) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

// Add stores the chunks under the namespace, creating it if needed.
func (m *MemoryIndex) Add(_ context.Context, namespace string, chunks []Chunk) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		terms := termFrequencies(chunk.Content)
		m.namespaces[namespace] = append(m.namespaces[namespace], memoryEntry{
			chunk: chunk,
			terms: terms,
			norm:  vectorNorm(terms),
		})
	}
	return len(chunks), nil
}

// Retriever returns a searcher bound to the namespace.
func (m *MemoryIndex) Retriever(namespace string) Retriever {
	return &memoryRetriever{index: m, namespace: namespace}
}

type memoryRetriever struct {
	index     *MemoryIndex
	namespace string
}

// Search ranks the namespace's chunks by cosine similarity against the query
// terms and returns the top k, highest score first. Chunks with no term
// overlap are skipped.
func (r *memoryRetriever) Search(_ context.Context, query string, k int) ([]Chunk, error) {
	queryTerms := termFrequencies(query)
	queryNorm := vectorNorm(queryTerms)
	if queryNorm == 0 {
		return nil, nil
	}

	r.index.mu.RLock()
	entries := r.index.namespaces[r.namespace]
	scored := make([]Chunk, 0, len(entries))
	for _, entry := range entries {
		score := cosine(queryTerms, queryNorm, entry.terms, entry.norm)
		if score <= 0 {
			continue
		}
		chunk := entry.chunk
		chunk.Score = score
		scored = append(scored, chunk)
	}
	r.index.mu.RUnlock()

	sortChunksByScore(scored)
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func termFrequencies(text string) map[string]float64 {
	terms := make(map[string]float64)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, word := range words {
		terms[word]++
	}
	return terms
}

func vectorNorm(terms map[string]float64) float64 {
	var sum float64
	for _, freq := range terms {
		sum += freq * freq
	}
	return math.Sqrt(sum)
}

func cosine(a map[string]float64, aNorm float64, b map[string]float64, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, freq := range a {
		dot += freq * b[term]
	}
	return dot / (aNorm * bNorm)
}
