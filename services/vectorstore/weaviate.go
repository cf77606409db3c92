package vectorstore

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"

	"github.com/docsage/docsage/services/llm"
)

var tracer = otel.Tracer("docsage.vectorstore")

// DocumentChunkClassName is the Weaviate class holding all session chunks.
// Namespacing happens through the data_space property, not separate classes.
const DocumentChunkClassName = "DocumentChunk"

// WeaviateIndex stores chunks in a single Weaviate class, isolated per
// namespace by a data_space filter. Vectors are computed client-side through
// the configured embedder, so the class uses Vectorizer "none".
type WeaviateIndex struct {
	client   *weaviate.Client
	embedder llm.EmbeddingProvider
}

var _ Index = (*WeaviateIndex)(nil)

// NewWeaviateIndex creates an index backed by the given Weaviate client.
func NewWeaviateIndex(client *weaviate.Client, embedder llm.EmbeddingProvider) (*WeaviateIndex, error) {
	if client == nil {
		return nil, fmt.Errorf("weaviate client must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder must not be nil")
	}
	return &WeaviateIndex{client: client, embedder: embedder}, nil
}

// documentChunkSchema returns the class definition for DocumentChunk.
func documentChunkSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       DocumentChunkClassName,
		Description: "A chunk of an ingested document, scoped to one chat session.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The chunk text.",
				Tokenization: "word",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "The file the chunk was split from.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "data_space",
				DataType:        []string{"text"},
				Description:     "Session namespace this chunk belongs to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "ingested_at",
				DataType:        []string{"number"},
				Description:     "Timestamp (Unix ms) of when the chunk was ingested.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// CreateNamespace ensures the DocumentChunk class exists. Namespaces are
// just filter values, so no per-namespace storage needs to be provisioned.
func (w *WeaviateIndex) CreateNamespace(ctx context.Context, namespace string) error {
	ctx, span := tracer.Start(ctx, "WeaviateIndex.CreateNamespace")
	defer span.End()

	class := documentChunkSchema()
	_, err := w.client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
	if err != nil {
		// ClassGetter errors when the class is missing. Create it.
		slog.Info("Schema not found, creating it", "class", class.Class)
		if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return &IndexError{Namespace: namespace, Op: "create", Err: err}
		}
	}
	return nil
}

// DeleteNamespace batch-deletes every chunk whose data_space matches the
// namespace. Deleting a namespace that holds nothing succeeds.
func (w *WeaviateIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	ctx, span := tracer.Start(ctx, "WeaviateIndex.DeleteNamespace")
	defer span.End()

	whereFilter := filters.Where().
		WithPath([]string{"data_space"}).
		WithOperator(filters.Equal).
		WithValueString(namespace)

	_, err := w.client.Batch().ObjectsBatchDeleter().
		WithClassName(DocumentChunkClassName).
		WithOutput("minimal").
		WithWhere(whereFilter).
		Do(ctx)
	if err != nil {
		slog.Error("failed to delete chunks from Weaviate", "namespace", namespace, "error", err)
		return &IndexError{Namespace: namespace, Op: "delete", Err: err}
	}

	slog.Info("Deleted namespace chunks", "namespace", namespace)
	return nil
}

// Add embeds the chunks and batch-imports them in one request. Object IDs
// are derived from a content hash so re-ingesting the same text overwrites
// instead of duplicating.
func (w *WeaviateIndex) Add(ctx context.Context, namespace string, chunks []Chunk) (int, error) {
	ctx, span := tracer.Start(ctx, "WeaviateIndex.Add")
	defer span.End()

	if len(chunks) == 0 {
		return 0, nil
	}

	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		vector, err := w.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return 0, &IndexError{Namespace: namespace, Op: "embed", Err: err}
		}

		hash := sha256.Sum256([]byte(namespace + chunk.Content))
		docUUID, _ := uuid.FromBytes(hash[:16])

		objects[i] = &models.Object{
			Class:  DocumentChunkClassName,
			ID:     strfmt.UUID(docUUID.String()),
			Vector: vector,
			Properties: map[string]interface{}{
				"content":     chunk.Content,
				"source":      chunk.Source,
				"data_space":  namespace,
				"ingested_at": time.Now().UnixMilli(),
			},
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, &IndexError{Namespace: namespace, Op: "add", Err: err}
	}

	written := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			written++
		} else if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Error in Weaviate batch item", "namespace", namespace, "error", errItem.Message)
			}
		}
	}

	slog.Info("Imported chunks", "namespace", namespace, "written", written, "total", len(chunks))
	return written, nil
}

// Retriever returns a searcher bound to the namespace.
func (w *WeaviateIndex) Retriever(namespace string) Retriever {
	return &weaviateRetriever{index: w, namespace: namespace}
}

type weaviateRetriever struct {
	index     *WeaviateIndex
	namespace string
}

// Search embeds the query and runs a nearVector search filtered to the
// namespace. Certainty is reported as the chunk score; results come back
// ordered by descending score.
func (r *weaviateRetriever) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	ctx, span := tracer.Start(ctx, "weaviateRetriever.Search")
	defer span.End()

	vector, err := r.index.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &IndexError{Namespace: r.namespace, Op: "embed", Err: err}
	}

	whereFilter := filters.Where().
		WithPath([]string{"data_space"}).
		WithOperator(filters.Equal).
		WithValueString(r.namespace)

	nearVector := r.index.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	// Certainty is always in [0,1] regardless of the distance metric.
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := r.index.client.GraphQL().Get().
		WithClassName(DocumentChunkClassName).
		WithFields(fields...).
		WithWhere(whereFilter).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, &IndexError{Namespace: r.namespace, Op: "search", Err: err}
	}
	if len(result.Errors) > 0 {
		return nil, &IndexError{Namespace: r.namespace, Op: "search",
			Err: fmt.Errorf("graphql error: %s", result.Errors[0].Message)}
	}

	chunks := parseChunkResults(result.Data)
	sortChunksByScore(chunks)
	if len(chunks) > k {
		chunks = chunks[:k]
	}

	slog.Debug("Search complete", "namespace", r.namespace, "query_len", len(query), "hits", len(chunks))
	return chunks, nil
}

// parseChunkResults walks the untyped GraphQL response shape
// {Get: {DocumentChunk: [{content, source, _additional: {certainty}}]}}.
func parseChunkResults(data map[string]models.JSONObject) []Chunk {
	var chunks []Chunk

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return chunks
	}
	items, ok := get[DocumentChunkClassName].([]interface{})
	if !ok {
		return chunks
	}

	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		chunk := Chunk{}
		if content, ok := obj["content"].(string); ok {
			chunk.Content = content
		}
		if source, ok := obj["source"].(string); ok {
			chunk.Source = source
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				chunk.Score = certainty
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
