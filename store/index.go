package store

import (
	"context"
	"fmt"
	"log/slog"

	"supportbot/model"
	"supportbot/types"
)

// VectorIndex wraps the embedding endpoint and the document store into
// the retrieval surface the pipeline consumes.
//
// Score convention: cosine distance, lower = more similar. Search
// results are ordered by ascending score and the scores are exposed at
// the boundary unchanged.
type VectorIndex struct {
	db        DBStorer
	embedder  model.EmbedderInterface
	batchSize int
	// maxDocs caps how many documents one Index call accepts; 0 means
	// no cap.
	maxDocs int
	logger  *slog.Logger
}

func NewVectorIndex(db DBStorer, embedder model.EmbedderInterface, batchSize, maxDocs int) *VectorIndex {
	return &VectorIndex{
		db:        db,
		embedder:  embedder,
		batchSize: batchSize,
		maxDocs:   maxDocs,
		logger:    slog.Default(),
	}
}

// Index embeds and stores documents in order-preserving batches of at
// most batchSize. A failure aborts at the failing batch; batches
// already written stay in the index, so a retry can resume from the
// remainder.
func (v *VectorIndex) Index(ctx context.Context, docs []types.Document) error {
	if v.maxDocs > 0 && len(docs) > v.maxDocs {
		v.logger.Warn("document cap reached, truncating corpus",
			"given", len(docs), "cap", v.maxDocs)
		docs = docs[:v.maxDocs]
	}

	total := len(docs)
	for start := 0; start < total; start += v.batchSize {
		end := min(start+v.batchSize, total)
		batch := docs[start:end]

		embeddings := make([][]float32, len(batch))
		for i, doc := range batch {
			vec, err := v.embedder.Embed(ctx, doc.Content)
			if err != nil {
				return fmt.Errorf("error embedding document %d: %w", start+i, err)
			}
			embeddings[i] = vec
		}

		if err := v.db.SaveDocuments(ctx, batch, embeddings); err != nil {
			return fmt.Errorf("error saving batch %d-%d: %w", start, end, err)
		}
		v.logger.Info("indexed batch", "from", start, "to", end, "total", total)
	}
	return nil
}

// Search returns the k documents most similar to the query, best match
// first. Failures wrap as types.RetrievalError.
func (v *VectorIndex) Search(ctx context.Context, query string, k int) ([]types.ScoredDocument, error) {
	vec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, types.NewRetrievalError(fmt.Errorf("error embedding query: %w", err))
	}

	docs, err := v.db.Search(ctx, vec, k)
	if err != nil {
		return nil, types.NewRetrievalError(err)
	}
	return docs, nil
}

// Health verifies the index is reachable and returns the document count.
func (v *VectorIndex) Health(ctx context.Context) (int, error) {
	if err := v.db.Ping(ctx); err != nil {
		return 0, types.NewRetrievalError(err)
	}
	count, err := v.db.Count(ctx)
	if err != nil {
		return 0, types.NewRetrievalError(err)
	}
	return count, nil
}
