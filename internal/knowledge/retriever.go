// Package knowledge owns the vector index of support documents: loading the
// Q&A knowledge base into an embedded chromem collection and retrieving the
// top-K nearest documents for an email summary.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/philippgille/chromem-go"

	"mailpilot/internal/llm"
	"mailpilot/internal/model"
)

// ErrIndexUnavailable means the vector store could not be opened or queried.
// Callers treat it as an empty context, not a fatal failure.
var ErrIndexUnavailable = errors.New("vector index unavailable")

const collectionName = "knowledge_base"

// Retriever performs nearest-neighbor search over the knowledge collection.
type Retriever struct {
	db           *chromem.DB
	coll         *chromem.Collection
	minRelevance float32
	log          *slog.Logger
}

// NewRetriever opens (or creates) the persistent index at dir and binds the
// knowledge collection to the given embedder.
func NewRetriever(dir string, embedder llm.Embedder, minRelevance float32, logger *slog.Logger) (*Retriever, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIndexUnavailable, dir, err)
	}
	embedFn := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	})
	coll, err := db.GetOrCreateCollection(collectionName, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("%w: open collection: %v", ErrIndexUnavailable, err)
	}
	return &Retriever{db: db, coll: coll, minRelevance: minRelevance, log: logger}, nil
}

// Retrieve embeds query and returns up to topK documents ordered by
// descending relevance. Results under the minimum relevance threshold are
// dropped; no qualifying documents is an empty context, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (model.RetrievedContext, error) {
	n := r.coll.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}
	results, err := r.coll.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrIndexUnavailable, err)
	}

	docs := make(model.RetrievedContext, 0, len(results))
	for _, res := range results {
		if res.Similarity < r.minRelevance {
			continue
		}
		docs = append(docs, model.ContextDoc{
			Text:  formatDoc(res),
			Score: res.Similarity,
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	return docs, nil
}

// Healthy reports whether the collection is open and populated.
func (r *Retriever) Healthy() bool {
	return r.coll != nil && r.coll.Count() > 0
}

// formatDoc renders one hit for prompt inclusion, preferring the structured
// Q/A metadata stored by the loader.
func formatDoc(res chromem.Result) string {
	q, okQ := res.Metadata["question"]
	a, okA := res.Metadata["answer"]
	if okQ && okA {
		return "Q: " + q + "\nA: " + a
	}
	return res.Content
}
