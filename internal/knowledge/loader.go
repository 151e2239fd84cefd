package knowledge

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/philippgille/chromem-go"
)

// Chunk is one Q&A pair from the knowledge base file.
type Chunk struct {
	Question string
	Answer   string
}

// Text is the string that gets embedded for this chunk.
func (c Chunk) Text() string { return c.Question + " " + c.Answer }

// SplitKnowledgeBase parses the knowledge base format: lines starting with
// "Q:" open a question, "A:" opens its answer, and subsequent non-empty lines
// continue the answer. Malformed fragments are skipped, never fatal.
func SplitKnowledgeBase(content string) []Chunk {
	var chunks []Chunk
	var question string
	var answer []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(answer, " "))
		if question != "" && text != "" {
			chunks = append(chunks, Chunk{Question: question, Answer: text})
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Q:"):
			flush()
			question = strings.TrimSpace(line[2:])
			answer = nil
		case strings.HasPrefix(line, "A:"):
			answer = []string{strings.TrimSpace(line[2:])}
		case len(answer) > 0:
			answer = append(answer, line)
		}
	}
	flush()
	return chunks
}

// LoadKnowledgeBase reads the Q&A file at path and replaces missing chunks in
// the collection. Loading is additive and idempotent: chunk IDs are stable,
// so re-running on an unchanged file rewrites the same documents.
func (r *Retriever) LoadKnowledgeBase(ctx context.Context, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read knowledge base %s: %w", path, err)
	}

	chunks := SplitKnowledgeBase(string(content))
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("kb_chunk_%d", i),
			Content: c.Text(),
			Metadata: map[string]string{
				"question": c.Question,
				"answer":   c.Answer,
				"type":     "knowledge_base",
			},
		}
	}
	if err := r.coll.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("%w: add documents: %v", ErrIndexUnavailable, err)
	}
	r.log.Info("knowledge base loaded", "chunks", len(chunks), "path", path)
	return len(chunks), nil
}
