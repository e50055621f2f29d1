package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/peopleos/jinji/internal/llm"
)

const systemPrompt = "You are an HR assistant. Answer the question using only the " +
	"provided document sections. If the sections do not contain the answer, say " +
	"that you do not know. Cite the section numbers you used."

// Searcher retrieves similar chunks for a tenant.
type Searcher interface {
	Search(ctx context.Context, tenantID uuid.UUID, embedding []float32, limit int) ([]Result, error)
}

// Chatter produces a chat completion for a conversation.
type Chatter interface {
	ChatCompletion(ctx context.Context, messages []llm.Message, useTools bool) (llm.Result, error)
}

// Source identifies one retrieved chunk cited in an answer.
type Source struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Score      float32   `json:"score"`
}

// Answer is a grounded response with the chunks it was built from.
type Answer struct {
	Content string   `json:"content"`
	Sources []Source `json:"sources"`
}

// Orchestrator answers questions grounded in retrieved document chunks:
// embed the query, search the tenant's chunks, build a context prompt, and
// complete. Tool dispatch stays available during the completion, so the
// model can mix retrieved context with live HR lookups.
type Orchestrator struct {
	embedder llm.Provider
	index    Searcher
	chat     Chatter
	limit    int
	useTools bool
}

// NewOrchestrator creates an orchestrator. limit is the default number of
// chunks retrieved per question. Tool dispatch is enabled by default; see
// SetUseTools.
func NewOrchestrator(embedder llm.Provider, index Searcher, chat Chatter, limit int) *Orchestrator {
	if limit <= 0 {
		limit = 5
	}
	return &Orchestrator{
		embedder: embedder,
		index:    index,
		chat:     chat,
		limit:    limit,
		useTools: true,
	}
}

// SetUseTools controls whether grounded completions advertise the tool
// registry to the model.
func (o *Orchestrator) SetUseTools(v bool) { o.useTools = v }

// Answer retrieves the tenant's chunks most similar to the question and
// asks the model to answer from them. With no retrieved context the model
// is still asked, and the system prompt makes it decline.
func (o *Orchestrator) Answer(ctx context.Context, tenantID uuid.UUID, question string, limit int) (Answer, error) {
	if limit <= 0 {
		limit = o.limit
	}

	vec, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("rag: embed question: %w", err)
	}

	results, err := o.index.Search(ctx, tenantID, vec.Slice(), limit)
	if err != nil {
		return Answer{}, fmt.Errorf("rag: search: %w", err)
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildPrompt(question, results)},
	}

	completion, err := o.chat.ChatCompletion(ctx, messages, o.useTools)
	if err != nil {
		return Answer{}, fmt.Errorf("rag: completion: %w", err)
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			ChunkIndex: r.ChunkIndex,
			Score:      r.Score,
		})
	}

	return Answer{Content: completion.Content, Sources: sources}, nil
}

// BuildPrompt renders the retrieved chunks as numbered sections followed by
// the question. Sections are numbered from 1 in retrieval order.
func BuildPrompt(question string, results []Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[Document Section %d]\n%s\n\n", i+1, r.Content)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
