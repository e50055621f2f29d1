package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/peopleos/jinji/internal/storage"
)

func (r *Registry) registerDocumentTools() {
	r.Register(Tool{
		Name:        "summarize_policy",
		Description: "Summarize a policy document",
		Parameters: objectSchema(map[string]any{
			"tenant_id": strProp("Tenant ID"),
			"doc_id":    strProp("Document ID"),
		}, "tenant_id", "doc_id"),
		Handler: r.summarizePolicy,
	})
}

// summarizePolicy reassembles the document from its stored chunks and asks
// the chat model for a summary. Chunks are joined in index order; the
// redacted variant of each chunk is preferred so PII never reaches the
// model through this path.
func (r *Registry) summarizePolicy(ctx context.Context, args map[string]any) map[string]any {
	tenantID, err := uuidArg(args, "tenant_id")
	if err != nil {
		return errResult(err.Error())
	}
	docID, err := uuidArg(args, "doc_id")
	if err != nil {
		return errResult(err.Error())
	}

	doc, err := r.db.GetDocumentForTenant(ctx, tenantID, docID)
	if err != nil {
		if err == storage.ErrNotFound {
			return errResult("Document not found")
		}
		return errResult(fmt.Sprintf("summarize_policy failed: %v", err))
	}

	chunks, err := r.db.ListDocumentChunks(ctx, doc.ID)
	if err != nil {
		return errResult(fmt.Sprintf("summarize_policy failed: %v", err))
	}
	if len(chunks) == 0 {
		return errResult("Document has no content to summarize")
	}

	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.EmbeddingText())
	}
	content := strings.Join(parts, "\n\n")

	if r.summarize == nil {
		return errResult("Summarization is not available")
	}

	summary, err := r.summarize(ctx, doc.Title, content)
	if err != nil {
		return errResult(fmt.Sprintf("summarize_policy failed: %v", err))
	}

	return map[string]any{
		"document_id": doc.ID.String(),
		"title":       doc.Title,
		"summary":     summary,
	}
}
