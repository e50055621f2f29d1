// Package tools implements the HR tool registry exposed to the language
// model through function calling.
//
// Every handler takes primitive-typed arguments (tenant ID, employee ID,
// date strings) decoded from the model's JSON argument object, performs its
// own parsing and tenant checks, and returns a plain result map. Handlers
// never return Go errors and never panic across the boundary: any failure —
// malformed identifier, bad date, missing row, unauthorized role — becomes
// a map containing an "error" key with a human-readable message. Callers
// key on the presence of "error", not its text.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/peopleos/jinji/internal/llm"
	"github.com/peopleos/jinji/internal/model"
	"github.com/peopleos/jinji/internal/storage"
)

// Handler is one tool implementation.
type Handler func(ctx context.Context, args map[string]any) map[string]any

// Tool pairs a handler with the JSON-schema contract advertised to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

// SummarizeFunc produces a summary of document text via the chat model.
// Injected after construction to avoid a registry/chat dependency loop.
type SummarizeFunc func(ctx context.Context, title, content string) (string, error)

// Registry maps tool names to handlers and their schemas.
type Registry struct {
	db        *storage.DB
	logger    *slog.Logger
	summarize SummarizeFunc
	tools     map[string]Tool
	order     []string
}

// New creates a registry with all HR tools registered.
func New(db *storage.DB, logger *slog.Logger) *Registry {
	r := &Registry{
		db:     db,
		logger: logger,
		tools:  make(map[string]Tool),
	}
	r.registerLeaveTools()
	r.registerPayrollTools()
	r.registerAttendanceTools()
	r.registerEmployeeTools()
	r.registerDocumentTools()
	return r
}

// SetSummarizer wires the chat-backed summarizer used by summarize_policy.
func (r *Registry) SetSummarizer(fn SummarizeFunc) {
	r.summarize = fn
}

// Register adds a tool, replacing any previous registration of the same name.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
	r.logger.Debug("registered tool", "tool", t.Name)
}

// Tools returns the advertised tool definitions in registration order.
func (r *Registry) Tools() []llm.ToolDef {
	out := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return out
}

// Dispatch invokes the named tool. ok is false for unknown names. A handler
// panic is recovered and converted to an error map so one misbehaving tool
// cannot take down the dispatch loop.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (result map[string]any, ok bool) {
	t, found := r.tools[name]
	if !found {
		return nil, false
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked", "tool", name, "panic", rec)
			result = errResult(fmt.Sprintf("%s failed: internal error", name))
			ok = true
		}
	}()

	result = t.Handler(ctx, args)
	if msg, failed := result["error"]; failed {
		r.logger.Warn("tool returned error", "tool", name, "error", msg)
	}
	return result, true
}

func errResult(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// objectSchema builds the {type: object, properties, required} contract
// shape consumed by the chat adapter.
func objectSchema(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func strProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func numProp(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

// strArg extracts a string argument; missing or non-string yields "".
func strArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an integer argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// floatArg extracts a numeric argument.
func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// uuidArg parses a UUID-typed argument.
func uuidArg(args map[string]any, key string) (uuid.UUID, error) {
	raw := strArg(args, key)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", key)
	}
	return id, nil
}

// dateArg parses an ISO date or timestamp argument. Accepts RFC 3339
// timestamps and bare YYYY-MM-DD dates.
func dateArg(args map[string]any, key string) (time.Time, error) {
	raw := strArg(args, key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s", key)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: expected ISO date", key)
	}
	return t, nil
}

// tenantEmployee parses the tenant/employee argument pair and verifies the
// employee belongs to the tenant. Every employee-scoped handler starts here;
// it is what enforces the tenant-isolation invariant at the tool boundary.
func (r *Registry) tenantEmployee(ctx context.Context, args map[string]any, employeeKey string) (uuid.UUID, model.Employee, map[string]any) {
	tenantID, err := uuidArg(args, "tenant_id")
	if err != nil {
		return uuid.Nil, model.Employee{}, errResult(err.Error())
	}
	employeeID, err := uuidArg(args, employeeKey)
	if err != nil {
		return uuid.Nil, model.Employee{}, errResult(err.Error())
	}

	e, err := r.db.GetEmployee(ctx, tenantID, employeeID)
	if err != nil {
		if err == storage.ErrNotFound {
			return uuid.Nil, model.Employee{}, errResult("Employee not found")
		}
		return uuid.Nil, model.Employee{}, errResult(fmt.Sprintf("lookup failed: %v", err))
	}
	return tenantID, e, nil
}
