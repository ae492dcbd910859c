package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
)

// Parameter defines a tool parameter
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, integer, number, boolean, object, array
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Handler executes a tool with untrusted arguments and returns a Result.
// Handlers never return Go errors; failures are encoded in the Result.
type Handler func(ctx context.Context, args map[string]any) Result

// Tool represents a callable capability exposed to the model.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`
}

// ToJSONSchema returns the tool definition in the function-call schema format
// consumed by the completion providers.
func (t *Tool) ToJSONSchema() map[string]any {
	properties := make(map[string]any)
	required := make([]string, 0)

	for _, param := range t.Parameters {
		prop := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			prop["enum"] = param.Enum
		}
		properties[param.Name] = prop

		if param.Required {
			required = append(required, param.Name)
		}
	}

	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters": map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// DecodeArgs decodes an untrusted argument map into a typed argument struct.
// Unknown keys and mismatched types are rejected, mirroring a strict keyword
// signature.
func DecodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// Registry manages the closed catalogue of tools.
// All operations are thread-safe using RWMutex protection.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToJSONSchemas returns all tool schemas in a stable order.
func (r *Registry) ToJSONSchemas() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	schemas := make([]map[string]any, 0, len(names))
	for _, name := range names {
		schemas = append(schemas, r.tools[name].ToJSONSchema())
	}
	return schemas
}

// Dispatch runs a tool by name with untrusted arguments. It never panics and
// never returns a Go error: unknown names, bad arguments and handler panics
// all come back as failed Results so the model can react to them.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (result Result) {
	tool, ok := r.Get(name)
	if !ok {
		return Fail(CodeUnknownTool, fmt.Sprintf("Unknown tool: %s", name))
	}

	for _, param := range tool.Parameters {
		if !param.Required {
			continue
		}
		if _, present := args[param.Name]; !present {
			return Fail(CodeInvalidArguments,
				fmt.Sprintf("Invalid arguments for %s: missing required parameter %q", name, param.Name))
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.WithComponent("tool").Error("tool panicked", "tool", name, "panic", rec)
			result = Fail(CodeExecutionError, fmt.Sprintf("Error executing %s: %v", name, rec))
		}
	}()

	return tool.Handler(ctx, args)
}
