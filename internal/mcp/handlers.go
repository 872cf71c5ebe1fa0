package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/meishi/internal/colmap"
	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/ops"
	"github.com/hpungsan/meishi/internal/state"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	st       *state.State
	cfg      *config.Config
	proposer colmap.Proposer
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *state.State, cfg *config.Config, proposer colmap.Proposer) *Handlers {
	return &Handlers{st: st, cfg: cfg, proposer: proposer}
}

// Request types for each tool

// ListRequest represents the arguments for contact_list and policy_list.
type ListRequest struct {
	Query  string `json:"query,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// IDRequest represents the arguments for the fetch and delete tools.
type IDRequest struct {
	ID string `json:"id"`
}

// ImportRequest represents the arguments for contact_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// ExportRequest represents the arguments for contact_export.
type ExportRequest struct {
	Kind   string `json:"kind,omitempty"`
	Format string `json:"format,omitempty"`
	Path   string `json:"path,omitempty"`
}

// ColumnApplyRequest represents the arguments for column_apply.
type ColumnApplyRequest struct {
	Template string            `json:"template"`
	Out      string            `json:"out,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Set      map[string]string `json:"set,omitempty"`
	Propose  bool              `json:"propose,omitempty"`
}

// Handler implementations

// HandleContactList handles the contact_list tool call.
func (h *Handlers) HandleContactList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.list(req, codec.KindContacts)
}

// HandlePolicyList handles the policy_list tool call.
func (h *Handlers) HandlePolicyList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.list(req, codec.KindPolicies)
}

func (h *Handlers) list(req mcp.CallToolRequest, kind codec.Kind) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.st, ops.ListInput{
		Kind:   string(kind),
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleContactFetch handles the contact_fetch tool call.
func (h *Handlers) HandleContactFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchContact(ctx, h.st, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleContactRecent handles the contact_recent tool call.
func (h *Handlers) HandleContactRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"items": ops.Recent(h.st)})
}

// HandleContactDelete handles the contact_delete tool call.
func (h *Handlers) HandleContactDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.delete(ctx, req, codec.KindContacts)
}

// HandlePolicyDelete handles the policy_delete tool call.
func (h *Handlers) HandlePolicyDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.delete(ctx, req, codec.KindPolicies)
}

func (h *Handlers) delete(ctx context.Context, req mcp.CallToolRequest, kind codec.Kind) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.st, ops.DeleteInput{Kind: string(kind), ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePolicyFetch handles the policy_fetch tool call.
func (h *Handlers) HandlePolicyFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchPolicy(h.st, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the contact_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	result, err := ops.Import(ctx, h.st, h.cfg, ops.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the contact_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.st, h.cfg, ops.ExportInput{
		Kind:   input.Kind,
		Format: input.Format,
		Path:   input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleColumnApply handles the column_apply tool call.
func (h *Handlers) HandleColumnApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ColumnApplyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ColumnApply(ctx, h.st, h.cfg, h.proposer, ops.ColumnApplyInput{
		Kind:     input.Kind,
		Template: input.Template,
		Out:      input.Out,
		Set:      input.Set,
		Propose:  input.Propose,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if mErr, ok := errors.As(err); ok {
		message := mErr.Message
		// Keep context added by fmt.Errorf wrappers
		if prefix, wrapped := strings.CutSuffix(err.Error(), mErr.Error()); wrapped && prefix != "" {
			message = prefix + message
		}
		if mErr.Code == errors.ErrInternal {
			message = "an internal error occurred"
		}
		errorObj := map[string]any{
			"code":    mErr.Code,
			"message": message,
			"status":  mErr.Status,
		}
		if mErr.Code != errors.ErrInternal && mErr.Details != nil {
			errorObj["details"] = mErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
