package mcp

import (
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/meishi/internal/colmap"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/state"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"contact", "policy", "column"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"contact_list": {
		def:     contactListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactList },
	},
	"contact_fetch": {
		def:     contactFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactFetch },
	},
	"contact_recent": {
		def:     contactRecentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactRecent },
	},
	"contact_delete": {
		def:     contactDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactDelete },
	},
	"contact_import": {
		def:     contactImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"contact_export": {
		def:     contactExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"policy_list": {
		def:     policyListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePolicyList },
	},
	"policy_fetch": {
		def:     policyFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePolicyFetch },
	},
	"policy_delete": {
		def:     policyDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePolicyDelete },
	},
	"column_apply": {
		def:     columnApplyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleColumnApply },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "contact_list" → "contact").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the meishi tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration. proposer may be nil.
func NewServer(st *state.State, cfg *config.Config, proposer colmap.Proposer, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"meishi",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(st, cfg, proposer)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(st *state.State, cfg *config.Config, proposer colmap.Proposer, version string) error {
	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		slog.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		slog.Warn("unknown types in disabled_types", "types", unknown)
	}
	return server.ServeStdio(NewServer(st, cfg, proposer, version))
}
