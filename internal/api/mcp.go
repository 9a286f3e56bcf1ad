package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/simpleprefs/internal/prefs"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Prefs   *prefs.Prefs
	Version string
}

// NewMCPServer creates an MCP server exposing the preferences as tools and
// a read-only resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"simpleprefs",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("simpleprefs: typed application preferences (boolean, int, long, float, string, string_set)."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("pref_get",
			mcp.WithDescription("Read a preference with a typed getter. Fails if the stored value has another type."),
			mcp.WithString("key", mcp.Description("Preference key"), mcp.Required()),
			mcp.WithString("type", mcp.Description("boolean, int, long, float, string or string_set"), mcp.Required()),
			mcp.WithString("default", mcp.Description("Value returned when the key is absent")),
		),
		mcpGetPref(deps),
	)

	s.AddTool(
		mcp.NewTool("pref_set",
			mcp.WithDescription("Write a preference. It is persisted immediately."),
			mcp.WithString("key", mcp.Description("Preference key"), mcp.Required()),
			mcp.WithString("type", mcp.Description("boolean, int, long, float, string or string_set"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value for scalar types")),
			mcp.WithArray("values", mcp.Description("Members for string_set")),
		),
		mcpSetPref(deps),
	)

	s.AddTool(
		mcp.NewTool("pref_remove",
			mcp.WithDescription("Remove a preference."),
			mcp.WithString("key", mcp.Description("Preference key"), mcp.Required()),
		),
		mcpRemovePref(deps),
	)

	s.AddTool(
		mcp.NewTool("pref_list",
			mcp.WithDescription("List every stored preference with its type."),
		),
		mcpListPrefs(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"prefs://all",
			"All Preferences",
			mcp.WithResourceDescription("Every stored preference as {key: {type, value}}"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceAll(deps),
	)

	return s
}

func mcpGetPref(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		typ, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}

		entry, err := ReadTyped(deps.Prefs, typ, key, req.GetString("default", ""))
		if err != nil {
			var mismatch *prefs.TypeMismatchError
			if errors.As(err, &mismatch) {
				return mcpError(mismatch.Error()), nil
			}
			return mcpError(fmt.Sprintf("read failed: %v", err)), nil
		}

		b, err := json.Marshal(entry)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal value: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetPref(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		typ, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}
		value := req.GetString("value", "")
		members := req.GetStringSlice("values", nil)

		v, err := ParseTyped(typ, value, members)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if err := deps.Prefs.Put(key, v); err != nil {
			return mcpError(fmt.Sprintf("failed to set preference: %v", err)), nil
		}

		if typ == typeStringSet {
			return mcpText(fmt.Sprintf("Set %s = %v", key, prefs.NewStringSet(members...).Sorted())), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s", key, value)), nil
	}
}

func mcpRemovePref(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		if !deps.Prefs.Contains(key) {
			return mcpError(fmt.Sprintf("preference %q not found", key)), nil
		}
		if err := deps.Prefs.Remove(key); err != nil {
			return mcpError(fmt.Sprintf("failed to remove preference: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Removed %s", key)), nil
	}
}

func mcpListPrefs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(Entries(deps.Prefs.GetAll()))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal preferences: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceAll(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(Entries(deps.Prefs.GetAll()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal preferences: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
