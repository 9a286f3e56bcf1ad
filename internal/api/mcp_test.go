package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func newTestMCPDeps(t *testing.T) MCPDeps {
	t.Helper()
	p, _ := newTestPrefs(t)
	return MCPDeps{Prefs: p, Version: "test"}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPServer_Builds(t *testing.T) {
	if s := NewMCPServer(newTestMCPDeps(t)); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_SetThenGet(t *testing.T) {
	deps := newTestMCPDeps(t)

	result, err := mcpSetPref(deps)(context.Background(), makeCallToolRequest("pref_set", map[string]interface{}{
		"key":   "vee_int",
		"type":  "int",
		"value": "50",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if text := toolText(t, result); text != "Set vee_int = 50" {
		t.Fatalf("unexpected response: %s", text)
	}

	result, err = mcpGetPref(deps)(context.Background(), makeCallToolRequest("pref_get", map[string]interface{}{
		"key":  "vee_int",
		"type": "int",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Type  string `json:"type"`
		Value int32  `json:"value"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	if got.Type != "int" || got.Value != 50 {
		t.Errorf("pref_get = %+v", got)
	}
}

func TestMCPTool_SetStringSet(t *testing.T) {
	deps := newTestMCPDeps(t)

	result, err := mcpSetPref(deps)(context.Background(), makeCallToolRequest("pref_set", map[string]interface{}{
		"key":    "vee_string_set",
		"type":   "string_set",
		"values": []interface{}{"b", "a"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	set, err := deps.Prefs.GetStringSet("vee_string_set", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has("a") || !set.Has("b") || len(set) != 2 {
		t.Errorf("set = %v", set.Sorted())
	}
}

func TestMCPTool_GetMismatch(t *testing.T) {
	deps := newTestMCPDeps(t)
	if err := deps.Prefs.PutString("vee_string", "x"); err != nil {
		t.Fatal(err)
	}

	result, _ := mcpGetPref(deps)(context.Background(), makeCallToolRequest("pref_get", map[string]interface{}{
		"key":  "vee_string",
		"type": "boolean",
	}))
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if text := toolText(t, result); text != "vee_string's value is not a boolean" {
		t.Errorf("unexpected message: %s", text)
	}
}

func TestMCPTool_MissingArgs(t *testing.T) {
	deps := newTestMCPDeps(t)

	cases := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"pref_get":    mcpGetPref(deps),
		"pref_set":    mcpSetPref(deps),
		"pref_remove": mcpRemovePref(deps),
	}
	for name, handler := range cases {
		result, err := handler(context.Background(), makeCallToolRequest(name, map[string]interface{}{}))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !result.IsError {
			t.Errorf("%s: expected error result", name)
		}
	}

	result, _ := mcpSetPref(deps)(context.Background(), makeCallToolRequest("pref_set", map[string]interface{}{
		"key": "k", "type": "long", "value": "many",
	}))
	if !result.IsError {
		t.Error("pref_set accepted a non-numeric long")
	}
}

func TestMCPTool_RemoveAndList(t *testing.T) {
	deps := newTestMCPDeps(t)
	if err := deps.Prefs.PutBool("vee_bool", true); err != nil {
		t.Fatal(err)
	}

	result, _ := mcpRemovePref(deps)(context.Background(), makeCallToolRequest("pref_remove", map[string]interface{}{"key": "vee_bool"}))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	result, _ = mcpRemovePref(deps)(context.Background(), makeCallToolRequest("pref_remove", map[string]interface{}{"key": "vee_bool"}))
	if !result.IsError {
		t.Error("removing an absent key should fail")
	}

	result, _ = mcpListPrefs(deps)(context.Background(), makeCallToolRequest("pref_list", nil))
	text := toolText(t, result)
	if strings.Contains(text, "vee_bool") {
		t.Errorf("pref_list still shows removed key: %s", text)
	}
	if !strings.Contains(text, "VEE_APP_OPENED_TIMES_COUNT") {
		t.Errorf("pref_list missing opened count: %s", text)
	}
}

func TestMCPResource_All(t *testing.T) {
	deps := newTestMCPDeps(t)
	if err := deps.Prefs.PutString("vee_string", "demo"); err != nil {
		t.Fatal(err)
	}

	contents, err := mcpResourceAll(deps)(context.Background(), makeReadResourceRequest("prefs://all"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var all map[string]Entry
	if err := json.Unmarshal([]byte(tc.Text), &all); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if e := all["vee_string"]; e.Type != "string" || e.Value != "demo" {
		t.Errorf("vee_string = %+v", e)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps := newTestMCPDeps(t)
	set := mcpSetPref(deps)
	list := mcpListPrefs(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			result, err := set(context.Background(), makeCallToolRequest("pref_set", map[string]interface{}{
				"key": fmt.Sprintf("k%d", i), "type": "int", "value": fmt.Sprint(i),
			}))
			if err != nil {
				errs <- err
			} else if result.IsError {
				errs <- fmt.Errorf("pref_set k%d failed", i)
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := list(context.Background(), makeCallToolRequest("pref_list", nil)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	for i := 0; i < 10; i++ {
		if n, _ := deps.Prefs.GetInt(fmt.Sprintf("k%d", i), -1); n != int32(i) {
			t.Errorf("k%d = %d", i, n)
		}
	}
}
