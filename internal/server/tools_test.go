package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"stamp_pdf",
		"stamp_preview",
		"stamp_identities",
		"stamp_find_space",
		"stamp_placement_overlay",
		"stamp_check_region",
		"stamp_crop_region",
		"stamp_document_info",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// Every required parameter must be declared.
			required, _ := tool.InputSchema["required"].([]string)
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required parameter %s has no schema", r)
				}
			}
		})
	}
}

func TestToolDefinitions_Required(t *testing.T) {
	tests := map[string][]string{
		"stamp_pdf":               {"path", "identity"},
		"stamp_preview":           {"identity"},
		"stamp_find_space":        {"path"},
		"stamp_placement_overlay": {"path"},
		"stamp_check_region":      {"path", "x1", "y1", "x2", "y2"},
		"stamp_crop_region":       {"path", "x1", "y1", "x2", "y2"},
		"stamp_document_info":     {"path"},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := toolMap[name].InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			if len(got) != len(want) {
				t.Fatalf("required: got %v, want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("required[%d]: got %s, want %s", i, got[i], want[i])
				}
			}
		})
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	tests := []struct {
		tool, param string
		want        interface{}
	}{
		{"stamp_placement_overlay", "grid_color", "#FF000080"},
		{"stamp_placement_overlay", "box_color", "#0000FF"},
		{"stamp_placement_overlay", "show_grid", true},
		{"stamp_check_region", "page", 1},
		{"stamp_crop_region", "page", 1},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, tt := range tests {
		props := toolMap[tt.tool].InputSchema["properties"].(map[string]interface{})
		param, ok := props[tt.param].(map[string]interface{})
		if !ok {
			t.Errorf("%s.%s: parameter not found", tt.tool, tt.param)
			continue
		}
		if param["default"] != tt.want {
			t.Errorf("%s.%s: default got %v, want %v", tt.tool, tt.param, param["default"], tt.want)
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}
