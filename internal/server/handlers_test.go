package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/pdf-stamp/internal/document"
	"github.com/ironsheep/pdf-stamp/internal/locator"
	"github.com/ironsheep/pdf-stamp/internal/testutil"
)

// callTool runs a tools/call request and decodes the text content into v.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, v interface{}) *MCPResponse {
	t.Helper()
	params, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil || v == nil {
		return resp
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
	return resp
}

func TestHandleToolsCall_StampPDF(t *testing.T) {
	s := newTestServer(t)
	path := createTestPDFFile(t, "Contract.PDF", a4Blank(), a4Blank())

	var got StampResult
	resp := callTool(t, s, "stamp_pdf", map[string]interface{}{
		"path":     path,
		"identity": "Martin Zinser",
	}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}

	wantPath := filepath.Join(filepath.Dir(path), "Contract_approved.pdf")
	if got.OutputPath != wantPath {
		t.Errorf("OutputPath: got %s, want %s", got.OutputPath, wantPath)
	}
	if got.Placement.X != 0 || got.Placement.Kind != locator.Placed {
		t.Errorf("Placement: got %+v", got.Placement)
	}
	if got.PageCount != 2 || got.StampWidth != 212 || got.StampHeight != 94 {
		t.Errorf("got pages %d, stamp %dx%d", got.PageCount, got.StampWidth, got.StampHeight)
	}
	if got.Lines[3] != "Device-ID [02:42:AC:11:00:02]" {
		t.Errorf("device line: got %q", got.Lines[3])
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("stamped file not written: %v", err)
	}
	if n, err := document.PageCount(data); err != nil || n != 2 {
		t.Errorf("stamped page count: got %d (%v), want 2", n, err)
	}
}

func TestHandleToolsCall_StampPDF_OutputPath(t *testing.T) {
	s := newTestServer(t)
	path := createTestPDFFile(t, "in.pdf", a4Blank())
	out := filepath.Join(t.TempDir(), "custom.pdf")

	var got StampResult
	resp := callTool(t, s, "stamp_pdf", map[string]interface{}{
		"path":        path,
		"identity":    "Walter Vogt",
		"output_path": out,
	}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	if got.OutputPath != out {
		t.Errorf("OutputPath: got %s, want %s", got.OutputPath, out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestHandleToolsCall_StampPDF_Errors(t *testing.T) {
	s := newTestServer(t)
	path := createTestPDFFile(t, "in.pdf", a4Blank())
	notPDF := filepath.Join(t.TempDir(), "note.pdf")
	os.WriteFile(notPDF, []byte("just text"), 0o644)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing path", map[string]interface{}{"identity": "Walter Vogt"}, "path is required"},
		{"nonexistent file", map[string]interface{}{"path": "/nonexistent/file.pdf", "identity": "Walter Vogt"}, "failed to open document"},
		{"not a pdf", map[string]interface{}{"path": notPDF, "identity": "Walter Vogt"}, "invalid PDF document"},
		{"unknown identity", map[string]interface{}{"path": path, "identity": "Eve"}, "unknown identity"},
		{"empty identity", map[string]interface{}{"path": path}, "identity must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "stamp_pdf", tt.args, nil)
			if resp.Error == nil {
				t.Fatal("Expected error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
			if data, _ := resp.Error.Data.(string); !strings.Contains(data, tt.want) {
				t.Errorf("Error data: got %q, want it to contain %q", data, tt.want)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "in_approved.pdf")); !os.IsNotExist(err) {
		t.Error("no output should be written when stamping fails")
	}
}

func TestHandleToolsCall_StampPreview(t *testing.T) {
	s := newTestServer(t)

	var got PreviewResult
	resp := callTool(t, s, "stamp_preview", map[string]interface{}{"identity": "Henrik Kattrup"}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	if got.Width != 212 || got.Height != 94 {
		t.Errorf("size: got %dx%d", got.Width, got.Height)
	}
	if got.MimeType != "image/png" || got.ImageBase64 == "" {
		t.Errorf("image: mime %q, %d base64 bytes", got.MimeType, len(got.ImageBase64))
	}
	if got.Lines[1] != "Date: 19.10.2026 09:30" {
		t.Errorf("date line: got %q", got.Lines[1])
	}
	if !got.FontFallback {
		t.Error("a host without fonts should use the built-in face")
	}
}

func TestHandleToolsCall_StampIdentities(t *testing.T) {
	s := newTestServer(t)

	var got struct {
		Identities []string `json:"identities"`
	}
	callTool(t, s, "stamp_identities", map[string]interface{}{}, &got)
	if len(got.Identities) != 7 || got.Identities[0] != "Martin Zinser" {
		t.Errorf("identities: got %v", got.Identities)
	}
}

func TestHandleToolsCall_StampFindSpace(t *testing.T) {
	s := newTestServer(t)
	white := createTestPDFFile(t, "white.pdf", a4Blank())
	dark := createTestPDFFile(t, "dark.pdf", testutil.DarkPage(testutil.A4Width, testutil.A4Height))

	var got FindSpaceResult
	callTool(t, s, "stamp_find_space", map[string]interface{}{"path": white}, &got)
	want := locator.Placement{X: 0, Y: got.PageHeight - 94, Kind: locator.Placed}
	if got.Placement != want {
		t.Errorf("white page: got %+v, want %+v", got.Placement, want)
	}
	if got.DPI != 300 || got.StampWidth != 212 {
		t.Errorf("got dpi %v, stamp width %d", got.DPI, got.StampWidth)
	}

	callTool(t, s, "stamp_find_space", map[string]interface{}{"path": dark, "width": 100, "height": 50}, &got)
	want = locator.Placement{X: 0, Y: got.PageHeight - 50, Kind: locator.FallbackUsed}
	if got.Placement != want {
		t.Errorf("dark page: got %+v, want %+v", got.Placement, want)
	}

	resp := callTool(t, s, "stamp_find_space", map[string]interface{}{"path": white, "width": -1}, nil)
	if resp.Error == nil {
		t.Error("negative width should fail")
	}
}

func TestHandleToolsCall_StampPlacementOverlay(t *testing.T) {
	s := newTestServer(t)
	path := createTestPDFFile(t, "page.pdf", testutil.BlankPage(144, 144))

	var got PlacementOverlayResult
	resp := callTool(t, s, "stamp_placement_overlay", map[string]interface{}{"path": path, "show_grid": false}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	if got.OverlayResult == nil || got.Width != 600 || got.Height != 600 {
		t.Fatalf("overlay: got %+v", got.OverlayResult)
	}
	if got.GridSpacing != 0 {
		t.Errorf("GridSpacing: got %d, want 0 with show_grid=false", got.GridSpacing)
	}
	if got.Placement.Y != 600-94 {
		t.Errorf("Placement: got %+v", got.Placement)
	}

	callTool(t, s, "stamp_placement_overlay", map[string]interface{}{"path": path}, &got)
	if got.GridSpacing != 29 {
		t.Errorf("GridSpacing: got %d, want 29", got.GridSpacing)
	}
}

func TestHandleToolsCall_StampCheckRegion(t *testing.T) {
	s := newTestServer(t)
	page := testutil.Page{
		Width:  144,
		Height: 144,
		Black:  []testutil.Rect{{X: 0, Y: 0, Width: 72, Height: 72}},
	}
	path := createTestPDFFile(t, "half.pdf", page, testutil.BlankPage(144, 144))

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantFree bool
	}{
		{"blank quarter", map[string]interface{}{"path": path, "x1": 320, "y1": 320, "x2": 600, "y2": 600}, true},
		{"black quarter", map[string]interface{}{"path": path, "x1": 0, "y1": 0, "x2": 280, "y2": 280}, false},
		{"page 2", map[string]interface{}{"path": path, "page": 2, "x1": 0, "y1": 0, "x2": 280, "y2": 280}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got CheckRegionResult
			resp := callTool(t, s, "stamp_check_region", tt.args, &got)
			if resp.Error != nil {
				t.Fatalf("Unexpected error: %+v", resp.Error)
			}
			if got.Free != tt.wantFree {
				t.Errorf("Free: got %v, want %v (stats %+v)", got.Free, tt.wantFree, got.RegionStats)
			}
			if got.Thresholds.White != 245 {
				t.Errorf("Thresholds: got %+v", got.Thresholds)
			}
		})
	}

	bad := []map[string]interface{}{
		{"path": path, "x1": 0, "y1": 0, "x2": 700, "y2": 10},
		{"path": path, "x1": 10, "y1": 0, "x2": 10, "y2": 10},
		{"path": path, "page": 3, "x1": 0, "y1": 0, "x2": 10, "y2": 10},
	}
	for _, args := range bad {
		if resp := callTool(t, s, "stamp_check_region", args, nil); resp.Error == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestHandleToolsCall_StampCropRegion(t *testing.T) {
	s := newTestServer(t)
	path := createTestPDFFile(t, "crop.pdf", testutil.BlankPage(144, 144))

	var got struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ImageBase64 string `json:"image_base64"`
	}
	resp := callTool(t, s, "stamp_crop_region", map[string]interface{}{"path": path, "x1": 10, "y1": 20, "x2": 110, "y2": 70}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	if got.Width != 100 || got.Height != 50 || got.ImageBase64 == "" {
		t.Errorf("crop: got %dx%d", got.Width, got.Height)
	}
}

func TestHandleToolsCall_StampDocumentInfo(t *testing.T) {
	s := newTestServer(t)
	path := createTestPDFFile(t, "info.pdf", testutil.BlankPage(72, 144), a4Blank(), a4Blank())

	var got document.Info
	resp := callTool(t, s, "stamp_document_info", map[string]interface{}{"path": path}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	if got.PageCount != 3 || got.FirstPageWidth != 300 || got.FirstPageHeight != 600 {
		t.Errorf("info: got %+v", got)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`{invalid`)})

	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.executeTool("unknown_tool", json.RawMessage(`{}`)); err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)
	for _, tool := range []string{"stamp_pdf", "stamp_preview", "stamp_find_space", "stamp_check_region", "stamp_document_info"} {
		if _, err := s.executeTool(tool, json.RawMessage(`{invalid`)); err == nil {
			t.Errorf("executeTool(%s) should fail for invalid JSON", tool)
		}
	}
}
