package server

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/ironsheep/pdf-stamp/internal/imaging"
	"github.com/ironsheep/pdf-stamp/internal/locator"
	"github.com/ironsheep/pdf-stamp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "stamp_pdf", "stamp_find_space").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.WithError(err).WithField("tool", params.Name).Warn("tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Stamping
	case "stamp_pdf":
		return s.handleStampPDF(args)
	case "stamp_preview":
		return s.handleStampPreview(args)
	case "stamp_identities":
		return s.handleStampIdentities(args)

	// Placement
	case "stamp_find_space":
		return s.handleStampFindSpace(args)
	case "stamp_placement_overlay":
		return s.handleStampPlacementOverlay(args)

	// Inspection
	case "stamp_check_region":
		return s.handleStampCheckRegion(args)
	case "stamp_crop_region":
		return s.handleStampCropRegion(args)
	case "stamp_document_info":
		return s.handleStampDocumentInfo(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments; a missing argument object is
// treated as empty.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

func (s *Server) dpi() float64 {
	return s.stamper.Config().Raster.DPI
}

// === Stamping Handlers ===

type stampPDFArgs struct {
	Path       string `json:"path"`
	Identity   string `json:"identity"`
	OutputPath string `json:"output_path"`
}

// StampResult reports a stamped document written to disk.
type StampResult struct {
	OutputPath  string            `json:"output_path"`
	Identity    string            `json:"identity"`
	Placement   locator.Placement `json:"placement"`
	StampWidth  int               `json:"stamp_width"`
	StampHeight int               `json:"stamp_height"`
	PageCount   int               `json:"page_count"`
	Lines       []string          `json:"lines"`
}

func (s *Server) handleStampPDF(args json.RawMessage) (interface{}, error) {
	var a stampPDFArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := s.stamper.Process(pipeline.Request{
		Document: data,
		FileName: filepath.Base(a.Path),
		Identity: a.Identity,
	})
	if err != nil {
		return nil, err
	}

	out := a.OutputPath
	if out == "" {
		out = filepath.Join(filepath.Dir(a.Path), res.FileName)
	}
	if err := os.WriteFile(out, res.Document, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write stamped document: %w", err)
	}

	size := res.Stamp.Size()
	return &StampResult{
		OutputPath:  out,
		Identity:    res.Identity,
		Placement:   res.Placement,
		StampWidth:  size.X,
		StampHeight: size.Y,
		PageCount:   res.PageCount,
		Lines:       res.Stamp.Lines,
	}, nil
}

type stampPreviewArgs struct {
	Identity string `json:"identity"`
}

// PreviewResult is a rendered stamp.
type PreviewResult struct {
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Lines        []string `json:"lines"`
	FontFallback bool     `json:"font_fallback"`
	ImageBase64  string   `json:"image_base64"`
	MimeType     string   `json:"mime_type"`
}

func (s *Server) handleStampPreview(args json.RawMessage) (interface{}, error) {
	var a stampPreviewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	st, err := s.stamper.Preview(a.Identity)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNGBase64(st.Image)
	if err != nil {
		return nil, err
	}
	size := st.Size()
	return &PreviewResult{
		Width:        size.X,
		Height:       size.Y,
		Lines:        st.Lines,
		FontFallback: st.FontFallback,
		ImageBase64:  encoded,
		MimeType:     "image/png",
	}, nil
}

func (s *Server) handleStampIdentities(args json.RawMessage) (interface{}, error) {
	return map[string]interface{}{
		"identities": s.stamper.Identities(),
	}, nil
}

// === Placement Handlers ===

type stampFindSpaceArgs struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// FindSpaceResult reports where a stamp would go on page 1.
type FindSpaceResult struct {
	Placement   locator.Placement `json:"placement"`
	StampWidth  int               `json:"stamp_width"`
	StampHeight int               `json:"stamp_height"`
	PageWidth   int               `json:"page_width"`
	PageHeight  int               `json:"page_height"`
	DPI         float64           `json:"dpi"`
}

func (s *Server) handleStampFindSpace(args json.RawMessage) (interface{}, error) {
	var a stampFindSpaceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Width < 0 || a.Height < 0 {
		return nil, fmt.Errorf("stamp size must not be negative")
	}
	img, err := s.cache.Raster(a.Path, 0, s.dpi())
	if err != nil {
		return nil, err
	}

	placement, size := s.stamper.FindSpace(img, a.Width, a.Height)
	return &FindSpaceResult{
		Placement:   placement,
		StampWidth:  size.X,
		StampHeight: size.Y,
		PageWidth:   img.Bounds().Dx(),
		PageHeight:  img.Bounds().Dy(),
		DPI:         s.dpi(),
	}, nil
}

type stampPlacementOverlayArgs struct {
	Path      string `json:"path"`
	GridColor string `json:"grid_color"`
	BoxColor  string `json:"box_color"`
	ShowGrid  *bool  `json:"show_grid"`
}

// PlacementOverlayResult is page 1 annotated with the placement scan.
type PlacementOverlayResult struct {
	*imaging.OverlayResult
	Placement locator.Placement `json:"placement"`
}

func (s *Server) handleStampPlacementOverlay(args json.RawMessage) (interface{}, error) {
	var a stampPlacementOverlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.GridColor == "" {
		a.GridColor = "#FF000080"
	}
	if a.BoxColor == "" {
		a.BoxColor = "#0000FF"
	}
	img, err := s.cache.Raster(a.Path, 0, s.dpi())
	if err != nil {
		return nil, err
	}

	placement, size := s.stamper.FindSpace(img, 0, 0)
	spacing := 0
	if a.ShowGrid == nil || *a.ShowGrid {
		spacing = s.stamper.Config().StepPixels()
	}
	overlay, err := imaging.PlacementOverlay(img, placement.Rect(size.X, size.Y), spacing, a.GridColor, a.BoxColor)
	if err != nil {
		return nil, err
	}
	return &PlacementOverlayResult{OverlayResult: overlay, Placement: placement}, nil
}

// === Inspection Handlers ===

type regionArgs struct {
	Path string `json:"path"`
	Page int    `json:"page"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
	X2   int    `json:"x2"`
	Y2   int    `json:"y2"`
}

// loadRegion returns the requested page raster and rectangle.
func (s *Server) loadRegion(args json.RawMessage) (*image.RGBA, image.Rectangle, error) {
	var a regionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, image.Rectangle{}, err
	}
	if a.Page == 0 {
		a.Page = 1
	}
	if a.X1 >= a.X2 || a.Y1 >= a.Y2 {
		return nil, image.Rectangle{}, fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2")
	}
	img, err := s.cache.Raster(a.Path, a.Page-1, s.dpi())
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	return img, image.Rect(a.X1, a.Y1, a.X2, a.Y2), nil
}

// CheckRegionResult reports the classifier verdict for one rectangle.
type CheckRegionResult struct {
	imaging.RegionStats
	Free       bool               `json:"free"`
	Thresholds imaging.Thresholds `json:"thresholds"`
}

func (s *Server) handleStampCheckRegion(args json.RawMessage) (interface{}, error) {
	img, rect, err := s.loadRegion(args)
	if err != nil {
		return nil, err
	}
	th := s.stamper.Thresholds()
	stats, ok := imaging.ComputeRegionStats(img, rect, th)
	if !ok {
		b := img.Bounds()
		return nil, fmt.Errorf("region (%d,%d)-(%d,%d) outside page bounds (%d,%d)",
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y, b.Dx(), b.Dy())
	}
	return &CheckRegionResult{
		RegionStats: stats,
		Free:        stats.Free(th),
		Thresholds:  th,
	}, nil
}

func (s *Server) handleStampCropRegion(args json.RawMessage) (interface{}, error) {
	img, rect, err := s.loadRegion(args)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, rect)
}

type stampDocumentInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleStampDocumentInfo(args json.RawMessage) (interface{}, error) {
	var a stampDocumentInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.cache.Info(a.Path, s.dpi())
}
