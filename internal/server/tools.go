package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema of the document path argument shared by most tools.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the PDF file",
}

// regionProperties describes a rectangle in page raster pixels.
func regionProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty,
		"page": map[string]interface{}{
			"type":        "integer",
			"description": "1-based page number. Default 1",
			"default":     1,
		},
		"x1": map[string]interface{}{
			"type":        "integer",
			"description": "Left edge X coordinate in raster pixels (0-based)",
		},
		"y1": map[string]interface{}{
			"type":        "integer",
			"description": "Top edge Y coordinate in raster pixels (0-based)",
		},
		"x2": map[string]interface{}{
			"type":        "integer",
			"description": "Right edge X coordinate (exclusive)",
		},
		"y2": map[string]interface{}{
			"type":        "integer",
			"description": "Bottom edge Y coordinate (exclusive)",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Stamping
		{
			Name:        "stamp_pdf",
			Description: "Stamp every page of a PDF with an approval stamp for the given identity. The stamp is placed in the lowest free area of page 1 and the same position is used on all pages. Writes <name>_approved.pdf next to the input unless output_path is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"identity": map[string]interface{}{
						"type":        "string",
						"description": "Name printed on the stamp; must be one of stamp_identities",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path for the stamped PDF",
					},
				},
				"required": []string{"path", "identity"},
			},
		},
		{
			Name:        "stamp_preview",
			Description: "Render the stamp for an identity without a document and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"identity": map[string]interface{}{
						"type":        "string",
						"description": "Name printed on the stamp",
					},
				},
				"required": []string{"identity"},
			},
		},
		{
			Name:        "stamp_identities",
			Description: "List the identities a stamp may carry.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Placement
		{
			Name:        "stamp_find_space",
			Description: "Find where a stamp would be placed on page 1 without modifying the document. Returns the top-left corner in raster pixels and whether the bottom-left fallback was used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Optional stamp width in pixels. Default is the configured stamp width",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Optional stamp height in pixels. Default is the configured stamp height",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "stamp_placement_overlay",
			Description: "Render page 1 with the placement scan grid and the chosen stamp rectangle drawn on top, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"grid_color": map[string]interface{}{
						"type":        "string",
						"description": "Grid line color as hex. Default #FF000080",
						"default":     "#FF000080",
					},
					"box_color": map[string]interface{}{
						"type":        "string",
						"description": "Placement outline color as hex. Default #0000FF",
						"default":     "#0000FF",
					},
					"show_grid": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw the scan grid. Default true",
						"default":     true,
					},
				},
				"required": []string{"path"},
			},
		},

		// Inspection
		{
			Name:        "stamp_check_region",
			Description: "Compute the free-space statistics (white percentage, contrast, text density) for a rectangle of a page and report whether a stamp could go there.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": regionProperties(),
				"required":   []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "stamp_crop_region",
			Description: "Crop a rectangle of a rasterized page and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": regionProperties(),
				"required":   []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "stamp_document_info",
			Description: "Get the page count, file size and page 1 raster size of a PDF.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
