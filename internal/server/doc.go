// Package server implements the MCP (Model Context Protocol) server for PDF
// approval stamping.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Stamping:
//   - stamp_pdf: Stamp every page and write <name>_approved.pdf
//   - stamp_preview: Render the stamp for an identity
//   - stamp_identities: List accepted identities
//
// Placement:
//   - stamp_find_space: Locate free space on page 1 without stamping
//   - stamp_placement_overlay: Show the scan grid and chosen rectangle
//
// Inspection:
//   - stamp_check_region: Classifier statistics for a rectangle
//   - stamp_crop_region: Crop a rectangle of a rasterized page
//   - stamp_document_info: Page count and page 1 raster size
//
// All coordinates are raster pixels at the configured DPI (300 by default),
// origin at the top-left corner of the page.
//
// # Document Caching
//
// Input files and their page rasters are cached by path for the lifetime of
// the process. An entry is reloaded when the file changes on disk.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Logging goes through logrus and must not be directed at stdout.
package server
