// Package document wraps the PDF engines used by the stamping pipeline.
//
// Two engines are involved:
//   - MuPDF (through go-fitz) rasterizes pages to RGB bitmaps for the
//     free-space scan.
//   - pdfcpu composites the stamp image onto every page and serializes the
//     result.
//
// # Coordinate Conversion
//
// Placements are computed in raster pixels at a given DPI, with the origin at
// the top-left corner of the page. PDF user space uses points (1/72 inch).
// A pixel coordinate p maps to p * 72 / DPI points; the stamp is anchored
// to the top-left corner of each page so that the same offsets apply to
// every page, whatever its height.
//
// # Errors
//
// Any failure to read, parse, rasterize or write a document wraps
// ErrInvalidDocument or is returned as is; no partial output is ever
// produced.
package document
