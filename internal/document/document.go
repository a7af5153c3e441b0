package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gen2brain/go-fitz"
)

// ErrInvalidDocument marks input that is not a readable PDF.
var ErrInvalidDocument = errors.New("invalid PDF document")

// pdfMagic is the header every PDF file starts with.
const pdfMagic = "%PDF"

// Validate checks the size limit and the PDF header of data.
func Validate(data []byte, maxSize int64) error {
	return ValidateReader(bytes.NewReader(data), int64(len(data)), maxSize)
}

// ValidateReader checks the size limit and the PDF header of r and rewinds
// it. size is the total length of the content.
func ValidateReader(r io.ReadSeeker, size, maxSize int64) error {
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("file size %d exceeds maximum allowed %d bytes", size, maxSize)
	}

	header := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if n < len(pdfMagic) || string(header) != pdfMagic {
		return fmt.Errorf("%w: header does not match", ErrInvalidDocument)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset file position: %w", err)
	}
	return nil
}

// Document is an opened PDF ready for rasterization. It must be closed.
type Document struct {
	doc *fitz.Document
}

// Open parses data as a PDF.
func Open(data []byte) (*Document, error) {
	if err := Validate(data, 0); err != nil {
		return nil, err
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.NumPage() < 1 {
		doc.Close()
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidDocument)
	}
	return &Document{doc: doc}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.doc.NumPage()
}

// Rasterize renders the 0-based page at dpi into an opaque RGB bitmap with
// its origin at the top-left corner of the page.
func (d *Document) Rasterize(page int, dpi float64) (*image.RGBA, error) {
	if page < 0 || page >= d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", page+1, d.doc.NumPage())
	}
	img, err := d.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page %d: %w", page+1, err)
	}
	return img, nil
}

// Close releases the engine resources.
func (d *Document) Close() error {
	return d.doc.Close()
}

// RasterizeFirstPage opens data, renders page 1 at dpi and closes the document.
func RasterizeFirstPage(data []byte, dpi float64) (*image.RGBA, int, error) {
	doc, err := Open(data)
	if err != nil {
		return nil, 0, err
	}
	defer doc.Close()

	img, err := doc.Rasterize(0, dpi)
	if err != nil {
		return nil, 0, err
	}
	return img, doc.PageCount(), nil
}
