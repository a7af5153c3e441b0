// Package testutil builds small, valid PDF documents for tests.
package testutil

import (
	"bytes"
	"fmt"
)

// A4 page size in points.
const (
	A4Width  = 595.2756
	A4Height = 841.8898
)

// Rect is a filled rectangle in points, measured from the page's top-left
// corner like a raster.
type Rect struct {
	X, Y, Width, Height float64
}

// Page describes one page of a generated document.
type Page struct {
	Width, Height float64

	// Black lists rectangles painted solid black.
	Black []Rect
}

// BlankPage returns an empty page of the given size.
func BlankPage(width, height float64) Page {
	return Page{Width: width, Height: height}
}

// DarkPage returns a page painted black edge to edge.
func DarkPage(width, height float64) Page {
	return Page{Width: width, Height: height, Black: []Rect{{0, 0, width, height}}}
}

// PDF serializes pages into a PDF 1.4 file with a correct cross-reference
// table.
func PDF(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	begin := func() int {
		offsets = append(offsets, buf.Len())
		n := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n", n)
		return n
	}
	end := func() {
		buf.WriteString("endobj\n")
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	begin()
	buf.WriteString("<< /Type /Catalog /Pages 2 0 R >>\n")
	end()

	// Page objects are numbered 3, 5, 7, ... with their content stream
	// directly after.
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	begin()
	fmt.Fprintf(&buf, "<< /Type /Pages /Kids [%s] /Count %d >>\n", kids, len(pages))
	end()

	for i, p := range pages {
		begin()
		fmt.Fprintf(&buf, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.4f %.4f] /Resources << >> /Contents %d 0 R >>\n",
			p.Width, p.Height, 4+2*i)
		end()

		var content bytes.Buffer
		if len(p.Black) > 0 {
			content.WriteString("0 0 0 rg\n")
		}
		for _, r := range p.Black {
			fmt.Fprintf(&content, "%.4f %.4f %.4f %.4f re f\n", r.X, p.Height-r.Y-r.Height, r.Width, r.Height)
		}

		begin()
		fmt.Fprintf(&buf, "<< /Length %d >>\nstream\n", content.Len())
		buf.Write(content.Bytes())
		buf.WriteString("\nendstream\n")
		end()
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}
