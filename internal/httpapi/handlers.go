package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/pdf-stamp/internal/document"
	"github.com/ironsheep/pdf-stamp/internal/pipeline"
	"github.com/ironsheep/pdf-stamp/internal/stamp"
)

// Headers set on a stamped download.
const (
	HeaderPlacement = "X-Stamp-Placement"
	HeaderPageCount = "X-Stamp-Page-Count"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	stamper     *pipeline.Stamper
	logger      logrus.FieldLogger
	maxFileSize int64
}

// NewHandler returns handlers backed by stamper.
func NewHandler(stamper *pipeline.Stamper, logger logrus.FieldLogger) *Handler {
	return &Handler{
		stamper:     stamper,
		logger:      logger,
		maxFileSize: stamper.Config().Server.MaxFileSize,
	}
}

// HandleStamp accepts a multipart upload with a "pdf" file and an "identity"
// field and responds with the stamped PDF as an attachment.
func (h *Handler) HandleStamp(c *gin.Context) {
	file, header, err := c.Request.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if err := document.ValidateReader(file, header.Size, h.maxFileSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	res, err := h.stamper.Process(pipeline.Request{
		Document: data,
		FileName: header.Filename,
		Identity: c.PostForm("identity"),
	})
	if err != nil {
		h.fail(c, "Error processing PDF", err)
		return
	}

	c.Header("Content-Disposition", contentDisposition(res.FileName))
	c.Header(HeaderPlacement, fmt.Sprintf("%s x=%d y=%d", res.Placement.Kind, res.Placement.X, res.Placement.Y))
	c.Header(HeaderPageCount, strconv.Itoa(res.PageCount))
	c.Data(http.StatusOK, "application/pdf", res.Document)
}

// HandlePreview renders the stamp for the "identity" form field as PNG.
func (h *Handler) HandlePreview(c *gin.Context) {
	st, err := h.stamper.Preview(c.PostForm("identity"))
	if err != nil {
		h.fail(c, "Error rendering stamp", err)
		return
	}
	c.Data(http.StatusOK, "image/png", st.PNG)
}

// HandleIdentities lists the accepted identities.
func (h *Handler) HandleIdentities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"identities": h.stamper.Identities()})
}

// fail writes a single JSON error. Input problems are 400, everything else 500.
func (h *Handler) fail(c *gin.Context, prefix string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, document.ErrInvalidDocument) ||
		errors.Is(err, pipeline.ErrUnknownIdentity) ||
		errors.Is(err, stamp.ErrEmptyIdentity) {
		status = http.StatusBadRequest
	}
	h.logger.WithError(err).WithField("status", status).Warn("request failed")
	c.JSON(status, gin.H{"error": fmt.Sprintf("%s: %v", prefix, err)})
}

// contentDisposition builds an attachment header for name. Names outside
// printable ASCII get an underscored filename fallback plus an RFC 5987
// filename* parameter carrying the UTF-8 original.
func contentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)

	header := `attachment; filename="` + fallback + `"`
	if fallback != name {
		header += "; filename*=UTF-8''" + encodeExtValue(name)
	}
	return header
}

// encodeExtValue percent-encodes every byte of s that is not an RFC 5987
// attr-char.
func encodeExtValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
