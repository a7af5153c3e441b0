package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ironsheep/pdf-stamp/internal/config"
	"github.com/ironsheep/pdf-stamp/internal/host"
	"github.com/ironsheep/pdf-stamp/internal/pipeline"
	"github.com/ironsheep/pdf-stamp/internal/testutil"
)

// newTestServer returns a server with a fixed device identifier and clock.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	stamper := pipeline.New(config.Default(), &host.Static{ID: "02:42:AC:11:00:02"}, logger).
		WithClock(func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) })
	return New(stamper, logger)
}

// createTestPDFFile writes a generated PDF named name into a temp dir.
func createTestPDFFile(t *testing.T, name string, pages ...testutil.Page) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, testutil.PDF(pages...), 0o644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}

func a4Blank() testutil.Page {
	return testutil.BlankPage(testutil.A4Width, testutil.A4Height)
}
