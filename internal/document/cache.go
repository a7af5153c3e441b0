package document

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"
)

// Cache keeps PDF files and their page rasters in memory, keyed by path.
//
// An entry is reloaded when the file's size or modification time changes,
// so a cached document never outlives an edit on disk. Cache is safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	maxSize int64
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	size    int64
	modTime time.Time
	data    []byte
	pages   int
	rasters map[rasterKey]*image.RGBA
}

type rasterKey struct {
	page int
	dpi  float64
}

// NewCache returns an empty cache. Files larger than maxSize bytes are
// rejected; zero disables the limit.
func NewCache(maxSize int64) *Cache {
	return &Cache{
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
	}
}

// Load returns the contents of the PDF at path.
func (c *Cache) Load(path string) ([]byte, error) {
	e, err := c.entry(path)
	if err != nil {
		return nil, err
	}
	return e.data, nil
}

// Raster returns the 0-based page of the PDF at path rendered at dpi.
// The returned image is shared and must not be modified.
func (c *Cache) Raster(path string, page int, dpi float64) (*image.RGBA, error) {
	e, err := c.entry(path)
	if err != nil {
		return nil, err
	}
	key := rasterKey{page: page, dpi: dpi}

	c.mu.RLock()
	img, ok := e.rasters[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	doc, err := Open(e.data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	img, err = doc.Rasterize(page, dpi)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := e.rasters[key]; ok {
		return cached, nil
	}
	e.rasters[key] = img
	return img, nil
}

// Info describes a cached PDF file.
type Info struct {
	Path          string `json:"path"`
	PageCount     int    `json:"page_count"`
	FileSizeBytes int64  `json:"file_size_bytes"`

	// FirstPageWidth and FirstPageHeight are the page 1 raster size in
	// pixels at DPI.
	FirstPageWidth  int     `json:"first_page_width"`
	FirstPageHeight int     `json:"first_page_height"`
	DPI             float64 `json:"dpi"`
}

// Info loads the PDF at path and reports its page count and page 1 size.
func (c *Cache) Info(path string, dpi float64) (*Info, error) {
	e, err := c.entry(path)
	if err != nil {
		return nil, err
	}
	img, err := c.Raster(path, 0, dpi)
	if err != nil {
		return nil, err
	}
	return &Info{
		Path:            path,
		PageCount:       e.pages,
		FileSizeBytes:   e.size,
		FirstPageWidth:  img.Bounds().Dx(),
		FirstPageHeight: img.Bounds().Dy(),
		DPI:             dpi,
	}, nil
}

// Evict removes path from the cache.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) entry(path string) (*cacheEntry, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("failed to open document: %s is a directory", path)
	}

	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && e.matches(stat) {
		return e, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if err := Validate(data, c.maxSize); err != nil {
		return nil, err
	}
	doc, err := Open(data)
	if err != nil {
		return nil, err
	}
	pages := doc.PageCount()
	doc.Close()

	e = &cacheEntry{
		size:    stat.Size(),
		modTime: stat.ModTime(),
		data:    data,
		pages:   pages,
		rasters: make(map[rasterKey]*image.RGBA),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Another caller may have loaded the same version meanwhile; keep its
	// entry so rasters already cached on it survive.
	if current, ok := c.entries[path]; ok && current.matches(stat) {
		return current, nil
	}
	c.entries[path] = e
	return e, nil
}

// matches reports whether e was loaded from the file version described by stat.
func (e *cacheEntry) matches(stat os.FileInfo) bool {
	return e.size == stat.Size() && e.modTime.Equal(stat.ModTime())
}
