// Package host supplies the machine-dependent inputs of the stamp: a stable
// device identifier and the font files found on the local system.
//
// Both are reached through the Provider interface so that rendering can be
// tested deterministically with a substitute provider.
package host

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ErrNoHardwareID is returned when the host has no network interface with a
// hardware address. A random node id would not be stable across runs, so
// none is produced.
var ErrNoHardwareID = errors.New("no hardware address available for device identifier")

// ErrNoFont is returned by ResolveFont when none of the candidate paths exists.
var ErrNoFont = errors.New("no font file found")

// Font is a font file read from disk.
type Font struct {
	Path string
	Data []byte
}

// Provider supplies host state to the stamp renderer.
type Provider interface {
	// DeviceID returns six colon-separated uppercase hex octets that stay
	// the same across invocations on one machine.
	DeviceID() (string, error)

	// ResolveFont returns the first readable file among paths, in order.
	ResolveFont(paths []string) (*Font, error)
}

// System is the Provider backed by the real machine.
type System struct {
	// node returns the node id and the interface it was taken from.
	// nil means uuidNode.
	node func() ([]byte, string)
}

// NewSystem returns the host provider for the local machine.
func NewSystem() *System {
	return &System{}
}

// uuidNode reads the uuid package's node id. NodeID picks the interface
// lazily on first use, so NodeInterface is only meaningful after it.
func uuidNode() ([]byte, string) {
	id := uuid.NodeID()
	return id, uuid.NodeInterface()
}

// DeviceID derives the identifier from the node id the uuid package takes
// from the first network interface with a hardware address.
func (s System) DeviceID() (string, error) {
	node := s.node
	if node == nil {
		node = uuidNode
	}
	id, iface := node()
	if iface == "random" {
		return "", ErrNoHardwareID
	}
	return FormatNodeID(id)
}

// ResolveFont reads the first existing file among paths.
func (System) ResolveFont(paths []string) (*Font, error) {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return &Font{Path: path, Data: data}, nil
	}
	return nil, ErrNoFont
}

// FormatNodeID renders a six byte node id as "AA:BB:CC:DD:EE:FF".
func FormatNodeID(node []byte) (string, error) {
	if len(node) != 6 {
		return "", fmt.Errorf("node id must be 6 bytes, got %d", len(node))
	}
	parts := make([]string, len(node))
	for i, b := range node {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":"), nil
}

// Static is a Provider with fixed answers, for tests and for hosts where
// the identifier is configured externally.
type Static struct {
	ID    string
	IDErr error

	// Fonts maps a path to its contents. Paths not in the map do not exist.
	Fonts map[string][]byte
}

// DeviceID returns s.ID or s.IDErr.
func (s *Static) DeviceID() (string, error) {
	if s.IDErr != nil {
		return "", s.IDErr
	}
	return s.ID, nil
}

// ResolveFont returns the first path present in s.Fonts.
func (s *Static) ResolveFont(paths []string) (*Font, error) {
	for _, path := range paths {
		if data, ok := s.Fonts[path]; ok {
			return &Font{Path: path, Data: data}, nil
		}
	}
	return nil, ErrNoFont
}
