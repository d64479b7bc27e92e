package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Archive keeps rendered certificate PDFs on disk so a certificate is not
// re-rendered on every download. Entries are keyed by serial number.
type Archive struct {
	dir string
}

// NewArchive creates the backing directory if needed.
func NewArchive(dir string) (*Archive, error) {
	if dir == "" {
		dir = "./var/certificates"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Get returns the archived PDF for the serial, or ok=false when absent.
// A nil archive always misses.
func (a *Archive) Get(serial string) ([]byte, bool) {
	if a == nil {
		return nil, false
	}
	data, err := os.ReadFile(a.path(serial))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores the PDF, replacing any previous copy for the serial.
func (a *Archive) Put(serial string, pdf []byte) error {
	if a == nil {
		return nil
	}
	path := a.path(serial)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, pdf, 0o644); err != nil {
		return fmt.Errorf("write certificate %s: %w", serial, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish certificate %s: %w", serial, err)
	}
	return nil
}

// Remove deletes the archived copy, if any. Used when a certificate is
// revoked and must be rendered anew on the next request.
func (a *Archive) Remove(serial string) error {
	if a == nil {
		return nil
	}
	if err := os.Remove(a.path(serial)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove certificate %s: %w", serial, err)
	}
	return nil
}

func (a *Archive) path(serial string) string {
	// Serials are generated internally but sanitize anyway so a crafted
	// value cannot escape the archive directory.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, serial)
	return filepath.Join(a.dir, safe+".pdf")
}
