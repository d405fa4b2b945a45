package annotation

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Record names inside the data directory.
const (
	MarkersRecord = "markers.json"
	ShapesRecord  = "shapes.json"
)

// Backend reads and writes whole named records.
// Read must return an error matching fs.ErrNotExist for absent records.
type Backend interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

// DirBackend stores records as files in a directory.
//
// Writes go through a temporary file and a rename, so a failed write leaves
// the previous content in place. There is no locking: two processes sharing
// a directory overwrite each other's changes.
type DirBackend struct {
	Dir string
}

// Read returns the content of the record file.
func (d DirBackend) Read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Dir, name))
}

// Write replaces the record file with data.
func (d DirBackend) Write(name string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(d.Dir, "."+name+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// remove the temp file on any failure below
	committed := false
	defer func() {
		if !committed {
			if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Error().Err(rmErr).Str("path", tmp).Msg("Failed to remove temp file")
			}
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(d.Dir, name)); err != nil {
		return err
	}

	committed = true
	return nil
}
