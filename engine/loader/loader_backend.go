package loader

import (
	"fmt"
	"io/fs"
	"os"
)

// sourceBackend defines how definition files are read. Concrete implementations read from
// the operating system or from an fs.FS.
type sourceBackend interface {
	// Read returns the text of the definition at path.
	//
	// Parameters:
	//   - path: the path to read
	//
	// Returns:
	//   - string: the definition text
	//   - error: error if reading fails
	Read(path string) (string, error)
}

// osBackend reads definitions from the local file system.
type osBackend struct{}

var _ sourceBackend = osBackend{}

func (osBackend) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// fsBackend reads definitions from an fs.FS, typically an embed.FS.
type fsBackend struct {
	fsys fs.FS
}

var _ sourceBackend = fsBackend{}

func (b fsBackend) Read(path string) (string, error) {
	data, err := fs.ReadFile(b.fsys, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
