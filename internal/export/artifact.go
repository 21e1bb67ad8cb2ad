package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ContentType is the MIME type of every artifact.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Artifact is a finished spreadsheet on local disk. It is owned by the request
// that built it and must be released once delivered.
type Artifact struct {
	// Path is the unique on-disk location.
	Path string
	// Name is the download file name offered to the client.
	Name string
	// Rows counts data rows, header excluded.
	Rows int
}

// Open opens the artifact for reading.
func (a *Artifact) Open() (*os.File, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Release deletes the artifact file. Calling it again, or on a file that is
// already gone, is not an error.
func (a *Artifact) Release() error {
	if a == nil {
		return nil
	}
	return removeFile(a.Path)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
