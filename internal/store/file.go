package store

import (
	"context"
	"io"

	"github.com/nas/track-learning/internal/errors"
)

// FileBlob is a document on the local filesystem.
type FileBlob struct {
	path string
}

// NewFileBlob creates a blob at path.
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

// Path returns the document location.
func (b *FileBlob) Path() string {
	return b.path
}

func (b *FileBlob) Read(_ context.Context) ([]byte, error) {
	f, err := OpenNoFollow(b.path)
	if err != nil {
		if errors.Is(err, errors.ErrFileNotFound) {
			return nil, nil
		}
		if errors.As(err) != nil {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

func (b *FileBlob) Write(_ context.Context, data []byte) error {
	return WriteFileAtomic(b.path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
