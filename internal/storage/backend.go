package storage

import (
	"io"

	"github.com/pkg/errors"
)

// Backend is the interface that wraps the basic file operations.
// Files are addressed by a directory relative to the workspace and a file name.
type Backend interface {
	// Name returns the name of the backend implementation.
	Name() string

	// Reader returns a ReadCloser of the file.
	Reader(dir, name string) (io.ReadCloser, error)
	// Writer returns a WriteCloser of the file. The content is flushed to disk on Close.
	Writer(dir, name string) (io.WriteCloser, error)
	// Move renames a file, creating the destination directory when needed.
	Move(sd, sn, dd, dn string) error
	// Exist returns true if the file exists.
	Exist(dir, name string) bool

	// FilenamesFrom lists the file names of the given directory.
	FilenamesFrom(dir string) ([]string, error)

	// Remove deletes the given file.
	Remove(dir, name string) error
	// RemoveAll deletes all the file and folders.
	RemoveAll(dir string) error
	// Cleanup cleans useless artifacts in storage.
	Cleanup() error
}

// ReadFile returns the whole content of a file.
func ReadFile(b Backend, dir, name string) ([]byte, error) {
	r, err := b.Reader(dir, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	payload, err := io.ReadAll(r)
	return payload, errors.Wrap(err, "could not read file")
}

// WriteFile replaces the content of a file.
// The payload is written aside then moved over the target so readers never see a partial file.
func WriteFile(b Backend, dir, name string, payload []byte) error {
	tmp := "." + name + ".tmp"

	w, err := b.Writer(dir, tmp)
	if err != nil {
		return err
	}

	if _, err = w.Write(payload); err != nil {
		w.Close()
		return errors.Wrap(err, "could not write file")
	}
	if err = w.Close(); err != nil {
		return errors.Wrap(err, "could not write file")
	}

	return b.Move(dir, tmp, dir, name)
}
