package storage

import (
	"io"
	fspkg "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type fs struct {
	workspace string
}

// NewFileSystem returns a new File System backend.
func NewFileSystem(workspace string) Backend {
	return &fs{
		workspace: workspace,
	}
}

func (b *fs) Name() string {
	return "file_system"
}

func (b *fs) Reader(dir, name string) (io.ReadCloser, error) {
	rc, err := os.Open(filepath.Join(b.workspace, dir, name))
	if err != nil {
		return rc, errors.Wrap(err, "could not open file")
	}
	return rc, err
}

func (b *fs) Writer(dir, name string) (io.WriteCloser, error) {
	b.mkdirAllWithFilename(dir, name)

	f, err := os.Create(filepath.Join(b.workspace, dir, name))
	if err != nil {
		return f, errors.Wrap(err, "could not create file")
	}
	return &syncCloser{File: f}, err
}

func (b *fs) Move(sd, sn, dd, dn string) error {
	b.mkdirAllWithFilename(dd, dn)

	err := os.Rename(filepath.Join(b.workspace, sd, sn), filepath.Join(b.workspace, dd, dn))
	return errors.Wrap(err, "could not move file")
}

func (b *fs) FilenamesFrom(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(b.workspace, dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not list files")
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		filenames = append(filenames, entry.Name())
	}

	return filenames, nil
}

func (b *fs) Exist(dir, name string) bool {
	_, err := os.Stat(filepath.Join(b.workspace, dir, name))
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	return true // ignoring error
}

func (b *fs) RemoveAll(dir string) error {
	return b.Remove(dir, "")
}

func (b *fs) Remove(dir, name string) error {
	err := os.RemoveAll(filepath.Join(b.workspace, dir, name))
	if err != nil {
		return errors.Wrap(err, "could not delete file")
	}
	return nil
}

// Cleanup removes empty directories and leftovers of interrupted writes.
func (b *fs) Cleanup() error {
	if _, err := os.Stat(b.workspace); os.IsNotExist(err) {
		return nil
	}

	stats := map[string]int{}
	err := filepath.Walk(b.workspace, func(path string, info fspkg.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == b.workspace {
				return nil
			}
			stats[path] += 0
			return nil
		}

		if strings.HasSuffix(path, ".tmp") && strings.HasPrefix(info.Name(), ".") {
			return os.Remove(path)
		}

		for dir := filepath.Dir(path); strings.HasPrefix(dir, b.workspace) && dir != b.workspace; dir = filepath.Dir(dir) {
			stats[dir]++
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "cleanup")
	}

	// Remove empty directories.
	//
	for dirname, count := range stats {
		if count == 0 {
			os.RemoveAll(dirname)
		}
	}
	return nil
}

func (b *fs) mkdirAllWithFilename(dir, name string) {
	b.mkdirAll(dir, filepath.Dir(name))
}

func (b *fs) mkdirAll(dir, name string) {
	if !b.Exist(dir, name) {
		os.MkdirAll(filepath.Join(b.workspace, dir, name), 0755)
	}
}

// syncCloser flushes the file to disk before closing it.
type syncCloser struct {
	*os.File
}

func (f *syncCloser) Close() error {
	if err := f.File.Sync(); err != nil {
		f.File.Close()
		return err
	}
	return f.File.Close()
}
