package adapters

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

// archiveEpoch stamps entries without a modification time so repeated
// writes of the same content are byte-identical.
var archiveEpoch = time.Date(1980, time.February, 1, 0, 0, 0, 0, time.UTC)

// ZipArchiveAdapter reads jars and exploded directories and writes jars.
type ZipArchiveAdapter struct{}

func NewZipArchiveAdapter() ZipArchiveAdapter {
	return ZipArchiveAdapter{}
}

func (ZipArchiveAdapter) ReadEntry(path string, name string) ([]byte, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	if info.IsDir() {
		data, err := os.ReadFile(filepath.Join(path, filepath.FromSlash(name)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return data, true, nil
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, false, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer reader.Close()
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		data, err := readZipFile(file)
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	}
	return nil, false, nil
}

func (ZipArchiveAdapter) Walk(path string, fn func(entry types.ArchiveEntry) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return walkDirectory(path, fn)
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", path, err)
	}
	defer reader.Close()
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(file)
		if err != nil {
			return err
		}
		entry := types.ArchiveEntry{
			Name:     file.Name,
			Data:     data,
			Modified: file.Modified,
			Stored:   file.Method == zip.Store,
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

func walkDirectory(root string, fn func(entry types.ArchiveEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(types.ArchiveEntry{
			Name:     filepath.ToSlash(rel),
			Data:     data,
			Modified: info.ModTime(),
		})
	})
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", file.Name, err)
	}
	return data, nil
}

func (ZipArchiveAdapter) Create(path string) (ports.ArchiveWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &zipArchiveWriter{
		path:  path,
		file:  file,
		zip:   zip.NewWriter(file),
		names: map[string]struct{}{},
	}, nil
}

type zipArchiveWriter struct {
	path   string
	file   *os.File
	zip    *zip.Writer
	names  map[string]struct{}
	closed bool
}

func (w *zipArchiveWriter) Put(entry types.ArchiveEntry) error {
	if w.closed {
		return fmt.Errorf("archive %s is closed", w.path)
	}
	name := strings.TrimLeft(entry.Name, "/")
	if _, ok := w.names[name]; ok {
		return fmt.Errorf("duplicate archive entry %s", name)
	}
	w.names[name] = struct{}{}
	modified := entry.Modified
	if modified.IsZero() {
		modified = archiveEpoch
	}
	method := zip.Deflate
	if entry.Stored {
		method = zip.Store
	}
	writer, err := w.zip.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	_, err = writer.Write(entry.Data)
	return err
}

func (w *zipArchiveWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.zip.Close(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *zipArchiveWriter) Abort() error {
	if !w.closed {
		w.closed = true
		_ = w.file.Close()
	}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// zipBytes builds an archive in memory. Entries keep their order.
func zipBytes(entries []types.ArchiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, entry := range entries {
		modified := entry.Modified
		if modified.IsZero() {
			modified = archiveEpoch
		}
		method := zip.Deflate
		if entry.Stored {
			method = zip.Store
		}
		w, err := writer.CreateHeader(&zip.FileHeader{Name: entry.Name, Method: method, Modified: modified})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
