package cube

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// HeaderExtension is the suffix of header files.
const HeaderExtension = ".hed"

// HeaderPath returns the header file path for a basename without extension.
func HeaderPath(base string) string {
	return base + HeaderExtension
}

// DataPath returns the data file path for a basename and cube kind.
func DataPath(base string, kind Kind) string {
	return base + kind.DataExtension()
}

// basename strips a trailing .gz and the header or data extension of kind.
func basename(path string, kind Kind) string {
	p := strings.TrimSuffix(path, ".gz")
	for _, ext := range []string{HeaderExtension, kind.DataExtension()} {
		if strings.HasSuffix(strings.ToLower(p), ext) {
			return p[:len(p)-len(ext)]
		}
	}
	return strings.TrimSuffix(p, filepath.Ext(p))
}

func isGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

type gzipReadCloser struct {
	*gzip.Reader
	f *os.File
}

func (g gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if ferr := g.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// openFile opens path for reading, transparently decompressing .gz files.
func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("loading %s failed: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("loading %s failed: %w: %v", path, ErrFileNotFound, err)
	}
	if !isGzip(path) {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}
	return gzipReadCloser{Reader: zr, f: f}, nil
}

type gzipWriteCloser struct {
	*gzip.Writer
	f *os.File
}

func (g gzipWriteCloser) Close() error {
	err := g.Writer.Close()
	if ferr := g.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// createFile creates path for writing, compressing when it ends in .gz.
func createFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if !isGzip(path) {
		return f, nil
	}
	return gzipWriteCloser{Writer: gzip.NewWriter(f), f: f}, nil
}

// writeFile creates path and hands it to fn. A failed write leaves whatever
// was flushed before the failure.
func writeFile(path string, fn func(io.Writer) error) error {
	w, err := createFile(path)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
