// Package util opens input and output files with transparent compression
// selected by the file suffix.
package util

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

type Compression int

const (
	None Compression = iota
	Bzip2
	Gzip
	Zstd
)

// CompressionForFilename returns the compression for the (case-insensitive)
// suffix of filename: .bz2, .gz or .zst.
func CompressionForFilename(filename string) Compression {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".bz2"):
		return Bzip2
	case strings.HasSuffix(lower, ".gz"):
		return Gzip
	case strings.HasSuffix(lower, ".zst"):
		return Zstd
	}
	return None
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var err error
	for _, c := range r.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// NewReader wraps r with a decompressor for c.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case Bzip2:
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, err
		}
		return br, nil
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	}
	return io.NopCloser(r), nil
}

// OpenFile opens filename for reading and decompresses it according to its
// suffix.
func OpenFile(filename string) (io.ReadCloser, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(bufio.NewReader(f), CompressionForFilename(filename))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	return &readCloser{Reader: r, closers: []func() error{r.Close, f.Close}}, nil
}

type writeCloser struct {
	io.Writer
	closers []func() error
}

func (w *writeCloser) Close() error {
	var err error
	for _, c := range w.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// NewWriter wraps w with a compressor for c. Closing the returned writer
// flushes the compressor but does not close w.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case Bzip2:
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	}
	return nopWriteCloser{w}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// CreateFile creates filename and compresses all writes according to its
// suffix. The file is only complete after Close.
func CreateFile(filename string) (io.WriteCloser, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	w, err := NewWriter(buf, CompressionForFilename(filename))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "writing %s", filename)
	}
	return &writeCloser{Writer: w, closers: []func() error{w.Close, buf.Flush, f.Close}}, nil
}
