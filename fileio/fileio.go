// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fileio

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Stdio is the path that selects standard input or output.
const Stdio = "-"

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic   = []byte{0x04, 0x22, 0x4d, 0x18}
	bzip2Magic = []byte{'B', 'Z', 'h'}
)

// readCloser pairs a decompressing reader with the closers underneath it.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenInput opens fname for reading and transparently decompresses gzip,
// zstd, lz4 and bzip2 streams, detected by their magic bytes.
// Plain files are returned buffered. "-" reads standard input.
func OpenInput(fname string) (io.ReadCloser, error) {
	var f io.ReadCloser = os.Stdin
	if fname != Stdio {
		file, err := os.Open(fname)
		if err != nil {
			return nil, err
		}
		f = file
	}

	r, err := decompress(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", fname, err)
	}
	r.closers = append(r.closers, f.Close)
	return r, nil
}

// decompress wraps r with the decompressor its leading bytes call for.
// The returned reader does not close r.
func decompress(r io.Reader) (*readCloser, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close}}, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: zr, closers: []func() error{func() error {
			zr.Close()
			return nil
		}}}, nil
	case bytes.HasPrefix(head, lz4Magic):
		return &readCloser{Reader: lz4.NewReader(br)}, nil
	case bytes.HasPrefix(head, bzip2Magic):
		return &readCloser{Reader: bzip2.NewReader(br)}, nil
	default:
		return &readCloser{Reader: br}, nil
	}
}

// writeCloser flushes and closes a compressor before the file underneath.
type writeCloser struct {
	io.Writer
	closers []func() error
}

func (w *writeCloser) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenOutput creates fname for writing, compressing by extension:
// .gz (gzip), .zst (zstd), .lz4 (lz4), anything else plain.
// "-" or an empty name writes to standard output, which is never closed.
func OpenOutput(fname string) (io.WriteCloser, error) {
	if fname == "" || fname == Stdio {
		return &writeCloser{Writer: os.Stdout}, nil
	}

	f, err := os.Create(fname)
	if err != nil {
		return nil, err
	}

	w, err := compress(f, fname)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closers = append(w.closers, f.Close)
	return w, nil
}

// compress wraps w with the compressor selected by the extension of name.
// Closing the result finishes the compressed stream but does not close w.
func compress(w io.Writer, name string) (*writeCloser, error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		zw := gzip.NewWriter(w)
		return &writeCloser{Writer: zw, closers: []func() error{zw.Close}}, nil
	case strings.HasSuffix(name, ".zst"):
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		return &writeCloser{Writer: zw, closers: []func() error{zw.Close}}, nil
	case strings.HasSuffix(name, ".lz4"):
		zw := lz4.NewWriter(w)
		return &writeCloser{Writer: zw, closers: []func() error{zw.Close}}, nil
	default:
		return &writeCloser{Writer: w}, nil
	}
}
