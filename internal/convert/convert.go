// Copyright 2016 Michael Stapelberg and contributors
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

// Package convert turns bilevel images into CCITT fax encoded files:
// raw compressed data, TIFF or PDF.
package convert

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/stapelberg/g4enc/internal/bitpack"
	"github.com/stapelberg/g4enc/internal/g3"
	"github.com/stapelberg/g4enc/internal/g4"
	"github.com/stapelberg/g4enc/internal/raster"
	"github.com/stapelberg/g4enc/internal/tiff"
	"golang.org/x/net/trace"
)

// Format is an output file format.
type Format int

const (
	// Raw is the compressed data without a container.
	Raw Format = iota
	TIFF
	PDF
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case Raw:
		return "raw"
	case TIFF:
		return "tiff"
	case PDF:
		return "pdf"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses the String representation of a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "raw", "":
		return Raw, nil
	case "tiff", "tif":
		return TIFF, nil
	case "pdf":
		return PDF, nil
	}
	return 0, fmt.Errorf("unknown format %q, want raw, tiff or pdf", s)
}

// FormatFromFilename picks the Format by file name extension: .tif and
// .tiff are TIFF, .pdf is PDF, anything else is Raw.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tif", ".tiff":
		return TIFF
	case ".pdf":
		return PDF
	}
	return Raw
}

// Extension returns the file name extension for f.
func (f Format) Extension() string {
	switch f {
	case TIFF:
		return ".tif"
	case PDF:
		return ".pdf"
	default:
		return ".g4"
	}
}

// Options configure a conversion. The zero value produces raw, MSB
// first Group 4 data.
type Options struct {
	Format      Format
	Compression tiff.Compression // defaults to tiff.G4
	Order       bitpack.Order

	// EndOfBlock terminates Group 4 data with an EOFB.
	EndOfBlock bool

	// Resolution in dots per inch, recorded in TIFF files and used for
	// the PDF page size. Defaults to tiff.DefaultResolution.
	Resolution int

	// Software is recorded in TIFF files.
	Software string

	// BufferSize is the initial size of the output buffer. Defaults to
	// the size of the uncompressed image.
	BufferSize int

	// CreationDate is recorded in PDF files. Defaults to time.Now().
	CreationDate time.Time
}

func (o *Options) compression() tiff.Compression {
	if o.Compression == 0 {
		return tiff.G4
	}
	return o.Compression
}

func (o *Options) resolution() int {
	if o.Resolution <= 0 {
		return tiff.DefaultResolution
	}
	return o.Resolution
}

// Result describes a finished conversion.
type Result struct {
	// DataSize is the number of bytes of compressed data.
	DataSize int

	// Written is the number of bytes written, including the container.
	Written int64

	// Retries counts how often the output buffer had to be enlarged.
	Retries int

	// Stats are the Group 4 coding mode statistics.
	Stats g4.Stats
}

// maxGrowth bounds the output buffer relative to the uncompressed
// image. Group 4 never expands an image by more than that.
const maxGrowth = 8

// lineEncoder is implemented by both fax encoders.
type lineEncoder interface {
	addLine(line []byte) error
	finish() error
	stats() g4.Stats
}

type g4Encoder struct{ *g4.Encoder }

// AddLine flushes the output after the last line.
func (e g4Encoder) addLine(line []byte) error { return e.AddLine(line) }
func (e g4Encoder) finish() error             { return nil }
func (e g4Encoder) stats() g4.Stats           { return e.Stats() }

type g3Encoder struct {
	*g3.Encoder
	width int
}

func (e g3Encoder) addLine(line []byte) error { return e.EncodeLine(line, e.width) }
func (e g3Encoder) finish() error             { return e.Flush() }
func (e g3Encoder) stats() g4.Stats           { return g4.Stats{} }

func newLineEncoder(bm *raster.Bitmap, sink bitpack.Sink, opts *Options) (lineEncoder, error) {
	switch c := opts.compression(); c {
	case tiff.G4:
		enc, err := g4.NewEncoder(bm.Width, bm.Height, sink, &g4.Options{
			Order:      opts.Order,
			EndOfBlock: opts.EndOfBlock,
		})
		if err != nil {
			return nil, err
		}
		return g4Encoder{enc}, nil
	case tiff.G3:
		if bm.Width <= 0 || bm.Height <= 0 {
			return nil, fmt.Errorf("%w: image size %dx%d", g4.ErrInvalidParameter, bm.Width, bm.Height)
		}
		return g3Encoder{g3.NewSinkEncoder(sink, opts.Order), bm.Width}, nil
	default:
		return nil, fmt.Errorf("%w: compression %v", g4.ErrInvalidParameter, c)
	}
}

func encodeLines(bm *raster.Bitmap, sink bitpack.Sink, opts *Options) (g4.Stats, error) {
	enc, err := newLineEncoder(bm, sink, opts)
	if err != nil {
		return g4.Stats{}, err
	}
	for y := 0; y < bm.Height; y++ {
		if err := enc.addLine(bm.Line(y)); err != nil {
			return g4.Stats{}, fmt.Errorf("line %d: %w", y, err)
		}
	}
	if err := enc.finish(); err != nil {
		return g4.Stats{}, err
	}
	return enc.stats(), nil
}

// Compress encodes bm into a buffer of fixed size. When the buffer
// overflows, the encoding is restarted with a buffer of twice the
// size.
func Compress(tr trace.Trace, bm *raster.Bitmap, opts *Options) ([]byte, *Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	raw := bm.Stride * bm.Height
	size := opts.BufferSize
	if size <= 0 {
		size = raw
	}
	if size < 64 {
		size = 64
	}
	limit := maxGrowth*raw + 64
	res := &Result{}
	for {
		sink := bitpack.NewFixedSink(make([]byte, size))
		stats, err := encodeLines(bm, sink, opts)
		if err == nil {
			res.DataSize = sink.Len()
			res.Stats = stats
			tr.LazyPrintf("%v-compressed %dx%d pixels (%d bytes) into %d bytes", opts.compression(), bm.Width, bm.Height, raw, res.DataSize)
			if opts.compression() == tiff.G4 {
				tr.LazyPrintf("coding modes: %v", stats)
			}
			return sink.Bytes(), res, nil
		}
		if !errors.Is(err, bitpack.ErrOverflow) || size >= limit {
			return nil, nil, err
		}
		res.Retries++
		tr.LazyPrintf("output buffer of %d bytes too small, retrying", size)
		size *= 2
	}
}

// Stream encodes bm as raw compressed data straight to w, without
// buffering the whole output.
func Stream(tr trace.Trace, w io.Writer, bm *raster.Bitmap, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	sink := bitpack.NewStreamSink(w)
	stats, err := encodeLines(bm, sink, opts)
	if err != nil {
		return nil, err
	}
	tr.LazyPrintf("%v-compressed %dx%d pixels into %d bytes (streamed)", opts.compression(), bm.Width, bm.Height, sink.Len())
	return &Result{
		DataSize: sink.Len(),
		Written:  int64(sink.Written()),
		Stats:    stats,
	}, nil
}

// Convert encodes bm and writes it to w in the format selected by
// opts.
func Convert(tr trace.Trace, w io.Writer, bm *raster.Bitmap, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Format == Raw {
		return Stream(tr, w, bm, opts)
	}
	if opts.Format == PDF && opts.Order != bitpack.MSBFirst {
		// PDF readers expect the CCITTFaxDecode data MSB first.
		o := *opts
		o.Order = bitpack.MSBFirst
		opts = &o
	}
	data, res, err := Compress(tr, bm, opts)
	if err != nil {
		return nil, err
	}
	cw := &countingWriter{w: w}
	switch opts.Format {
	case TIFF:
		err = writeTIFF(cw, bm, data, opts)
	case PDF:
		err = writePDF(cw, []page{{bm: bm, data: data}}, opts)
	default:
		err = fmt.Errorf("unknown format %v", opts.Format)
	}
	if err != nil {
		return nil, err
	}
	res.Written = cw.cnt
	tr.LazyPrintf("wrote %d bytes of %v", cw.cnt, opts.Format)
	return res, nil
}

type countingWriter struct {
	cnt int64
	w   io.Writer
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.cnt += int64(n)
	return n, err
}

func writeTIFF(w io.Writer, bm *raster.Bitmap, data []byte, opts *Options) error {
	h := &tiff.Header{
		Width:       bm.Width,
		Height:      bm.Height,
		Compression: opts.compression(),
		Order:       opts.Order,
		DataSize:    len(data),
		Resolution:  opts.resolution(),
		Software:    opts.Software,
	}
	if _, err := h.WriteTo(w); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
