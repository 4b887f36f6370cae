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

// Program g4enc compresses bilevel images using CCITT Group 4 (or Group
// 3) fax encoding, writing raw compressed data, TIFF or PDF files.
//
// Usage:
//
//	g4enc [flags] <in> <out>
//	g4enc -out_dir=<dir> [flags] <in>...
//	g4enc -merge_pdf=<out.pdf> [flags] <in>...
//
// The output format is chosen by the file name extension of <out>: .tif
// and .tiff select TIFF, .pdf selects PDF, anything else writes the
// compressed data only. Inputs are BMP, PNG, GIF or JPEG files (which
// are binarized), or OBD display buffers with -obd.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/renameio"
	"github.com/stapelberg/g4enc/internal/bitpack"
	"github.com/stapelberg/g4enc/internal/convert"
	"github.com/stapelberg/g4enc/internal/raster"
	"github.com/stapelberg/g4enc/internal/tiff"
	"golang.org/x/net/trace"
	"golang.org/x/sync/errgroup"
)

type config struct {
	format string
	opts   convert.Options
	obd    string
}

// parseSize parses WIDTHxHEIGHT.
func parseSize(s string) (width, height int, _ error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %v", s, err)
	}
	height, err = strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %v", s, err)
	}
	return width, height, nil
}

func (c *config) read(path string) (*raster.Bitmap, error) {
	if c.obd != "" {
		width, height, err := parseSize(c.obd)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return raster.FromOBD(b, width, height)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bm, _, _, err := raster.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bm, nil
}

func (c *config) encode(in, out string) (err error) {
	tr := trace.New("g4enc", in)
	defer tr.Finish()
	defer func() {
		if err != nil {
			tr.SetError()
		}
	}()

	bm, err := c.read(in)
	if err != nil {
		return err
	}
	opts := c.opts // copy
	opts.Format = convert.FormatFromFilename(out)
	if c.format != "" {
		if opts.Format, err = convert.ParseFormat(c.format); err != nil {
			return err
		}
	}

	o, err := renameio.TempFile("", out)
	if err != nil {
		return err
	}
	defer o.Cleanup()
	res, err := convert.Convert(tr, o, bm, &opts)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	if err := o.CloseAtomicallyReplace(); err != nil {
		return err
	}
	raw := bm.Stride * bm.Height
	log.Printf("%s: %dx%d pixels, %d bytes compressed (%.1f%% of %d), wrote %d bytes of %v to %s",
		in, bm.Width, bm.Height, res.DataSize, 100*float64(res.DataSize)/float64(raw), raw, res.Written, opts.Format, out)
	return nil
}

func (c *config) mergePDF(ins []string, out string) error {
	tr := trace.New("g4enc", out)
	defer tr.Finish()
	bms := make([]*raster.Bitmap, len(ins))
	for idx, in := range ins {
		bm, err := c.read(in)
		if err != nil {
			return err
		}
		bms[idx] = bm
	}
	o, err := renameio.TempFile("", out)
	if err != nil {
		return err
	}
	defer o.Cleanup()
	n, err := convert.PDFPages(tr, o, bms, &c.opts)
	if err != nil {
		return err
	}
	if err := o.CloseAtomicallyReplace(); err != nil {
		return err
	}
	log.Printf("wrote %d pages (%d blank pages skipped) to %s", n, len(ins)-n, out)
	return nil
}

func logic() error {
	format := flag.String("format",
		"",
		"Output format (raw, tiff or pdf). If empty, the format is chosen by the output file name extension.")

	compression := flag.String("compression",
		"g4",
		"Compression: g4 for CCITT Group 4 (T.6) or g3 for CCITT Group 3 One-Dimensional (T.4)")

	order := flag.String("order",
		"msb",
		"Bit order within each output byte: msb (TIFF FillOrder 1) or lsb (FillOrder 2). PDF output is always msb.")

	eofb := flag.Bool("eofb",
		false,
		"Terminate Group 4 data with an end-of-facsimile-block (EOFB) code")

	dpi := flag.Int("dpi",
		tiff.DefaultResolution,
		"Image resolution in dots per inch, recorded in TIFF files and used to compute the PDF page size")

	software := flag.String("software",
		"g4enc",
		"Value of the TIFF Software tag. Empty omits the tag.")

	obd := flag.String("obd",
		"",
		"If non-empty, WIDTHxHEIGHT of the inputs, which are read as OBD display buffers (8-row pages of vertical bytes, as used by SSD1306 displays) instead of image files")

	outDir := flag.String("out_dir",
		"",
		"If non-empty, convert all arguments into this directory instead of converting <in> to <out>. Output files are named after the input file, with the extension of -format.")

	mergePDF := flag.String("merge_pdf",
		"",
		"If non-empty, convert all arguments into a single PDF file with one page per input. Blank pages are skipped.")

	jobs := flag.Int("jobs",
		runtime.NumCPU(),
		"Number of files to convert concurrently with -out_dir")

	flag.Parse()

	c := &config{
		format: *format,
		obd:    *obd,
		opts: convert.Options{
			EndOfBlock: *eofb,
			Resolution: *dpi,
			Software:   *software,
		},
	}
	var err error
	if c.opts.Order, err = bitpack.ParseOrder(*order); err != nil {
		return err
	}
	switch *compression {
	case "g4":
		c.opts.Compression = tiff.G4
	case "g3":
		c.opts.Compression = tiff.G3
	default:
		return fmt.Errorf("unknown -compression %q, want g3 or g4", *compression)
	}

	args := flag.Args()
	switch {
	case *mergePDF != "":
		if len(args) == 0 {
			return errors.New("syntax: g4enc -merge_pdf=<out.pdf> <in>...")
		}
		return c.mergePDF(args, *mergePDF)

	case *outDir != "":
		if len(args) == 0 {
			return errors.New("syntax: g4enc -out_dir=<dir> <in>...")
		}
		f, err := convert.ParseFormat(*format)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			return err
		}
		eg, ctx := errgroup.WithContext(context.Background())
		eg.SetLimit(*jobs)
		for _, in := range args {
			in := in // copy
			base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
			out := filepath.Join(*outDir, base+f.Extension())
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return c.encode(in, out)
			})
		}
		return eg.Wait()

	default:
		if len(args) != 2 {
			return errors.New("syntax: g4enc [flags] <in> <out>")
		}
		return c.encode(args[0], args[1])
	}
}

func main() {
	if err := logic(); err != nil {
		log.Fatal(err)
	}
}
