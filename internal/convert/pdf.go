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

package convert

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/stapelberg/g4enc/internal/bitpack"
	"github.com/stapelberg/g4enc/internal/pdf"
	"github.com/stapelberg/g4enc/internal/raster"
	"github.com/stapelberg/g4enc/internal/tiff"
	"golang.org/x/net/trace"
)

const producer = "https://github.com/stapelberg/g4enc"

type page struct {
	bm   *raster.Bitmap
	data []byte
}

func writePDF(w io.Writer, pages []page, opts *Options) error {
	var kids []pdf.Object
	for idx, p := range pages {
		scanName := fmt.Sprintf("scan%d", idx)
		size := pdf.PageSize(p.bm.Width, p.bm.Height, opts.resolution())
		img := &pdf.Image{
			Common: pdf.Common{
				ObjectName: scanName,
				Stream:     p.data,
			},
			Width:  p.bm.Width,
			Height: p.bm.Height,
			K:      -1,
		}
		if opts.compression() == tiff.G3 {
			img.K = 0
			img.EndOfLine = true
		} else {
			img.EndOfBlock = opts.EndOfBlock
		}
		kids = append(kids, &pdf.Page{
			Common:    pdf.Common{ObjectName: fmt.Sprintf("page%d", idx)},
			Resources: []pdf.Object{img},
			Parent:    "pages",
			Contents: []pdf.Object{
				&pdf.Common{
					ObjectName: fmt.Sprintf("content%d", idx),
					Stream:     pdf.DrawImage(scanName, size),
				},
			},
			MediaBox: size,
		})
	}

	doc := &pdf.Catalog{
		Common: pdf.Common{ObjectName: "catalog"},
		Pages: &pdf.Pages{
			Common: pdf.Common{ObjectName: "pages"},
			Kids:   kids,
		},
	}
	created := opts.CreationDate
	if created.IsZero() {
		created = time.Now()
	}
	info := &pdf.DocumentInfo{
		Common:       pdf.Common{ObjectName: "info"},
		CreationDate: created,
		Producer:     producer,
	}
	return pdf.NewEncoder(w).Encode(doc, info)
}

// ErrNoPages is returned by PDFPages if there is no page to write.
var ErrNoPages = errors.New("no non-blank pages")

// blank is the fraction of white pixels above which a page is
// considered empty.
const blank = 0.99

// PDFPages writes a PDF file with one page per bitmap to w. Pages with
// more than 99% white pixels are skipped. PDF bit order is always MSB
// first, opts.Order is ignored.
func PDFPages(tr trace.Trace, w io.Writer, bms []*raster.Bitmap, opts *Options) (int, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	o.Order = bitpack.MSBFirst
	var pages []page
	for idx, bm := range bms {
		if whitePct := bm.WhiteFraction(); whitePct > blank {
			tr.LazyPrintf("white percentage of page %d is %f, skipping blank page", idx, whitePct)
			continue
		}
		data, _, err := Compress(tr, bm, &o)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", idx, err)
		}
		pages = append(pages, page{bm: bm, data: data})
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("%w: all %d pages are blank", ErrNoPages, len(bms))
	}
	return len(pages), writePDF(w, pages, &o)
}
