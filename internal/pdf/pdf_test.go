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

package pdf_test

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stapelberg/g4enc/internal/pdf"
)

func document(stream []byte) (*pdf.Catalog, *pdf.DocumentInfo) {
	size := pdf.PageSize(1728, 2200, 200)
	doc := &pdf.Catalog{
		Common: pdf.Common{ObjectName: "catalog"},
		Pages: &pdf.Pages{
			Common: pdf.Common{ObjectName: "pages"},
			Kids: []pdf.Object{
				&pdf.Page{
					Common: pdf.Common{ObjectName: "page0"},
					Resources: []pdf.Object{
						&pdf.Image{
							Common: pdf.Common{
								ObjectName: "scan0",
								Stream:     stream,
							},
							Width:  1728,
							Height: 2200,
							K:      -1,
						},
					},
					Parent: "pages",
					Contents: []pdf.Object{
						&pdf.Common{
							ObjectName: "content0",
							Stream:     pdf.DrawImage("scan0", size),
						},
					},
					MediaBox: size,
				},
			},
		},
	}
	info := &pdf.DocumentInfo{
		Common:       pdf.Common{ObjectName: "info"},
		CreationDate: time.Unix(1493650928, 0).UTC(),
		Producer:     "https://github.com/stapelberg/g4enc",
	}
	return doc, info
}

func TestEncode(t *testing.T) {
	// Binary data including a newline and a NUL byte.
	stream := []byte{0x26, 0xa0, 0x0a, 0x00, 0x01}
	doc, info := document(stream)
	var buf bytes.Buffer
	if err := pdf.NewEncoder(&buf).Encode(doc, info); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()

	if !bytes.HasPrefix(b, []byte("%PDF-1.0\n%\xe2\xe3\xcf\xd3")) {
		t.Errorf("missing PDF header: %q", b[:16])
	}
	if !bytes.HasSuffix(b, []byte("%%EOF\n")) {
		t.Errorf("missing EOF marker")
	}
	for _, want := range []string{
		"/MediaBox [ 0 0 622.08 792.00 ]",
		"q 622.08 0 0 792.00 0.00 0.00 cm /scan0 Do Q\n",
		"/K -1",
		"/Rows 2200",
		"/Columns 1728",
		"/EndOfBlock false",
		"/Length 5\n",
		"stream\n\x26\xa0\x0a\x00\x01\nendstream",
		"/Producer (https://github.com/stapelberg/g4enc)",
		"/CreationDate (D:20170501150208+00'00')",
	} {
		if !bytes.Contains(b, []byte(want)) {
			t.Errorf("output does not contain %q", want)
		}
	}

	// Every cross-reference entry must point to its object.
	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(b)
	if m == nil {
		t.Fatalf("startxref not found")
	}
	xref, err := strconv.Atoi(string(m[1]))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b[xref:], []byte("\nxref\n0 7\n")) {
		t.Fatalf("startxref %d does not point to the xref table: %q", xref, b[xref:xref+10])
	}
	entries := regexp.MustCompile(`(\d{10}) 00000 n \n`).FindAllSubmatch(b[xref:], -1)
	if got, want := len(entries), 6; got != want {
		t.Fatalf("got %d xref entries, want %d", got, want)
	}
	for idx, entry := range entries {
		offset, err := strconv.Atoi(string(entry[1]))
		if err != nil {
			t.Fatal(err)
		}
		want := fmt.Sprintf("%d 0 obj\n", idx+1)
		if !bytes.HasPrefix(b[offset:], []byte(want)) {
			t.Errorf("xref entry %d: offset %d points to %q, want %q", idx+1, offset, b[offset:offset+len(want)], want)
		}
	}
}

func TestPageSize(t *testing.T) {
	for _, test := range []struct {
		width, height, dpi int
		want               [2]float64
	}{
		{4960, 7016, 600, [2]float64{595.2, 841.92}},
		{72, 144, 72, [2]float64{72, 144}},
		{200, 100, 200, [2]float64{72, 36}},
	} {
		if got := pdf.PageSize(test.width, test.height, test.dpi); got != test.want {
			t.Errorf("PageSize(%d, %d, %d) = %v, want %v", test.width, test.height, test.dpi, got, test.want)
		}
	}
}

func TestDefaultMediaBox(t *testing.T) {
	p := &pdf.Page{Common: pdf.Common{ObjectName: "page0"}}
	var buf bytes.Buffer
	if err := p.Encode(&buf, map[string]pdf.ObjectID{}); err != nil {
		t.Fatal(err)
	}
	if want := "/MediaBox [ 0 0 595.28 841.89 ]"; !bytes.Contains(buf.Bytes(), []byte(want)) {
		t.Errorf("output does not contain %q:\n%s", want, buf.Bytes())
	}
}
