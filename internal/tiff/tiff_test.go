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

package tiff

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stapelberg/g4enc/internal/bitpack"
	"github.com/stapelberg/g4enc/internal/g4"
	"golang.org/x/image/tiff"
)

func TestSize(t *testing.T) {
	for _, test := range []struct {
		name string
		h    Header
		want int
	}{
		{
			name: "msb",
			h:    Header{Width: 1, Height: 1, Compression: G4, Software: "g4enc"},
			// 8 + 2 + 12×12 + 4 + 2×8 + len("g4enc\x00")
			want: 180,
		},
		{
			name: "lsb",
			h:    Header{Width: 1, Height: 1, Compression: G4, Order: bitpack.LSBFirst, Software: "g4enc"},
			want: 192,
		},
		{
			name: "odd software length",
			h:    Header{Width: 1, Height: 1, Compression: G4, Software: "g4encd"},
			want: 182,
		},
		{
			name: "no software",
			h:    Header{Width: 1, Height: 1, Compression: G3},
			// 8 + 2 + 11×12 + 4 + 2×8
			want: 162,
		},
		{
			name: "inline software",
			h:    Header{Width: 1, Height: 1, Compression: G4, Software: "abc"},
			want: 174,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := test.h.Size(); got != test.want {
				t.Errorf("Size() = %d, want %d", got, test.want)
			}
			b, err := test.h.MarshalBinary()
			if err != nil {
				t.Fatal(err)
			}
			if got := len(b); got != test.want {
				t.Errorf("len(MarshalBinary()) = %d, want %d", got, test.want)
			}
		})
	}
}

type ifdEntry struct {
	Tag, Type uint16
	Count     uint32
	Value     uint32
}

func parseIFD(t *testing.T, b []byte) []ifdEntry {
	t.Helper()
	if got, want := string(b[:4]), leHeader; got != want {
		t.Fatalf("header = %q, want %q", got, want)
	}
	off := binary.LittleEndian.Uint32(b[4:])
	n := int(binary.LittleEndian.Uint16(b[off:]))
	entries := make([]ifdEntry, n)
	for i := range entries {
		e := b[int(off)+2+i*ifdLen:]
		entries[i] = ifdEntry{
			Tag:   binary.LittleEndian.Uint16(e[0:]),
			Type:  binary.LittleEndian.Uint16(e[2:]),
			Count: binary.LittleEndian.Uint32(e[4:]),
			Value: binary.LittleEndian.Uint32(e[8:]),
		}
	}
	if next := binary.LittleEndian.Uint32(b[int(off)+2+n*ifdLen:]); next != 0 {
		t.Fatalf("next IFD offset = %d, want 0", next)
	}
	return entries
}

func TestEntries(t *testing.T) {
	h := Header{
		Width:       1728,
		Height:      2200,
		Compression: G4,
		Order:       bitpack.LSBFirst,
		DataSize:    12345,
		Software:    "g4enc",
	}
	b, err := h.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	want := []ifdEntry{
		{tImageWidth, dtLong, 1, 1728},
		{tImageLength, dtLong, 1, 2200},
		{tBitsPerSample, dtShort, 1, 1},
		{tCompression, dtShort, 1, 4},
		{tPhotometricInterpretation, dtShort, 1, 0},
		{tFillOrder, dtShort, 1, 2},
		{tStripOffsets, dtLong, 1, 192},
		{tRowsPerStrip, dtLong, 1, 2200},
		{tStripByteCounts, dtLong, 1, 12345},
		{tXResolution, dtRational, 1, 170},
		{tYResolution, dtRational, 1, 178},
		{tResolutionUnit, dtShort, 1, 2},
		{tSoftware, dtASCII, 6, 186},
	}
	got := parseIFD(t, b)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected IFD: diff (-want +got):\n%s", diff)
	}
	for _, off := range []int{170, 178} {
		num := binary.LittleEndian.Uint32(b[off:])
		den := binary.LittleEndian.Uint32(b[off+4:])
		if num != DefaultResolution || den != 1 {
			t.Errorf("resolution at %d = %d/%d, want %d/1", off, num, den, DefaultResolution)
		}
	}
	if got, want := string(b[186:192]), "g4enc\x00"; got != want {
		t.Errorf("software = %q, want %q", got, want)
	}
}

func TestInlineSoftware(t *testing.T) {
	h := Header{Width: 8, Height: 8, Compression: G4, Software: "abc"}
	b, err := h.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	entries := parseIFD(t, b)
	last := entries[len(entries)-1]
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], last.Value)
	if got, want := string(v[:]), "abc\x00"; last.Tag != tSoftware || got != want {
		t.Fatalf("software entry = %+v (%q), want inline %q", last, got, want)
	}
}

func TestInvalid(t *testing.T) {
	for _, h := range []Header{
		{Width: 0, Height: 1, Compression: G4},
		{Width: 1, Height: -1, Compression: G4},
		{Width: 1, Height: 1, Compression: 1},
		{Width: 1, Height: 1, Compression: G4, Order: 5},
		{Width: 1, Height: 1, Compression: G4, DataSize: -1},
	} {
		if _, err := h.MarshalBinary(); err == nil {
			t.Errorf("MarshalBinary(%+v) unexpectedly succeeded", h)
		}
	}
}

func TestDecode(t *testing.T) {
	const width, height = 150, 40
	stride := (width + 7) / 8
	rnd := rand.New(rand.NewSource(1))
	pix := make([]byte, stride*height)
	for i := 0; i < 400; i++ {
		x, y := rnd.Intn(width-10), rnd.Intn(height)
		for dx := 0; dx < 10; dx++ {
			pix[y*stride+(x+dx)/8] |= 0x80 >> uint((x+dx)%8)
		}
	}

	for _, order := range []bitpack.Order{bitpack.MSBFirst, bitpack.LSBFirst} {
		t.Run(order.String(), func(t *testing.T) {
			sink := bitpack.NewFixedSink(make([]byte, 4*len(pix)))
			enc, err := g4.NewEncoder(width, height, sink, &g4.Options{Order: order})
			if err != nil {
				t.Fatal(err)
			}
			for y := 0; y < height; y++ {
				if err := enc.AddLine(pix[y*stride : (y+1)*stride]); err != nil {
					t.Fatal(err)
				}
			}

			h := Header{
				Width:       width,
				Height:      height,
				Compression: G4,
				Order:       order,
				DataSize:    enc.Size(),
				Software:    "g4enc",
			}
			var buf bytes.Buffer
			if _, err := h.WriteTo(&buf); err != nil {
				t.Fatal(err)
			}
			buf.Write(sink.Bytes())

			cfg, err := tiff.DecodeConfig(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Width != width || cfg.Height != height {
				t.Fatalf("DecodeConfig: got %dx%d, want %dx%d", cfg.Width, cfg.Height, width, height)
			}
			img, err := tiff.Decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatal(err)
			}
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					r, _, _, _ := img.At(x, y).RGBA()
					black := r < 0x8000
					want := pix[y*stride+x/8]&(0x80>>uint(x%8)) != 0
					if black != want {
						t.Fatalf("pixel (%d, %d): got black=%v, want %v", x, y, black, want)
					}
				}
			}
		})
	}
}

func TestCompressionString(t *testing.T) {
	got := strings.Join([]string{G3.String(), G4.String(), Compression(1).String()}, ",")
	if want := "g3,g4,Compression(1)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
