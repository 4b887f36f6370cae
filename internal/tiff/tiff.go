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

// Package tiff writes the header of a single-strip, bilevel TIFF file
// whose image data is CCITT fax encoded. The compressed data follows
// the header immediately, so the header can be written before or after
// the data is known, as long as its size is.
//
// It follows the TIFF Revision 6.0 specification:
// https://www.itu.int/itudoc/itu-t/com16/tiff-fx/docs/tiff6.pdf
package tiff

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/stapelberg/g4enc/internal/bitpack"
)

// Compression is the value of the TIFF Compression tag.
type Compression uint16

const (
	// G3 is CCITT Group 3 One-Dimensional (T.4) encoding.
	G3 Compression = 3

	// G4 is CCITT Group 4 (T.6) encoding.
	G4 Compression = 4
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case G3:
		return "g3"
	case G4:
		return "g4"
	default:
		return fmt.Sprintf("Compression(%d)", uint16(c))
	}
}

// DefaultResolution is the resolution in dots per inch used when
// Header.Resolution is zero. It matches fine fax mode.
const DefaultResolution = 200

// Header describes a TIFF file holding a single CCITT encoded image.
type Header struct {
	Width, Height int
	Compression   Compression

	// Order is the bit order of the compressed data. LSBFirst adds a
	// FillOrder tag.
	Order bitpack.Order

	// DataSize is the number of bytes of compressed data.
	DataSize int

	// Resolution in dots per inch, both horizontally and vertically.
	Resolution int

	// Software is recorded in the Software tag, if non-empty.
	Software string
}

type entry struct {
	tag, datatype uint16
	count         uint32
	value         uint32 // value or offset
}

func (h *Header) validate() error {
	if h.Width <= 0 || h.Height <= 0 {
		return fmt.Errorf("tiff: invalid image size %dx%d", h.Width, h.Height)
	}
	if h.Compression != G3 && h.Compression != G4 {
		return fmt.Errorf("tiff: unsupported compression %v", h.Compression)
	}
	if h.Order != bitpack.MSBFirst && h.Order != bitpack.LSBFirst {
		return fmt.Errorf("tiff: unsupported bit order %v", h.Order)
	}
	if h.DataSize < 0 {
		return fmt.Errorf("tiff: negative data size %d", h.DataSize)
	}
	return nil
}

func (h *Header) numEntries() int {
	n := 11
	if h.Order == bitpack.LSBFirst {
		n++
	}
	if h.Software != "" {
		n++
	}
	return n
}

// softwareLen returns the number of bytes the Software value occupies
// outside of the IFD.
func (h *Header) softwareLen() int {
	if h.Software == "" || len(h.Software)+1 <= 4 {
		return 0
	}
	return len(h.Software) + 1
}

// ifdEnd returns the offset of the first byte following the IFD.
func (h *Header) ifdEnd() int {
	return 8 + 2 + ifdLen*h.numEntries() + 4
}

// Size returns the size of the header in bytes, which is also the
// offset of the compressed data.
func (h *Header) Size() int {
	size := h.ifdEnd() + 2*8 + h.softwareLen()
	// Keep the data word-aligned.
	return size + size%2
}

// AppendBinary appends the encoded header to b.
func (h *Header) AppendBinary(b []byte) ([]byte, error) {
	if err := h.validate(); err != nil {
		return b, err
	}
	res := h.Resolution
	if res <= 0 {
		res = DefaultResolution
	}

	// Values which do not fit into an IFD entry follow the IFD.
	xresOffset := h.ifdEnd()
	yresOffset := xresOffset + 8
	softwareOffset := yresOffset + 8
	size := h.Size()

	entries := []entry{
		{tImageWidth, dtLong, 1, uint32(h.Width)},
		{tImageLength, dtLong, 1, uint32(h.Height)},
		{tBitsPerSample, dtShort, 1, 1},
		{tCompression, dtShort, 1, uint32(h.Compression)},
		{tPhotometricInterpretation, dtShort, 1, pWhiteIsZero},
	}
	if h.Order == bitpack.LSBFirst {
		entries = append(entries, entry{tFillOrder, dtShort, 1, fillOrderLSBToMSB})
	}
	entries = append(entries,
		entry{tStripOffsets, dtLong, 1, uint32(size)},
		entry{tRowsPerStrip, dtLong, 1, uint32(h.Height)},
		entry{tStripByteCounts, dtLong, 1, uint32(h.DataSize)},
		entry{tXResolution, dtRational, 1, uint32(xresOffset)},
		entry{tYResolution, dtRational, 1, uint32(yresOffset)},
		entry{tResolutionUnit, dtShort, 1, resPerInch},
	)
	if h.Software != "" {
		value := uint32(softwareOffset)
		if h.softwareLen() == 0 {
			// Up to 3 characters and the NUL terminator are stored
			// inline, left-justified.
			var v [4]byte
			copy(v[:], h.Software)
			value = binary.LittleEndian.Uint32(v[:])
		}
		entries = append(entries, entry{tSoftware, dtASCII, uint32(len(h.Software) + 1), value})
	}

	start := len(b)
	b = append(b, leHeader...)
	b = binary.LittleEndian.AppendUint32(b, 8) // offset of the first IFD
	b = binary.LittleEndian.AppendUint16(b, uint16(len(entries)))
	for _, e := range entries {
		b = binary.LittleEndian.AppendUint16(b, e.tag)
		b = binary.LittleEndian.AppendUint16(b, e.datatype)
		b = binary.LittleEndian.AppendUint32(b, e.count)
		if e.datatype == dtShort {
			// SHORT values are left-justified within the 4 bytes.
			b = binary.LittleEndian.AppendUint16(b, uint16(e.value))
			b = binary.LittleEndian.AppendUint16(b, 0)
			continue
		}
		b = binary.LittleEndian.AppendUint32(b, e.value)
	}
	b = binary.LittleEndian.AppendUint32(b, 0) // no next IFD
	for i := 0; i < 2; i++ {
		b = binary.LittleEndian.AppendUint32(b, uint32(res))
		b = binary.LittleEndian.AppendUint32(b, 1)
	}
	if h.softwareLen() > 0 {
		b = append(b, h.Software...)
		b = append(b, 0)
	}
	for len(b)-start < size {
		b = append(b, 0)
	}
	return b, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *Header) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, h.Size()))
}

// WriteTo writes the header to w.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	b, err := h.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}
