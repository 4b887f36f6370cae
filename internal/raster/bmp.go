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

package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
)

const (
	bmpFileHeaderLen = 14
	bmpInfoHeaderLen = 40
)

// palettedBMP reports whether hdr starts a BMP file with 1 or 4 bits per
// pixel. golang.org/x/image/bmp handles all other depths.
func palettedBMP(hdr []byte) bool {
	if len(hdr) < 30 || hdr[0] != 'B' || hdr[1] != 'M' {
		return false
	}
	bpp := binary.LittleEndian.Uint16(hdr[28:])
	return bpp == 1 || bpp == 4
}

// decodeBMP decodes an uncompressed BMP file with 1 or 4 bits per pixel.
// Palette entries with a luminance above 127 become white, all others
// black; pixel values outside the palette are white.
func decodeBMP(b []byte) (*Bitmap, error) {
	if len(b) < bmpFileHeaderLen+bmpInfoHeaderLen || b[0] != 'B' || b[1] != 'M' {
		return nil, errors.New("raster: bmp: not a BMP file")
	}
	le := binary.LittleEndian
	var (
		offset      = int64(le.Uint32(b[10:]))
		hdrLen      = int64(le.Uint32(b[14:]))
		width       = int64(int32(le.Uint32(b[18:])))
		height      = int64(int32(le.Uint32(b[22:])))
		planes      = le.Uint16(b[26:])
		bpp         = int(le.Uint16(b[28:]))
		compression = le.Uint32(b[30:])
		used        = int(le.Uint32(b[46:]))
	)
	if hdrLen < bmpInfoHeaderLen {
		return nil, fmt.Errorf("raster: bmp: unsupported header size %d", hdrLen)
	}
	if planes != 1 || (bpp != 1 && bpp != 4) {
		return nil, fmt.Errorf("raster: bmp: unsupported depth: %d planes of %d bits", planes, bpp)
	}
	if compression != 0 {
		return nil, fmt.Errorf("raster: bmp: unsupported compression %d", compression)
	}
	// Rows are stored bottom-up unless the height is negative.
	topDown := height < 0
	if topDown {
		height = -height
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: bmp: invalid size %dx%d", width, height)
	}

	// Palette entries are blue, green, red, reserved.
	if used == 0 || used > 1<<bpp {
		used = 1 << bpp
	}
	pal := bmpFileHeaderLen + hdrLen
	if pal+int64(used)*4 > int64(len(b)) {
		return nil, errors.New("raster: bmp: truncated palette")
	}
	var black [16]bool
	for i := 0; i < used; i++ {
		e := b[pal+int64(i)*4:]
		y := color.GrayModel.Convert(color.RGBA{R: e[2], G: e[1], B: e[0], A: 0xff}).(color.Gray).Y
		black[i] = y <= 127
	}

	// Rows are padded to a multiple of 4 bytes.
	pitch := (width*int64(bpp) + 31) / 32 * 4
	if offset < pal || offset+pitch*height > int64(len(b)) {
		return nil, fmt.Errorf("raster: bmp: truncated pixel data (%d bytes at offset %d, file has %d)", pitch*height, offset, len(b))
	}

	bm := New(int(width), int(height))
	var mask0, mask1 byte
	if black[0] {
		mask0 = 0xff
	}
	if black[1] {
		mask1 = 0xff
	}
	for y := 0; y < bm.Height; y++ {
		row := int64(y)
		if !topDown {
			row = height - 1 - row
		}
		src := b[offset+row*pitch:]
		dst := bm.Line(y)
		switch bpp {
		case 1:
			for i := range dst {
				dst[i] = src[i]&mask1 | ^src[i]&mask0
			}
		case 4:
			for x := 0; x < bm.Width; x++ {
				idx := src[x>>1] >> 4 // left pixel in the high nibble
				if x&1 != 0 {
					idx = src[x>>1] & 0x0f
				}
				if black[idx] {
					dst[x>>3] |= 0x80 >> uint(x&7)
				}
			}
		}
		if rest := bm.Width % 8; rest != 0 {
			dst[len(dst)-1] &= 0xff << uint(8-rest)
		}
	}
	return bm, nil
}
