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

// Package raster implements bilevel images packed 8 pixels per byte,
// which is the line format the fax encoders consume.
package raster

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math/bits"

	// Input formats for Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// Bitmap is a bilevel image. Each line occupies Stride bytes; the
// leftmost pixel is the most significant bit of the first byte and a 1
// bit is black.
type Bitmap struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// New returns an all-white Bitmap.
func New(width, height int) *Bitmap {
	stride := (width + 7) / 8
	return &Bitmap{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// Line returns line y, sharing storage with b.
func (b *Bitmap) Line(y int) []byte {
	return b.Pix[y*b.Stride : (y+1)*b.Stride]
}

// Black reports whether the pixel at (x, y) is black.
func (b *Bitmap) Black(x, y int) bool {
	return b.Pix[y*b.Stride+x>>3]&(0x80>>uint(x&7)) != 0
}

// Set sets the pixel at (x, y).
func (b *Bitmap) Set(x, y int, black bool) {
	mask := byte(0x80 >> uint(x&7))
	if black {
		b.Pix[y*b.Stride+x>>3] |= mask
	} else {
		b.Pix[y*b.Stride+x>>3] &^= mask
	}
}

// WhiteFraction returns the fraction of white pixels.
func (b *Bitmap) WhiteFraction() float64 {
	total := b.Width * b.Height
	if total == 0 {
		return 0
	}
	var black int
	full := b.Width / 8
	last := byte(0xff) << uint(8-b.Width%8) // valid bits of a partial last byte
	for y := 0; y < b.Height; y++ {
		line := b.Line(y)
		for _, v := range line[:full] {
			black += bits.OnesCount8(v)
		}
		if b.Width%8 != 0 {
			black += bits.OnesCount8(line[full] & last)
		}
	}
	return float64(total-black) / float64(total)
}

// Gray returns b as a grayscale image with white 0xff and black 0x00.
func (b *Bitmap) Gray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+b.Width]
		for x := range row {
			if b.Black(x, y) {
				row[x] = 0x00
			} else {
				row[x] = 0xff
			}
		}
	}
	return out
}

// FromImage turns img into a bilevel image. Pixels with a luminance
// above 127 become white. It also returns the fraction of white pixels.
func FromImage(img image.Image) (*Bitmap, float64) {
	bounds := img.Bounds()
	out := New(bounds.Dx(), bounds.Dy())

	var white int
	gray, isGray := img.(*image.Gray)
	// This loop arrangement is faster:
	// 49s in Y outer, then X inner
	// 63s in X outer, then Y inner
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		line := out.Line(y - bounds.Min.Y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var a uint8
			if isGray {
				a = gray.Pix[gray.PixOffset(x, y)]
			} else {
				a = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			}
			if a > 127 {
				white++
				continue
			}
			off := x - bounds.Min.X
			line[off>>3] |= 0x80 >> uint(off&7)
		}
	}
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return out, 0
	}
	return out, float64(white) / float64(total)
}

// Decode reads an image in any registered format (BMP, PNG, GIF, JPEG)
// and binarizes it with FromImage. BMP files with 1 or 4 bits per pixel
// are converted through their palette. It returns the format name and
// the fraction of white pixels.
func Decode(r io.Reader) (*Bitmap, string, float64, error) {
	br := bufio.NewReader(r)
	if hdr, _ := br.Peek(30); palettedBMP(hdr) {
		b, err := io.ReadAll(br)
		if err != nil {
			return nil, "", 0, fmt.Errorf("raster: %w", err)
		}
		bm, err := decodeBMP(b)
		if err != nil {
			return nil, "", 0, err
		}
		return bm, "bmp", bm.WhiteFraction(), nil
	}
	img, format, err := image.Decode(br)
	if err != nil {
		return nil, "", 0, fmt.Errorf("raster: %w", err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, "", 0, fmt.Errorf("raster: empty %s image", format)
	}
	bm, whitePct := FromImage(img)
	return bm, format, whitePct, nil
}

// DecodeBytes is like Decode, reading from b.
func DecodeBytes(b []byte) (*Bitmap, string, float64, error) {
	return Decode(bytes.NewReader(b))
}
