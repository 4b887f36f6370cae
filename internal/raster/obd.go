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

import "fmt"

// OBD buffers are the frame buffers of monochrome OLED/LCD display
// controllers such as the SSD1306: the image is split into pages of 8
// rows, and each byte holds one column of a page with the top row in
// the least significant bit. A 1 bit is a lit (black) pixel.

// OBDSize returns the number of bytes of an OBD buffer for an image of
// width×height pixels.
func OBDSize(width, height int) int {
	return width * ((height + 7) / 8)
}

// OBDLine converts row y of the OBD buffer buf into a packed line,
// writing (width+7)/8 bytes to dst.
func OBDLine(dst, buf []byte, width, y int) {
	page := buf[(y>>3)*width : (y>>3+1)*width]
	mask := byte(1) << uint(y&7)
	n := (width + 7) / 8
	for i := range dst[:n] {
		dst[i] = 0
	}
	for x, v := range page {
		if v&mask != 0 {
			dst[x>>3] |= 0x80 >> uint(x&7)
		}
	}
}

// FromOBD converts the OBD buffer buf into a Bitmap.
func FromOBD(buf []byte, width, height int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid OBD size %dx%d", width, height)
	}
	if got, want := len(buf), OBDSize(width, height); got < want {
		return nil, fmt.Errorf("raster: OBD buffer has %d bytes, want %d", got, want)
	}
	out := New(width, height)
	for y := 0; y < height; y++ {
		OBDLine(out.Line(y), buf, width, y)
	}
	return out, nil
}
