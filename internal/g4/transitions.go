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

package g4

import "math/bits"

// appendTransitions appends the changing elements of line to dst,
// followed by width. A changing element is a column whose color differs
// from its left neighbour; column 0 is compared against white. Colors
// therefore alternate: the element at even index starts a black run.
//
// line holds at least (width+7)/8 bytes, most significant bit first,
// 1 meaning black. Bits past width are ignored.
func appendTransitions(dst []int, line []byte, width int) []int {
	var mask byte // 0x00 while looking for black, 0xff for white
	x := 0
	for {
		x = nextChange(line, x, width, mask)
		if x >= width {
			break
		}
		dst = append(dst, x)
		mask = ^mask
	}
	return append(dst, width)
}

// nextChange returns the first column >= x whose pixel, xored with
// mask, is 1, or width if there is none.
func nextChange(line []byte, x, width int, mask byte) int {
	if x >= width {
		return width
	}
	i := x >> 3
	b := (line[i] ^ mask) & (0xff >> uint(x&7))
	for b == 0 {
		i++
		if i<<3 >= width {
			return width
		}
		b = line[i] ^ mask
	}
	if x = i<<3 + bits.LeadingZeros8(b); x > width {
		return width
	}
	return x
}
