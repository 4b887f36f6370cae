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

// Package mh implements the Modified Huffman run length codes which are
// shared by the CCITT Group 3 and Group 4 fax encodings.
//
// It follows the standard ITU-T T.4 (07/2003), section 4.1.2:
// https://www.itu.int/rec/T-REC-T.4-200307-I/en
package mh

import (
	"errors"
	"fmt"
)

// Color is the color of a pixel run.
type Color int

const (
	White Color = iota
	Black
)

// String implements fmt.Stringer.
func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Opposite returns the other color.
func (c Color) Opposite() Color {
	return 1 - c
}

// MaxMakeup is the longest run length a single make-up code describes.
const MaxMakeup = 2560

// ErrNegativeRun is returned for run lengths below zero.
var ErrNegativeRun = errors.New("mh: negative run length")

// Terminating returns the terminating code for a run of 0 <= n < 64
// pixels of color c.
func Terminating(c Color, n int) Code {
	if c == Black {
		return blackTerminating[n]
	}
	return whiteTerminating[n]
}

// Makeup returns the make-up code for a run of n pixels, where n is a
// multiple of 64 between 64 and MaxMakeup. Codes for n >= 1792 do not
// depend on the color.
func Makeup(c Color, n int) Code {
	idx := n / 64
	if idx >= 28 {
		return extendedMakeup[idx-28]
	}
	if c == Black {
		return blackMakeup[idx]
	}
	return whiteMakeup[idx]
}

// AppendRun appends the codes for a run of n pixels of color c to dst:
// zero or more make-up codes followed by precisely one terminating
// code.
func AppendRun(dst []Code, c Color, n int) ([]Code, error) {
	if n < 0 {
		return dst, fmt.Errorf("%w: %d %v pixels", ErrNegativeRun, n, c)
	}
	for n >= MaxMakeup+64 {
		dst = append(dst, extendedMakeup[len(extendedMakeup)-1])
		n -= MaxMakeup
	}
	if n >= 64 {
		dst = append(dst, Makeup(c, n))
		n %= 64
	}
	return append(dst, Terminating(c, n)), nil
}

// EncodeRun returns the codes for a run of n pixels of color c.
func EncodeRun(c Color, n int) ([]Code, error) {
	return AppendRun(nil, c, n)
}

// Bits returns the total number of bits in codes.
func Bits(codes []Code) int {
	var total int
	for _, c := range codes {
		total += int(c.Len)
	}
	return total
}
