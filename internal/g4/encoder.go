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

// Package g4 implements data encoding using the CCITT (renamed to ITU-T
// in 1993) fax standard in its Group 4 variant, also known as Modified
// Modified READ (MMR).
//
// It follows the standard ITU-T T.6 (11/88):
// https://www.itu.int/rec/T-REC-T.6-198811-I/en
//
// Lines are passed to an Encoder one at a time, top to bottom, as
// packed 1-bit-per-pixel scanlines: the leftmost pixel is the most
// significant bit of the first byte, and a 1 bit is black (TIFF
// PhotometricInterpretation WhiteIsZero). Each line is coded relative to
// the line above it; the line above the first line is all white.
package g4

import (
	"errors"
	"fmt"

	"github.com/stapelberg/g4enc/internal/bitpack"
	"github.com/stapelberg/g4enc/internal/mh"
)

// MaxWidth is the widest image an Encoder accepts.
const MaxWidth = 1 << 20

// BitOrder specifies how bits are placed within each output byte.
type BitOrder = bitpack.Order

const (
	MSBFirst = bitpack.MSBFirst
	LSBFirst = bitpack.LSBFirst
)

// State is the state of an Encoder.
type State int

const (
	Initialized State = iota
	Encoding
	Complete
	Failed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case Encoding:
		return "Encoding"
	case Complete:
		return "Complete"
	case Failed:
		return "Failed"
	default:
		return "<unknown>"
	}
}

// Options are optional parameters for NewEncoder. The zero value is
// ready to use.
type Options struct {
	// Order is the bit order of the output. Defaults to MSBFirst.
	Order BitOrder

	// EndOfBlock appends an EOFB (end of facsimile block) after the
	// last line.
	EndOfBlock bool
}

// Encoder is a Group 4 fax encoder for one image. It is not safe for
// concurrent use.
type Encoder struct {
	width  int
	height int
	stride int
	eofb   bool

	state State
	err   error
	rows  int

	// ref holds the transitions of the previously encoded line and cur
	// those of the line being encoded; they trade places after each
	// line.
	ref []int
	cur []int

	p     *bitpack.Packer
	modes modeEncoder
}

// NewEncoder returns an Encoder for an image of width×height pixels,
// writing the compressed data to sink.
//
// Use a *bitpack.FixedSink to encode into a buffer of fixed size, or a
// *bitpack.StreamSink to write to an io.Writer.
func NewEncoder(width, height int, sink bitpack.Sink, opts *Options) (*Encoder, error) {
	if width <= 0 || width > MaxWidth {
		return nil, fmt.Errorf("%w: width %d not in [1, %d]", ErrInvalidParameter, width, MaxWidth)
	}
	if height <= 0 {
		return nil, fmt.Errorf("%w: height %d not positive", ErrInvalidParameter, height)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidParameter)
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.Order != MSBFirst && opts.Order != LSBFirst {
		return nil, fmt.Errorf("%w: bit order %v", ErrInvalidParameter, opts.Order)
	}
	p := bitpack.NewPacker(sink, opts.Order)
	return &Encoder{
		width:  width,
		height: height,
		stride: (width + 7) / 8,
		eofb:   opts.EndOfBlock,
		ref:    []int{width}, // imaginary white line above the image
		cur:    make([]int, 0, 64),
		p:      p,
		modes:  modeEncoder{p: p},
	}, nil
}

// fail moves e into the Failed state, retaining err.
func (e *Encoder) fail(err error) error {
	e.state = Failed
	e.err = err
	return err
}

// AddLine encodes the next line of the image. pixels must hold at least
// (width+7)/8 bytes.
//
// After the last line, the output is padded to a whole byte and
// flushed. Further calls return ErrImageComplete.
func (e *Encoder) AddLine(pixels []byte) error {
	if e == nil || e.p == nil {
		return ErrNotInitialized
	}
	switch e.state {
	case Complete:
		return ErrImageComplete
	case Failed:
		return e.err
	}
	if len(pixels) < e.stride {
		return fmt.Errorf("%w: line %d has %d bytes, want %d", ErrInvalidParameter, e.rows, len(pixels), e.stride)
	}
	e.state = Encoding

	e.cur = appendTransitions(e.cur[:0], pixels, e.width)
	if err := e.modes.encode(e.cur, e.ref, e.width); err != nil {
		if errors.Is(err, mh.ErrNegativeRun) {
			err = fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		}
		return e.fail(fmt.Errorf("line %d: %w", e.rows, err))
	}
	e.ref, e.cur = e.cur, e.ref
	e.rows++

	if e.rows < e.height {
		return nil
	}
	if e.eofb {
		for i := 0; i < 2; i++ {
			if err := e.modes.emit(endOfLine); err != nil {
				return e.fail(fmt.Errorf("EOFB: %w", err))
			}
		}
	}
	if err := e.p.FlushPartial(); err != nil {
		return e.fail(err)
	}
	e.state = Complete
	return nil
}

// Size returns the number of compressed bytes written so far.
func (e *Encoder) Size() int {
	if e == nil || e.p == nil {
		return 0
	}
	return e.p.Size()
}

// Err returns the error which moved the Encoder into the Failed state,
// or nil.
func (e *Encoder) Err() error {
	if e == nil || e.p == nil {
		return ErrNotInitialized
	}
	return e.err
}

// State returns the current state.
func (e *Encoder) State() State { return e.state }

// Rows returns the number of lines encoded so far.
func (e *Encoder) Rows() int { return e.rows }

// Width returns the image width in pixels.
func (e *Encoder) Width() int { return e.width }

// Height returns the image height in pixels.
func (e *Encoder) Height() int { return e.height }

// Stride returns the number of bytes AddLine reads per line.
func (e *Encoder) Stride() int { return e.stride }

// Stats returns the number of times each coding mode was used.
func (e *Encoder) Stats() Stats { return e.modes.stats }
