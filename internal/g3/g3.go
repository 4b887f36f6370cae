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

// Package g3 implements data encoding using the CCITT (renamed to
// ITU-T in 1993) fax standard in its Group 3, One-Dimensional (G31D)
// variant.
//
// It follows the standard ITU-T T.4 (07/2003), section 4.1:
// https://www.itu.int/rec/T-REC-T.4-200307-I/en
package g3

import (
	"fmt"

	"github.com/stapelberg/g4enc/internal/bitpack"
	"github.com/stapelberg/g4enc/internal/mh"
)

var endOfLine = mh.Code{Bits: 0b000000000001, Len: 12}

// Encoder is a Group 3 One-Dimensional fax encoder.
type Encoder struct {
	p     *bitpack.Packer
	lines int
	runs  []mh.Code
}

// NewSinkEncoder returns an Encoder writing to sink in the specified
// bit order.
func NewSinkEncoder(sink bitpack.Sink, order bitpack.Order) *Encoder {
	return &Encoder{
		p: bitpack.NewPacker(sink, order),
	}
}

func (e *Encoder) writeCode(c mh.Code) error {
	return e.p.Emit(uint32(c.Bits), int(c.Len))
}

// encodeRun encodes a pixel run into zero or more makeup codes and
// precisely one terminating code. Codes are color-specific (except
// for makeup codes for lengths ≥ 28×64 = 1792).
func (e *Encoder) encodeRun(c mh.Color, l int) error {
	var err error
	if e.runs, err = mh.AppendRun(e.runs[:0], c, l); err != nil {
		return err
	}
	for _, code := range e.runs {
		if err := e.writeCode(code); err != nil {
			return err
		}
	}
	return nil
}

// startLine writes the EOL which precedes each line. From T.4 4.1.2
// EOL: In addition, this signal will occur prior to the first data
// line of a page.
func (e *Encoder) startLine() error {
	if e.lines == 0 {
		if err := e.writeCode(endOfLine); err != nil {
			return err
		}
	}
	e.lines++
	return nil
}

// EncodeLine compresses one line of width pixels, packed 8 pixels per
// byte with the leftmost pixel in the most significant bit and 1
// meaning black. Call Flush after the last line.
func (e *Encoder) EncodeLine(pixels []byte, width int) error {
	if len(pixels) < (width+7)/8 {
		return fmt.Errorf("g3: line has %d bytes, want %d", len(pixels), (width+7)/8)
	}
	if err := e.startLine(); err != nil {
		return err
	}
	run := mh.White // lines always start with a white run
	var runLen int
	for x := 0; x < width; x++ {
		c := mh.White
		if pixels[x>>3]&(0x80>>uint(x&7)) != 0 {
			c = mh.Black
		}
		if c != run {
			// run completed, flush
			if err := e.encodeRun(run, runLen); err != nil {
				return err
			}
			run = c
			runLen = 0
		}
		runLen++
	}
	// run must contain at least 1 pixel, so flush
	if err := e.encodeRun(run, runLen); err != nil {
		return err
	}
	return e.writeCode(endOfLine)
}

// Flush pads the output to a whole byte and flushes it.
func (e *Encoder) Flush() error {
	return e.p.FlushPartial()
}
