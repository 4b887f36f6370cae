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

// Package bitpack assembles variable-length codewords into bytes.
//
// A Packer drains every completed byte into a Sink right away, so at
// most 7 bits are pending between calls. Sinks either fill a buffer of
// fixed size (FixedSink) or pass segments on to an io.Writer
// (StreamSink).
package bitpack

import (
	"fmt"
	"math/bits"
)

// Order specifies how bits are placed within each output byte.
type Order int

const (
	// MSBFirst places the first bit of the stream in the most
	// significant bit of a byte (TIFF FillOrder 1).
	MSBFirst Order = iota

	// LSBFirst places the first bit of the stream in the least
	// significant bit of a byte (TIFF FillOrder 2).
	LSBFirst
)

// String implements fmt.Stringer.
func (o Order) String() string {
	switch o {
	case MSBFirst:
		return "msb"
	case LSBFirst:
		return "lsb"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// ParseOrder parses the String representation of an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "msb":
		return MSBFirst, nil
	case "lsb":
		return LSBFirst, nil
	}
	return 0, fmt.Errorf("bitpack: unknown bit order %q, want msb or lsb", s)
}

// Packer accumulates bits and writes them to a Sink.
type Packer struct {
	sink    Sink
	order   Order
	current uint64
	numbits uint // valid low bits in current, < 8 between calls
}

// NewPacker returns a Packer writing to s in the specified bit order.
func NewPacker(s Sink, order Order) *Packer {
	return &Packer{
		sink:  s,
		order: order,
	}
}

// Emit appends the n (<= 32) low bits of v, most significant first.
func (p *Packer) Emit(v uint32, n int) error {
	if n <= 0 {
		return nil
	}
	p.current = p.current<<uint(n) | uint64(v)&(1<<uint(n)-1)
	p.numbits += uint(n)
	return p.drain()
}

// drain writes all complete bytes to the sink. A byte is either written
// completely or, on error, stays pending.
func (p *Packer) drain() error {
	for p.numbits >= 8 {
		b := byte(p.current >> (p.numbits - 8))
		if p.order == LSBFirst {
			b = bits.Reverse8(b)
		}
		if err := p.sink.putByte(b); err != nil {
			return err
		}
		p.numbits -= 8
	}
	p.current &= 1<<p.numbits - 1
	return nil
}

// Pending returns the number of bits not yet written to the sink.
func (p *Packer) Pending() int {
	return int(p.numbits)
}

// FlushPartial pads the pending bits with zero bits to a whole byte,
// writes it and flushes the sink.
func (p *Packer) FlushPartial() error {
	if rest := p.numbits % 8; rest != 0 {
		p.current <<= 8 - rest
		p.numbits += 8 - rest
	}
	// Bytes left pending by a failed write are retried here.
	if err := p.drain(); err != nil {
		return err
	}
	return p.sink.flush()
}

// Size returns the number of bytes written to the sink.
func (p *Packer) Size() int {
	return p.sink.Len()
}
