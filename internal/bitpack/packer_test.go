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

package bitpack

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type code struct {
	v uint32
	n int
}

func TestEmit(t *testing.T) {
	for _, test := range []struct {
		num   int
		codes []code
		want  []byte
	}{
		{
			num:   1,
			codes: []code{{0x7, 4}}, // 0111b
			want:  []byte{0x70},     // 01110000b (remainder padded)
		},

		{
			num:   2,
			codes: []code{{0x2, 8}}, // 00000010b
			want:  []byte{0x2},
		},

		{
			num:   3,
			codes: []code{{0x37, 10}}, // 0000110111b
			want:  []byte{0xd, 0xc0},  // 00001101b, 11000000b (remainder padded)
		},

		{
			num:   4,
			codes: []code{{0x7, 4}, {0x8, 4}}, // 0111b, 1000b
			want:  []byte{0x78},
		},

		{
			num: 5,
			// 7 × 00000100b, 00011b, 000101b
			codes: []code{
				{0x4, 8}, {0x4, 8}, {0x4, 8}, {0x4, 8},
				{0x4, 8}, {0x4, 8}, {0x4, 8},
				{0x3, 5},
				{0x5, 6},
			},
			want: []byte{0x4, 0x4, 0x4, 0x4, 0x4, 0x4, 0x4, 0x18, 0xa0},
		},

		{
			num: 6,
			// Bits above n are ignored.
			codes: []code{{0xff1, 4}, {0xffff0, 4}},
			want:  []byte{0x10},
		},

		{
			num:   7,
			codes: []code{{0x1001, 24}, {0x1, 1}}, // EOFB, then one bit
			want:  []byte{0x00, 0x10, 0x01, 0x80},
		},

		{
			num:   8,
			codes: []code{{0xdeadbeef, 32}},
			want:  []byte{0xde, 0xad, 0xbe, 0xef},
		},
	} {
		t.Run(fmt.Sprintf("%d", test.num), func(t *testing.T) {
			var buf bytes.Buffer
			p := NewPacker(NewStreamSink(&buf), MSBFirst)
			for _, c := range test.codes {
				if err := p.Emit(c.v, c.n); err != nil {
					t.Fatal(err)
				}
				if got := p.Pending(); got >= 8 {
					t.Fatalf("%d bits pending after Emit, want < 8", got)
				}
			}
			if err := p.FlushPartial(); err != nil {
				t.Fatal(err)
			}
			if got, want := buf.Bytes(), test.want; !bytes.Equal(got, want) {
				t.Errorf("unexpected encoding result: got %x, want %x", got, want)
			}
			if got, want := p.Size(), len(test.want); got != want {
				t.Errorf("unexpected size: got %d, want %d", got, want)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	var codes []code
	for i := 0; i < 1000; i++ {
		n := 1 + r.Intn(13)
		codes = append(codes, code{uint32(r.Intn(1 << n)), n})
	}
	encode := func(order Order) []byte {
		var buf bytes.Buffer
		p := NewPacker(NewStreamSink(&buf), order)
		for _, c := range codes {
			if err := p.Emit(c.v, c.n); err != nil {
				t.Fatal(err)
			}
		}
		if err := p.FlushPartial(); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	msb := encode(MSBFirst)
	lsb := encode(LSBFirst)
	if got, want := len(lsb), len(msb); got != want {
		t.Fatalf("unexpected LSB-first length: got %d, want %d", got, want)
	}
	for i := range msb {
		if got, want := lsb[i], bits.Reverse8(msb[i]); got != want {
			t.Fatalf("byte %d: got %08b, want %08b", i, got, want)
		}
	}
}

func TestParseOrder(t *testing.T) {
	for _, o := range []Order{MSBFirst, LSBFirst} {
		got, err := ParseOrder(o.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != o {
			t.Errorf("ParseOrder(%q) = %v, want %v", o.String(), got, o)
		}
	}
	if _, err := ParseOrder("middle"); err == nil {
		t.Errorf("ParseOrder(middle) unexpectedly succeeded")
	}
}

func TestFixedSinkOverflow(t *testing.T) {
	buf := make([]byte, 2)
	s := NewFixedSink(buf)
	p := NewPacker(s, MSBFirst)
	if err := p.Emit(0xabc, 12); err != nil {
		t.Fatal(err)
	}
	if err := p.Emit(0xde, 8); err != nil {
		t.Fatal(err)
	}
	// 4 bits pending; the next byte does not fit.
	if err := p.Emit(0xf, 4); !errors.Is(err, ErrOverflow) {
		t.Fatalf("Emit: got err %v, want %v", err, ErrOverflow)
	}
	if got, want := s.Bytes(), []byte{0xab, 0xcd}; !bytes.Equal(got, want) {
		t.Errorf("unexpected buffer contents: got %x, want %x", got, want)
	}
	if got, want := p.Size(), 2; got != want {
		t.Errorf("unexpected size: got %d, want %d", got, want)
	}
	if got, want := s.Cap(), 2; got != want {
		t.Errorf("unexpected capacity: got %d, want %d", got, want)
	}
}

func TestFixedSinkFlushPartialOverflow(t *testing.T) {
	s := NewFixedSink(make([]byte, 1))
	p := NewPacker(s, MSBFirst)
	if err := p.Emit(0x1ff, 9); err != nil {
		t.Fatal(err)
	}
	if err := p.FlushPartial(); !errors.Is(err, ErrOverflow) {
		t.Fatalf("FlushPartial: got err %v, want %v", err, ErrOverflow)
	}
	if got, want := p.Size(), 1; got != want {
		t.Errorf("unexpected size: got %d, want %d", got, want)
	}
}

type recordingWriter struct {
	writes []int
	buf    bytes.Buffer
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, len(p))
	return w.buf.Write(p)
}

func TestStreamSinkSegments(t *testing.T) {
	var w recordingWriter
	s := NewStreamSink(&w)
	p := NewPacker(s, MSBFirst)
	const total = 2*SegmentSize + 100
	for i := 0; i < total; i++ {
		if err := p.Emit(uint32(i), 8); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := s.Written(), 2*SegmentSize; got != want {
		t.Errorf("unexpected number of bytes written before flush: got %d, want %d", got, want)
	}
	if got, want := p.Size(), total; got != want {
		t.Errorf("unexpected size: got %d, want %d", got, want)
	}
	if err := p.FlushPartial(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{SegmentSize, SegmentSize, 100}, w.writes); diff != "" {
		t.Errorf("unexpected writes: diff (-want +got):\n%s", diff)
	}
	for i, b := range w.buf.Bytes() {
		if b != byte(i) {
			t.Fatalf("byte %d: got %x, want %x", i, b, byte(i))
		}
	}
}

var errDiskFull = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errDiskFull }

func TestStreamSinkWriteError(t *testing.T) {
	s := NewStreamSink(failingWriter{})
	p := NewPacker(s, MSBFirst)
	if err := p.Emit(0x5, 3); err != nil {
		t.Fatal(err) // nothing written yet
	}
	err := p.FlushPartial()
	if !errors.Is(err, ErrWrite) {
		t.Errorf("FlushPartial: got err %v, want %v", err, ErrWrite)
	}
	if !errors.Is(err, errDiskFull) {
		t.Errorf("FlushPartial: got err %v, want it to wrap %v", err, errDiskFull)
	}
	if got, want := s.Written(), 0; got != want {
		t.Errorf("unexpected number of bytes written: got %d, want %d", got, want)
	}
}

// flakyWriter fails its first write.
type flakyWriter struct {
	failed bool
	buf    bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if !w.failed {
		w.failed = true
		return 0, errDiskFull
	}
	return w.buf.Write(p)
}

func TestStreamSinkRetryAfterWriteError(t *testing.T) {
	var w flakyWriter
	s := NewStreamSink(&w)
	p := NewPacker(s, MSBFirst)
	const total = SegmentSize + 1
	for i := 0; i < SegmentSize; i++ {
		if err := p.Emit(uint32(i), 8); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Emit(uint32(SegmentSize), 8); !errors.Is(err, ErrWrite) {
		t.Fatalf("Emit: got err %v, want %v", err, ErrWrite)
	}
	if got, want := p.Pending(), 8; got != want {
		t.Fatalf("unexpected number of pending bits: got %d, want %d", got, want)
	}
	if err := p.FlushPartial(); err != nil {
		t.Fatal(err)
	}
	got := w.buf.Bytes()
	if len(got) != total {
		t.Fatalf("unexpected number of bytes written: got %d, want %d", len(got), total)
	}
	for i, b := range got {
		if b != byte(i) {
			t.Fatalf("byte %d: got %x, want %x", i, b, byte(i))
		}
	}
	if got, want := p.Size(), total; got != want {
		t.Errorf("unexpected size: got %d, want %d", got, want)
	}
}
