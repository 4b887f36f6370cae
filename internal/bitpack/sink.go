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
	"errors"
	"fmt"
	"io"
)

var (
	// ErrOverflow is returned when a FixedSink has no room for another
	// byte.
	ErrOverflow = errors.New("bitpack: output buffer full")

	// ErrWrite wraps errors returned by the io.Writer of a StreamSink.
	ErrWrite = errors.New("bitpack: write failed")
)

// Sink receives the bytes assembled by a Packer. It is implemented by
// *FixedSink and *StreamSink only.
type Sink interface {
	// Len returns the number of bytes accepted so far.
	Len() int

	putByte(b byte) error
	flush() error
}

// FixedSink writes into a caller-provided buffer of fixed size.
type FixedSink struct {
	buf []byte
	n   int
}

// NewFixedSink returns a FixedSink filling buf from the start.
func NewFixedSink(buf []byte) *FixedSink {
	return &FixedSink{buf: buf}
}

// Len implements Sink.
func (s *FixedSink) Len() int { return s.n }

// Cap returns the size of the underlying buffer.
func (s *FixedSink) Cap() int { return len(s.buf) }

// Bytes returns the bytes written so far. The slice aliases the buffer
// passed to NewFixedSink.
func (s *FixedSink) Bytes() []byte { return s.buf[:s.n] }

func (s *FixedSink) putByte(b byte) error {
	if s.n >= len(s.buf) {
		return ErrOverflow
	}
	s.buf[s.n] = b
	s.n++
	return nil
}

func (s *FixedSink) flush() error { return nil }

// SegmentSize is the number of bytes a StreamSink collects before
// writing them out.
const SegmentSize = 1024

// StreamSink writes to an io.Writer in segments of SegmentSize bytes.
// A segment is written when the byte following it arrives; the last,
// possibly shorter, segment is written when the Packer is flushed.
type StreamSink struct {
	w       io.Writer
	seg     [SegmentSize]byte
	n       int // bytes in seg
	written int
}

// NewStreamSink returns a StreamSink writing to w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

// Len implements Sink.
func (s *StreamSink) Len() int { return s.written + s.n }

// Written returns the number of bytes delivered to the io.Writer.
func (s *StreamSink) Written() int { return s.written }

// putByte writes out a full segment before storing b, so that b is
// only accepted once there is room for it.
func (s *StreamSink) putByte(b byte) error {
	if s.n == len(s.seg) {
		if err := s.flush(); err != nil {
			return err
		}
	}
	s.seg[s.n] = b
	s.n++
	return nil
}

func (s *StreamSink) flush() error {
	if s.n == 0 {
		return nil
	}
	n, err := s.w.Write(s.seg[:s.n])
	s.written += n
	if err == nil && n < s.n {
		err = io.ErrShortWrite
	}
	if err != nil {
		// Keep the unwritten tail so that Len stays accurate.
		s.n = copy(s.seg[:], s.seg[n:s.n])
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	s.n = 0
	return nil
}
