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

import (
	"fmt"

	"github.com/stapelberg/g4enc/internal/bitpack"
	"github.com/stapelberg/g4enc/internal/mh"
)

// Stats counts the coding modes used so far.
type Stats struct {
	Pass       int
	Horizontal int
	Vertical   [7]int // indexed by a1 - b1 + 3
}

// VerticalTotal returns the number of vertical mode codes.
func (s Stats) VerticalTotal() int {
	var total int
	for _, n := range s.Vertical {
		total += n
	}
	return total
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("%d pass, %d horizontal, %d vertical (VL3..VR3 %v)",
		s.Pass, s.Horizontal, s.VerticalTotal(), s.Vertical)
}

// modeEncoder codes one line relative to its reference line, as per
// ITU-T T.6 (11/88), section 2.2.
type modeEncoder struct {
	p     *bitpack.Packer
	runs  []mh.Code // scratch space for horizontal mode
	stats Stats
}

func (m *modeEncoder) emit(c mh.Code) error {
	return m.p.Emit(uint32(c.Bits), int(c.Len))
}

// at returns t[i], or the width terminating t if i is out of range.
func at(t []int, i int) int {
	if i < len(t) {
		return t[i]
	}
	return t[len(t)-1]
}

// encode codes the line with transitions cur against the reference line
// with transitions ref. Both are terminated by width, see
// appendTransitions.
func (m *modeEncoder) encode(cur, ref []int, width int) error {
	a0 := -1
	color := mh.White
	var ci, ri int
	for a0 < width {
		// a1: next changing element on the coding line.
		for cur[ci] <= a0 {
			ci++
		}
		a1 := cur[ci]

		// b1: next changing element on the reference line which
		// changes to the color opposite of a0's. Elements at even
		// indices change to black.
		for ri < len(ref)-1 && ref[ri] <= a0 {
			ri++
		}
		j := ri
		if (j%2 == 0) != (color == mh.White) {
			j++
		}
		b1 := at(ref, j)
		b2 := at(ref, j+1)

		if b2 < a1 {
			if err := m.emit(passCode); err != nil {
				return err
			}
			m.stats.Pass++
			a0 = b2
			continue
		}

		if d := a1 - b1; -3 <= d && d <= 3 {
			if err := m.emit(verticalCodes[d+3]); err != nil {
				return err
			}
			m.stats.Vertical[d+3]++
			a0 = a1
			color = color.Opposite()
			continue
		}

		a2 := at(cur, ci+1)
		start := a0
		if start < 0 {
			start = 0
		}
		var err error
		m.runs = append(m.runs[:0], horizontalCode)
		if m.runs, err = mh.AppendRun(m.runs, color, a1-start); err != nil {
			return err
		}
		if m.runs, err = mh.AppendRun(m.runs, color.Opposite(), a2-a1); err != nil {
			return err
		}
		for _, c := range m.runs {
			if err := m.emit(c); err != nil {
				return err
			}
		}
		m.stats.Horizontal++
		a0 = a2
	}
	return nil
}
