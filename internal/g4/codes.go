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

import "github.com/stapelberg/g4enc/internal/mh"

// Mode codes as per table 1/T.6 from ITU-T T.6 (11/88).
var (
	passCode       = mh.Code{Bits: 0b0001, Len: 4}
	horizontalCode = mh.Code{Bits: 0b001, Len: 3}

	// endOfLine is transmitted twice to form the EOFB.
	endOfLine = mh.Code{Bits: 0b000000000001, Len: 12}
)

// verticalCodes is indexed by a1 - b1 + 3.
var verticalCodes = [7]mh.Code{
	{Bits: 0b0000010, Len: 7}, // VL3
	{Bits: 0b000010, Len: 6},  // VL2
	{Bits: 0b010, Len: 3},     // VL1
	{Bits: 0b1, Len: 1},       // V0
	{Bits: 0b011, Len: 3},     // VR1
	{Bits: 0b000011, Len: 6},  // VR2
	{Bits: 0b0000011, Len: 7}, // VR3
}
