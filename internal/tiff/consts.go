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

package tiff

// An IFD entry consists of a tag, the data type and count of the
// entry, and the value itself or, if it is longer than 4 bytes, the
// offset of the value.

const (
	leHeader = "II\x2A\x00" // Header for little-endian files.

	ifdLen = 12 // Length of an IFD entry in bytes.
)

// Data types.
const (
	dtASCII    = 2
	dtShort    = 3
	dtLong     = 4
	dtRational = 5
)

// Tags.
const (
	tImageWidth                = 256
	tImageLength               = 257
	tBitsPerSample             = 258
	tCompression               = 259
	tPhotometricInterpretation = 262

	tFillOrder = 266

	tStripOffsets    = 273
	tRowsPerStrip    = 278
	tStripByteCounts = 279

	tXResolution    = 282
	tYResolution    = 283
	tResolutionUnit = 296
	tSoftware       = 305
)

const (
	pWhiteIsZero = 0

	fillOrderLSBToMSB = 2

	resPerInch = 2
)
