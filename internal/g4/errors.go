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
	"errors"

	"github.com/stapelberg/g4enc/internal/bitpack"
)

// Errors returned by Encoder. Use errors.Is to test for them, as they
// are usually wrapped with details.
var (
	// ErrNotInitialized is returned by the methods of an Encoder which
	// was not created by NewEncoder.
	ErrNotInitialized = errors.New("g4: encoder not initialized")

	// ErrInvalidParameter is returned for out-of-range image sizes,
	// bit orders and short scanlines.
	ErrInvalidParameter = errors.New("g4: invalid parameter")

	// ErrDataOverflow is returned when the fixed output buffer is
	// exhausted. It is terminal.
	ErrDataOverflow = bitpack.ErrOverflow

	// ErrImageComplete is returned by AddLine once all lines were
	// encoded. It is not terminal: the encoder stays complete.
	ErrImageComplete = errors.New("g4: image already complete")

	// ErrIO wraps the error of the io.Writer of a streaming encoder. It
	// is terminal.
	ErrIO = bitpack.ErrWrite
)
