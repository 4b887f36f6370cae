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

package httperr_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stapelberg/g4enc/internal/httperr"
)

func TestHandle(t *testing.T) {
	errBroken := errors.New("broken")
	for _, test := range []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"success", nil, http.StatusOK, "ok"},
		{"internal", errBroken, http.StatusInternalServerError, "broken\n"},
		{"annotated", httperr.Error(http.StatusNotFound, errBroken), http.StatusNotFound, "broken\n"},
		{"wrapped", fmt.Errorf("decoding: %w", httperr.BadRequest(errBroken)), http.StatusBadRequest, "decoding: broken\n"},
	} {
		t.Run(test.name, func(t *testing.T) {
			h := httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
				if test.err != nil {
					return test.err
				}
				io.WriteString(w, "ok")
				return nil
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
			if got, want := rec.Code, test.wantCode; got != want {
				t.Errorf("status = %d, want %d", got, want)
			}
			if got, want := rec.Body.String(), test.wantBody; got != want {
				t.Errorf("body = %q, want %q", got, want)
			}
		})
	}
}

func TestCanceled(t *testing.T) {
	h := httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		return fmt.Errorf("encoding: %w", context.Canceled)
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Body.Len() != 0 {
		t.Errorf("canceled request got a response body: %q", rec.Body.String())
	}
}

func TestMaxBytes(t *testing.T) {
	h := httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		_, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4))
		return err
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader("too long")))
	if got, want := rec.Code, http.StatusRequestEntityTooLarge; got != want {
		t.Errorf("status = %d, want %d", got, want)
	}
}
