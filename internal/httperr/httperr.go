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

// Package httperr implements middleware which serves returned errors as HTTP
// error responses.
package httperr

import (
	"context"
	"errors"
	"log"
	"net/http"
)

// Err is an error carrying the HTTP status code it should be served
// with.
type Err struct {
	Code int
	Err  error
}

func (h *Err) Error() string {
	return h.Err.Error()
}

func (h *Err) Unwrap() error {
	return h.Err
}

// Error returns err annotated with the HTTP status code.
func Error(code int, err error) error {
	return &Err{code, err}
}

// BadRequest is a shorthand for Error(http.StatusBadRequest, err).
func BadRequest(err error) error {
	return Error(http.StatusBadRequest, err)
}

// Code returns the HTTP status code to serve err with. Errors which
// were not annotated using Error are internal server errors, except
// for oversized request bodies.
func Code(err error) int {
	var he *Err
	if errors.As(err, &he) {
		return he.Code
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// Handle turns h into an http.Handler, serving the returned error (if
// any) with the status code from Code.
func Handle(h func(http.ResponseWriter, *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path // will be modified during request processing
		err := h(w, r)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			return // client canceled the request
		}
		code := Code(err)
		log.Printf("%s: HTTP %d %v", path, code, err)
		http.Error(w, err.Error(), code)
	})
}
