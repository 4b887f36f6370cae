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

// Package httpencode implements an HTTP API around the convert package.
//
// # Example Usage
//
// You can use this API with curl on the command line like so:
//
//	curl --data-binary @page.png -o page.tif 'http://localhost:7121/encode?format=tiff'
//
// Multi-page PDF files are assembled in jobs:
//
//	jobid=$(curl -s -X CREATE http://localhost:7121/job | jq -r .job)
//	curl --data-binary @page1.png http://localhost:7121/job/$jobid/addpage
//	curl --data-binary @page2.png http://localhost:7121/job/$jobid/addpage
//	curl -X POST -o scan.pdf http://localhost:7121/job/$jobid/pdf
//
// Jobs which are not used for Options.JobTimeout are discarded.
package httpencode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stapelberg/g4enc/internal/bitpack"
	"github.com/stapelberg/g4enc/internal/convert"
	"github.com/stapelberg/g4enc/internal/g4"
	"github.com/stapelberg/g4enc/internal/httperr"
	"github.com/stapelberg/g4enc/internal/raster"
	"github.com/stapelberg/g4enc/internal/tiff"
	"golang.org/x/net/trace"
)

// DefaultMaxBytes limits the size of uploaded images unless
// Options.MaxBytes is set.
const DefaultMaxBytes = 64 << 20

// Job limits unless Options.JobTimeout and Options.MaxJobs are set.
const (
	DefaultJobTimeout = time.Hour
	DefaultMaxJobs    = 16
)

// Options configure the HTTP API.
type Options struct {
	// MaxBytes is the maximum size of an uploaded image.
	MaxBytes int64

	// MaxPages is the maximum number of pages per job. Zero means 100.
	MaxPages int

	// Software is recorded in TIFF files.
	Software string

	// JobTimeout is how long a job may stay unused before it is
	// discarded together with its pages.
	JobTimeout time.Duration

	// MaxJobs is the maximum number of jobs in progress.
	MaxJobs int

	now func() time.Time // for tests
}

// shiftPath from
// https://blog.merovius.de/2017/06/18/how-not-to-use-an-http-router.html:

// shiftPath splits off the first component of p, which will be cleaned of
// relative components before processing. head will never contain a slash and
// tail will always be a rooted path without trailing slash.
func shiftPath(p string) (head, tail string) {
	p = path.Clean("/" + p)
	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}

var contentTypes = map[convert.Format]string{
	convert.Raw:  "application/octet-stream",
	convert.TIFF: "image/tiff",
	convert.PDF:  "application/pdf",
}

// parseOptions reads conversion options from the query parameters
// format, compression, order, eofb and dpi.
func parseOptions(q url.Values, software string) (*convert.Options, error) {
	opts := &convert.Options{Software: software}
	var err error
	if opts.Format, err = convert.ParseFormat(q.Get("format")); err != nil {
		return nil, httperr.BadRequest(err)
	}
	switch c := q.Get("compression"); c {
	case "", "g4":
		opts.Compression = tiff.G4
	case "g3":
		opts.Compression = tiff.G3
	default:
		return nil, httperr.BadRequest(fmt.Errorf("unknown compression %q, want g3 or g4", c))
	}
	if o := q.Get("order"); o != "" {
		if opts.Order, err = bitpack.ParseOrder(o); err != nil {
			return nil, httperr.BadRequest(err)
		}
	}
	if v := q.Get("eofb"); v != "" {
		if opts.EndOfBlock, err = strconv.ParseBool(v); err != nil {
			return nil, httperr.BadRequest(fmt.Errorf("eofb: %w", err))
		}
	}
	if v := q.Get("dpi"); v != "" {
		if opts.Resolution, err = strconv.Atoi(v); err != nil || opts.Resolution <= 0 {
			return nil, httperr.BadRequest(fmt.Errorf("invalid dpi %q", v))
		}
	}
	return opts, nil
}

func requireMethod(r *http.Request, methods ...string) error {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return httperr.Error(
		http.StatusMethodNotAllowed,
		fmt.Errorf("unexpected HTTP method: got %v, want %v", r.Method, strings.Join(methods, " or ")))
}

func (o *Options) readImage(w http.ResponseWriter, r *http.Request) (*raster.Bitmap, error) {
	max := o.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, max))
	if err != nil {
		return nil, err
	}
	bm, _, _, err := raster.DecodeBytes(b)
	if err != nil {
		return nil, httperr.BadRequest(err)
	}
	return bm, nil
}

// serveFile writes the converted file b to w.
func serveFile(w http.ResponseWriter, id string, f convert.Format, b []byte) {
	w.Header().Set("Content-Type", contentTypes[f])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+f.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Write(b)
}

func encodeError(err error) error {
	switch {
	case errors.Is(err, g4.ErrInvalidParameter):
		return httperr.BadRequest(err)
	case errors.Is(err, convert.ErrNoPages):
		return httperr.Error(http.StatusUnprocessableEntity, err)
	}
	return err
}

type job struct {
	mu    sync.Mutex
	pages []*raster.Bitmap

	lastUsed time.Time // guarded by currentJobsMu
}

// ServeMux returns a ServeMux serving the API.
func ServeMux(o *Options) *http.ServeMux {
	if o == nil {
		o = &Options{}
	}
	maxPages := o.MaxPages
	if maxPages <= 0 {
		maxPages = 100
	}
	jobTimeout := o.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	maxJobs := o.MaxJobs
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	now := o.now
	if now == nil {
		now = time.Now
	}
	var (
		currentJobsMu sync.Mutex
		currentJobs   = make(map[string]*job)
	)
	// expireJobs must be called with currentJobsMu held.
	expireJobs := func(t time.Time) {
		for jobId, j := range currentJobs {
			if t.Sub(j.lastUsed) > jobTimeout {
				delete(currentJobs, jobId)
			}
		}
	}
	getJob := func(jobId string) *job {
		currentJobsMu.Lock()
		defer currentJobsMu.Unlock()
		t := now()
		expireJobs(t)
		j := currentJobs[jobId]
		if j != nil {
			j.lastUsed = t
		}
		return j
	}
	deleteJob := func(jobId string) {
		currentJobsMu.Lock()
		defer currentJobsMu.Unlock()
		delete(currentJobs, jobId)
	}
	serveMux := http.NewServeMux()

	serveMux.Handle("/encode", httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		if err := requireMethod(r, "PUT", "POST"); err != nil {
			return err
		}
		opts, err := parseOptions(r.URL.Query(), o.Software)
		if err != nil {
			return err
		}
		id := uuid.NewString()
		tr := trace.New("httpencode", id)
		defer tr.Finish()

		bm, err := o.readImage(w, r)
		if err != nil {
			tr.SetError()
			return err
		}
		tr.LazyPrintf("decoded %dx%d image, converting to %v", bm.Width, bm.Height, opts.Format)
		var buf bytes.Buffer
		res, err := convert.Convert(tr, &buf, bm, opts)
		if err != nil {
			tr.SetError()
			return encodeError(err)
		}
		w.Header().Set("X-Compressed-Size", strconv.Itoa(res.DataSize))
		serveFile(w, id, opts.Format, buf.Bytes())
		return nil
	}))

	serveMux.Handle("/job", httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		if err := requireMethod(r, "CREATE"); err != nil {
			return err
		}
		jobId := uuid.NewString()

		currentJobsMu.Lock()
		defer currentJobsMu.Unlock()
		t := now()
		expireJobs(t)
		if len(currentJobs) >= maxJobs {
			return httperr.Error(
				http.StatusServiceUnavailable,
				fmt.Errorf("%d jobs in progress", len(currentJobs)))
		}
		currentJobs[jobId] = &job{lastUsed: t}
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(struct {
			Job string `json:"job"`
		}{jobId})
	}))

	serveMux.Handle("/job/", httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		var jobId, verb string
		jobId, r.URL.Path = shiftPath(strings.TrimPrefix(r.URL.Path, "/job/"))
		j := getJob(jobId)
		if j == nil {
			return httperr.Error(
				http.StatusNotFound,
				fmt.Errorf("job not found"))
		}
		verb, _ = shiftPath(r.URL.Path)
		switch verb {
		case "addpage":
			if err := requireMethod(r, "PUT", "POST"); err != nil {
				return err
			}
			bm, err := o.readImage(w, r)
			if err != nil {
				return err
			}
			j.mu.Lock()
			defer j.mu.Unlock()
			if len(j.pages) >= maxPages {
				return httperr.Error(
					http.StatusRequestEntityTooLarge,
					fmt.Errorf("job already has %d pages", len(j.pages)))
			}
			j.pages = append(j.pages, bm)
			w.Header().Set("Content-Type", "application/json")
			return json.NewEncoder(w).Encode(struct {
				Pages int `json:"pages"`
			}{len(j.pages)})

		case "pdf":
			if err := requireMethod(r, "POST"); err != nil {
				return err
			}
			opts, err := parseOptions(r.URL.Query(), o.Software)
			if err != nil {
				return err
			}
			tr := trace.New("httpencode", jobId)
			defer tr.Finish()
			j.mu.Lock()
			pages := j.pages
			j.mu.Unlock()
			var buf bytes.Buffer
			n, err := convert.PDFPages(tr, &buf, pages, opts)
			if err != nil {
				tr.SetError()
				return encodeError(err)
			}
			tr.LazyPrintf("wrote %d of %d pages", n, len(pages))
			deleteJob(jobId)
			serveFile(w, jobId, convert.PDF, buf.Bytes())
			return nil
		}
		return httperr.Error(
			http.StatusNotFound,
			fmt.Errorf("verb %q not found", verb))
	}))

	return serveMux
}
