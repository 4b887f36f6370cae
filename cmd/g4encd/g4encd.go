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

// Program g4encd serves the g4enc HTTP API, converting uploaded images
// into CCITT fax encoded raw data, TIFF or PDF files.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/stapelberg/g4enc/internal/httpencode"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/net/trace"
	"golang.org/x/sync/errgroup"
)

// authRequest allows access to /debug/requests from private networks
// only.
func authRequest(req *http.Request) (bool, bool) {
	// RemoteAddr is commonly in the form "IP" or "IP:port".
	// If it is in the form "IP:port", split off the port.
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false, false
	}
	if ip.IsPrivate() || ip.IsLoopback() {
		return true, true
	}
	return false, false
}

// splitHosts parses a comma-separated host list, skipping empty entries.
func splitHosts(list string) []string {
	var hosts []string
	for _, host := range strings.Split(list, ",") {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		hosts = append(hosts, host)
	}
	return hosts
}

func logic() error {
	httpListenAddr := flag.String("http_listen_address",
		"localhost:7121",
		"[host]:port to listen on for HTTP requests")

	maxBytes := flag.Int64("max_upload_bytes",
		httpencode.DefaultMaxBytes,
		"Maximum size of an uploaded image in bytes. Larger uploads are rejected with HTTP 413.")

	maxPages := flag.Int("max_pages",
		100,
		"Maximum number of pages per PDF job")

	maxJobs := flag.Int("max_jobs",
		httpencode.DefaultMaxJobs,
		"Maximum number of PDF jobs in progress. Further jobs are rejected with HTTP 503.")

	jobTimeout := flag.Duration("job_timeout",
		httpencode.DefaultJobTimeout,
		"Discard PDF jobs which were not used for this long")

	httpsListenAddr := flag.String("https_listen_address",
		":https",
		"[host]:port to listen on for HTTPS requests. This is a no-op unless -tls_autocert_hosts is non-empty.")

	autocertHostList := flag.String("tls_autocert_hosts",
		"",
		"If non-empty, a comma-separated list of hostnames to obtain TLS certificates for. If non-empty, a TLS listener will be enabled on -https_listen_address")

	stateDir := flag.String("state_dir",
		"/var/lib/g4encd",
		"Directory in which to cache TLS certificates")

	software := flag.String("software",
		"g4encd",
		"Value of the TIFF Software tag. Empty omits the tag.")

	flag.Parse()

	log.Printf("g4encd starting")

	mux := http.NewServeMux()
	mux.Handle("/", httpencode.ServeMux(&httpencode.Options{
		MaxBytes:   *maxBytes,
		MaxPages:   *maxPages,
		MaxJobs:    *maxJobs,
		JobTimeout: *jobTimeout,
		Software:   *software,
	}))
	// for /debug/requests:
	trace.AuthRequest = authRequest
	mux.HandleFunc("/debug/requests", trace.Traces)
	mux.HandleFunc("/debug/events", trace.Events)

	servers := []*http.Server{
		{
			Addr:              *httpListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	log.Printf("listening on http://%s", *httpListenAddr)

	var tlsServer *http.Server
	if hosts := splitHosts(*autocertHostList); len(hosts) > 0 {
		m := &autocert.Manager{
			Cache:      autocert.DirCache(filepath.Join(*stateDir, "autocert")),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(hosts...),
		}
		tlsServer = &http.Server{
			Addr:              *httpsListenAddr,
			Handler:           mux,
			TLSConfig:         m.TLSConfig(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, tlsServer)
		for _, host := range hosts {
			log.Printf("listening on https://%s", host)
		}
	}

	ctx, canc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer canc()
	eg, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		eg.Go(func() error {
			var err error
			if srv == tlsServer {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, canc := context.WithTimeout(context.Background(), 10*time.Second)
		defer canc()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("shutting down %s: %v", srv.Addr, err)
			}
		}
		return nil
	})
	return eg.Wait()
}

func main() {
	if err := logic(); err != nil {
		log.Fatal(err)
	}
}
