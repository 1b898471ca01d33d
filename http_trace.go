// Copyright 2026 Mreoch1
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

package siteaudit

import (
	"net/http"
	"net/http/httptrace"
	"time"
)

// HTTPTrace records connection and first-byte timing for a plain HTTP fetch.
// The fallback path uses it to fill PageRecord timing when no browser render
// happens.
type HTTPTrace struct {
	start, dns, connect time.Time

	DNSDuration       time.Duration
	ConnectDuration   time.Duration
	FirstByteDuration time.Duration
}

func (ht *HTTPTrace) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { ht.dns = time.Now() },
		DNSDone: func(httptrace.DNSDoneInfo) {
			ht.DNSDuration = time.Since(ht.dns)
		},
		ConnectStart: func(network, addr string) { ht.connect = time.Now() },
		ConnectDone: func(network, addr string, err error) {
			ht.ConnectDuration = time.Since(ht.connect)
		},
		GetConn: func(hostPort string) { ht.start = time.Now() },
		GotFirstResponseByte: func() {
			ht.FirstByteDuration = time.Since(ht.start)
		},
	}
}

// WithTrace returns the given request with this HTTPTrace attached to its
// context.
func (ht *HTTPTrace) WithTrace(req *http.Request) *http.Request {
	return req.WithContext(httptrace.WithClientTrace(req.Context(), ht.trace()))
}

// fillRecord copies the captured timings onto a page record. Phases that
// never ran (cached connections, IP hosts) stay zero.
func (ht *HTTPTrace) fillRecord(rec *PageRecord) {
	if ht == nil {
		return
	}
	rec.DNSMs = ht.DNSDuration.Milliseconds()
	rec.ConnectMs = ht.ConnectDuration.Milliseconds()
	rec.TTFBMs = ht.FirstByteDuration.Milliseconds()
}
