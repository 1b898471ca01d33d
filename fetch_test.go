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
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T) (*Fetcher, *MockTransport) {
	t.Helper()
	transport := NewMockTransport()
	fetcher := NewFetcher("siteaudit-test/1.0", 5*time.Second)
	fetcher.SetTransport(transport)
	fetcher.SetLogger(testLogger())
	return fetcher, transport
}

const fetchTestPage = `<!DOCTYPE html>
<html><head>
<title>Garden Shop — Seeds and Tools</title>
<meta name="description" content="Seeds, tools and advice for the home gardener, shipped anywhere.">
<link rel="canonical" href="/shop">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Store","name":"Garden Shop"}</script>
</head><body>
<h1>Garden Shop</h1>
<h2>Seeds</h2>
<img src="/img/tomato.png" alt="Tomato seedlings">
<img src="/img/banner.png" alt="">
<p>Seeds and tools for gardeners. Tomato seeds are the most popular item in the shop this season.</p>
<a href="/shop/seeds">Seed catalogue</a>
<a href="https://partner.example/promo" rel="nofollow">Partner promo</a>
<a href="mailto:info@site.test">Write us</a>
</body></html>`

func TestFetchRecordParsesStaticMarkup(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterHTML("https://site.test/shop", fetchTestPage)

	rec := fetcher.FetchRecord(context.Background(), "https://site.test/shop", testCrawlContext(), 2)

	if rec.Error != "" {
		t.Fatalf("unexpected error: %s", rec.Error)
	}
	if rec.Status != 200 || rec.Depth != 2 || rec.Rendered {
		t.Errorf("rec = status %d depth %d rendered %v", rec.Status, rec.Depth, rec.Rendered)
	}
	if rec.Title != "Garden Shop — Seeds and Tools" {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.MetaDescription == "" {
		t.Error("meta description missing")
	}
	if rec.Canonical != "https://site.test/shop" {
		t.Errorf("canonical = %q, want resolved absolute URL", rec.Canonical)
	}
	if rec.H1Count() != 1 || len(rec.Headings) != 2 {
		t.Errorf("headings = %+v", rec.Headings)
	}
	if len(rec.Images) != 2 || rec.Images[0].Alt != "Tomato seedlings" {
		t.Errorf("images = %+v", rec.Images)
	}

	// mailto is dropped; the two http anchors survive with classification.
	if len(rec.Links) != 2 {
		t.Fatalf("links = %+v", rec.Links)
	}
	if !rec.Links[0].Internal || rec.Links[0].URL != "https://site.test/shop/seeds" {
		t.Errorf("internal link = %+v", rec.Links[0])
	}
	if rec.Links[1].Internal || !rec.Links[1].Nofollow {
		t.Errorf("external nofollow link = %+v", rec.Links[1])
	}

	if rec.WordCount == 0 || len(rec.Keywords) == 0 {
		t.Error("text mining fields empty")
	}
	if rec.ContentHash == "" {
		t.Error("content hash missing")
	}
	if len(rec.StructuredDataTypes) != 1 || rec.StructuredDataTypes[0] != "Store" {
		t.Errorf("structured data = %v", rec.StructuredDataTypes)
	}
	if rec.InitialMarkupBytes == 0 || rec.InitialMarkupBytes != rec.RenderedMarkupBytes {
		t.Errorf("markup sizes = %d/%d", rec.InitialMarkupBytes, rec.RenderedMarkupBytes)
	}
}

func TestFetchRecordNonHTMLIsStatusOnly(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterResponse("https://site.test/report.pdf", &MockResponse{
		StatusCode: 200,
		Body:       "%PDF-1.4",
		Headers:    http.Header{"Content-Type": []string{"application/pdf"}},
	})

	rec := fetcher.FetchRecord(context.Background(), "https://site.test/report.pdf", testCrawlContext(), 1)
	if rec.Status != 200 || rec.Error != "" {
		t.Fatalf("rec = status %d error %q", rec.Status, rec.Error)
	}
	if rec.Title != "" || len(rec.Links) != 0 || rec.ContentHash != "" {
		t.Errorf("non-HTML record carries parse output: %+v", rec)
	}
	if rec.SkipReason == "" || !strings.Contains(rec.SkipReason, "application/pdf") {
		t.Errorf("skip reason = %q, want the content type named", rec.SkipReason)
	}
}

func TestFetchRecordUsesConfiguredHashAlgorithm(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterHTML("https://site.test/shop", fetchTestPage)
	fetcher.SetHashAlgorithm("sha256")

	rec := fetcher.FetchRecord(context.Background(), "https://site.test/shop", testCrawlContext(), 0)
	if len(rec.ContentHash) != 64 {
		t.Errorf("hash length = %d, want 64 (sha256 hex)", len(rec.ContentHash))
	}
}

func TestFetchRecordPrefersMainContentText(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterHTML("https://site.test/article", `<html><body>
<nav><a href="/">porcupine</a> <a href="/x">porcupine</a> <a href="/y">porcupine</a></nav>
<article><p>Espresso brewing is about the grind and the water. A fine grind slows
the water and a coarse grind speeds it up, so the grind decides the shot.</p></article>
</body></html>`)

	rec := fetcher.FetchRecord(context.Background(), "https://site.test/article", testCrawlContext(), 0)
	if len(rec.Keywords) == 0 || rec.Keywords[0] != "grind" {
		t.Errorf("keywords = %v, want grind first", rec.Keywords)
	}
	for _, kw := range rec.Keywords {
		if kw == "porcupine" {
			t.Error("navigation text leaked into keywords")
		}
	}
	if rec.WordCount == 0 || rec.WordCount > 30 {
		t.Errorf("word count = %d, want the article text only", rec.WordCount)
	}
}

func TestFetchRecordCapturesConnectionTiming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(25 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>Timed</title></head><body><p>ok</p></body></html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher("siteaudit-test/1.0", 5*time.Second)
	fetcher.SetLogger(testLogger())

	rec := fetcher.FetchRecord(context.Background(), server.URL, testCrawlContext(), 0)
	if rec.Error != "" {
		t.Fatalf("unexpected error: %s", rec.Error)
	}
	// The handler delays 25ms before its first byte; no DNS lookup happens
	// for a loopback IP.
	if rec.TTFBMs < 20 {
		t.Errorf("ttfb = %dms, want at least 20", rec.TTFBMs)
	}
	if rec.FetchMs < rec.TTFBMs {
		t.Errorf("fetch %dms shorter than ttfb %dms", rec.FetchMs, rec.TTFBMs)
	}
	if rec.DNSMs < 0 || rec.ConnectMs < 0 {
		t.Errorf("negative phase timing: dns %d connect %d", rec.DNSMs, rec.ConnectMs)
	}
}

func TestFetchRecordNetworkError(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterError("https://site.test/down", errors.New("connection refused"))

	rec := fetcher.FetchRecord(context.Background(), "https://site.test/down", testCrawlContext(), 0)
	if rec.Error == "" {
		t.Fatal("error record expected")
	}
	if rec.Status != 0 {
		t.Errorf("status = %d, want 0", rec.Status)
	}
}

func TestFetchRecordServerError(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterResponse("https://site.test/oops", &MockResponse{
		StatusCode: 503,
		Body:       "<html><body>maintenance</body></html>",
		Headers:    http.Header{"Content-Type": []string{"text/html"}},
	})

	rec := fetcher.FetchRecord(context.Background(), "https://site.test/oops", testCrawlContext(), 0)
	if rec.Status != 503 || rec.Error != "" {
		t.Errorf("rec = status %d error %q", rec.Status, rec.Error)
	}
}

func TestFetcherDecodesLegacyCharset(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	// "caf\xe9" is ISO-8859-1 for café.
	transport.RegisterResponse("https://site.test/latin", &MockResponse{
		StatusCode: 200,
		Body:       "<html><head><title>caf\xe9</title></head><body><p>ok</p></body></html>",
		Headers:    http.Header{"Content-Type": []string{"text/html; charset=iso-8859-1"}},
	})

	rec := fetcher.FetchRecord(context.Background(), "https://site.test/latin", testCrawlContext(), 0)
	if rec.Title != "café" {
		t.Errorf("title = %q, want decoded café", rec.Title)
	}
}

func TestDiscoverLinks(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterHTML("https://site.test/hub", `<html><body>
<a href="/one">One</a>
<a href="/two#section">Two</a>
<a href="https://elsewhere.test/x">Out</a>
</body></html>`)

	links, err := fetcher.DiscoverLinks(context.Background(), "https://site.test/hub", testCrawlContext())
	if err != nil {
		t.Fatalf("DiscoverLinks failed: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("links = %+v", links)
	}
	if links[1].URL != "https://site.test/two" {
		t.Errorf("fragment not stripped: %q", links[1].URL)
	}
	if links[2].Internal {
		t.Error("external link classified internal")
	}
}

func TestDiscoverLinksErrorType(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterError("https://site.test/hub", errors.New("timeout"))

	_, err := fetcher.DiscoverLinks(context.Background(), "https://site.test/hub", testCrawlContext())
	var discErr *LinkDiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("err = %T, want *LinkDiscoveryError", err)
	}
	if discErr.URL != "https://site.test/hub" {
		t.Errorf("error URL = %q", discErr.URL)
	}
}
