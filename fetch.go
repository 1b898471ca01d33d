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
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Fetcher is the plain-HTTP collaborator of the pipeline. It resolves the
// seed redirect chain, fetches robots.txt and sitemaps, and serves as the
// non-rendering fallback path for pages the browser cannot or should not
// render.
type Fetcher struct {
	client        *http.Client
	userAgent     string
	maxBodySize   int
	detectCharset bool
	hashAlgorithm string
	log           *slog.Logger
}

// fetchResult is the raw outcome of a single GET.
type fetchResult struct {
	Status      int
	Headers     http.Header
	Body        []byte
	ContentType string
	Trace       *HTTPTrace
	Elapsed     time.Duration
}

// NewFetcher creates a Fetcher with the given user agent and per-request
// timeout.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent:     userAgent,
		maxBodySize:   10 * 1024 * 1024,
		detectCharset: true,
		log:           slog.Default(),
	}
}

// SetTransport swaps the underlying HTTP transport. Tests use it to install
// a mock round tripper.
func (f *Fetcher) SetTransport(rt http.RoundTripper) {
	f.client.Transport = rt
}

// SetLogger sets the structured logger used by the fetcher.
func (f *Fetcher) SetLogger(log *slog.Logger) {
	if log != nil {
		f.log = log
	}
}

// SetHashAlgorithm selects the content hash algorithm ("xxhash", "md5",
// "sha256"). Empty means the default.
func (f *Fetcher) SetHashAlgorithm(algorithm string) {
	f.hashAlgorithm = algorithm
}

// get performs a single GET with tracing, gzip handling and a body cap.
func (f *Fetcher) get(ctx context.Context, rawURL string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	trace := &HTTPTrace{}
	req = trace.WithTrace(req)

	start := time.Now()
	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var bodyReader io.Reader = res.Body
	if f.maxBodySize > 0 {
		bodyReader = io.LimitReader(bodyReader, int64(f.maxBodySize))
	}
	contentEncoding := strings.ToLower(res.Header.Get("Content-Encoding"))
	if !res.Uncompressed && strings.Contains(contentEncoding, "gzip") {
		gz, err := gzip.NewReader(bodyReader)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		bodyReader = gz
	}
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, err
	}

	contentType := res.Header.Get("Content-Type")
	if strings.Contains(contentType, "html") || contentType == "" {
		body = f.decodeBody(body, contentType)
	}

	return &fetchResult{
		Status:      res.StatusCode,
		Headers:     res.Header,
		Body:        body,
		ContentType: contentType,
		Trace:       trace,
		Elapsed:     time.Since(start),
	}, nil
}

// decodeBody converts a non-UTF-8 HTML body to UTF-8. The declared charset
// wins; when none is declared, chardet takes its best guess.
func (f *Fetcher) decodeBody(body []byte, contentType string) []byte {
	if !f.detectCharset || utf8.Valid(body) {
		return body
	}
	label := ""
	if idx := strings.Index(strings.ToLower(contentType), "charset="); idx != -1 {
		label = strings.Trim(contentType[idx+len("charset="):], `"' `)
	}
	if label == "" {
		detector := chardet.NewTextDetector()
		if result, err := detector.DetectBest(body); err == nil {
			label = result.Charset
		}
	}
	if label == "" {
		return body
	}
	r, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}

// FetchRecord is the non-rendering fallback path of the extraction pipeline:
// a plain GET plus a static markup parse. It always returns a record; fetch
// failures come back as error records.
func (f *Fetcher) FetchRecord(ctx context.Context, rawURL string, cctx *CrawlContext, depth int) *PageRecord {
	rec := &PageRecord{
		URL:      Normalize(rawURL),
		Depth:    depth,
		Rendered: false,
	}

	result, err := f.get(ctx, rawURL)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}

	rec.Status = result.Status
	rec.ContentType = result.ContentType
	rec.FetchMs = result.Elapsed.Milliseconds()
	result.Trace.fillRecord(rec)

	if !strings.Contains(result.ContentType, "text/html") {
		// Non-HTML resources get a status record and nothing else.
		rec.SkipReason = (&ContentTypeError{URL: rawURL, ContentType: result.ContentType}).Error()
		return rec
	}

	f.parseStaticMarkup(rec, result.Body, cctx)
	return rec
}

// parseStaticMarkup fills a record from raw markup without a browser. The
// same XPath extractions run against initial and rendered markup are not
// possible here, so initial and rendered sizes are set equal.
func (f *Fetcher) parseStaticMarkup(rec *PageRecord, body []byte, cctx *CrawlContext) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		rec.Error = fmt.Sprintf("parsing markup: %v", err)
		return
	}

	rec.InitialMarkupBytes = len(body)
	rec.RenderedMarkupBytes = len(body)

	if node := htmlquery.FindOne(doc, "//title"); node != nil {
		rec.Title = strings.TrimSpace(htmlquery.InnerText(node))
	}
	if node := htmlquery.FindOne(doc, "//meta[@name='description']"); node != nil {
		rec.MetaDescription = strings.TrimSpace(htmlquery.SelectAttr(node, "content"))
	}
	if node := htmlquery.FindOne(doc, "//link[@rel='canonical']"); node != nil {
		if href := htmlquery.SelectAttr(node, "href"); href != "" {
			if abs, err := NormalizeRef(rec.URL, href); err == nil {
				rec.Canonical = abs
			}
		}
	}

	for level := 1; level <= 6; level++ {
		for _, node := range htmlquery.Find(doc, fmt.Sprintf("//h%d", level)) {
			rec.Headings = append(rec.Headings, Heading{
				Level: level,
				Text:  strings.TrimSpace(htmlquery.InnerText(node)),
			})
		}
	}

	for _, node := range htmlquery.Find(doc, "//img[@src]") {
		src := htmlquery.SelectAttr(node, "src")
		abs, err := NormalizeRef(rec.URL, src)
		if err != nil {
			continue
		}
		rec.Images = append(rec.Images, ImageInfo{
			URL: abs,
			Alt: strings.TrimSpace(htmlquery.SelectAttr(node, "alt")),
		})
	}

	rec.Links = f.extractAnchors(doc, rec.URL, cctx)

	for _, node := range htmlquery.Find(doc, "//script[@type='application/ld+json']") {
		for _, t := range structuredDataTypes(htmlquery.InnerText(node)) {
			rec.StructuredDataTypes = append(rec.StructuredDataTypes, t)
		}
	}

	// Word count and keywords come from the main content area so navigation
	// chrome does not drown out the page's own text.
	text := extractMainContentText(body)
	if text == "" {
		text = extractAllText(body)
	}
	rec.WordCount = len(strings.Fields(text))
	rec.Keywords = ExtractKeywords(text, defaultKeywordCount)

	if hash, err := ComputeContentHashWithConfig(body, f.hashAlgorithm, nil); err == nil {
		rec.ContentHash = hash
	}
}

// extractAnchors pulls all anchors out of a parsed document, resolving and
// classifying each against the crawl context.
func (f *Fetcher) extractAnchors(doc *html.Node, baseURL string, cctx *CrawlContext) []PageLink {
	var links []PageLink
	for _, node := range htmlquery.Find(doc, "//a[@href]") {
		href := htmlquery.SelectAttr(node, "href")
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			continue
		}
		abs, err := NormalizeRef(baseURL, href)
		if err != nil {
			continue
		}
		rel := strings.ToLower(htmlquery.SelectAttr(node, "rel"))
		links = append(links, PageLink{
			URL:      abs,
			Text:     strings.TrimSpace(htmlquery.InnerText(node)),
			Internal: cctx.Accepts(HostOf(abs)),
			Nofollow: strings.Contains(rel, "nofollow"),
		})
	}
	return links
}

// DiscoverLinks fetches a page and returns only its anchors. It backs link
// discovery for pages whose render failed outright; errors surface as a
// LinkDiscoveryError.
func (f *Fetcher) DiscoverLinks(ctx context.Context, rawURL string, cctx *CrawlContext) ([]PageLink, error) {
	result, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, &LinkDiscoveryError{URL: rawURL, Err: err}
	}
	if !strings.Contains(result.ContentType, "text/html") {
		return nil, nil
	}
	doc, err := htmlquery.Parse(bytes.NewReader(result.Body))
	if err != nil {
		return nil, &LinkDiscoveryError{URL: rawURL, Err: err}
	}
	return f.extractAnchors(doc, Normalize(rawURL), cctx), nil
}
