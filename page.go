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

// CrawlTask is a single frontier entry. Tasks are created when a link is
// discovered, consumed exactly once and never mutated.
type CrawlTask struct {
	// URL is the canonical form of the URL to crawl
	URL string
	// Depth is the link distance from the seed (seed = 0)
	Depth int
}

// CrawlContext is derived once from the redirect-resolved entry URL. Every
// same-domain decision for the whole crawl uses this context, even when
// mid-crawl pages live on a different subdomain that the root-domain rule
// still accepts.
type CrawlContext struct {
	// PreferredHost is the host the seed resolved to after redirects
	PreferredHost string
	// PreferredScheme is the scheme the seed resolved to ("http", "https")
	PreferredScheme string
	// RootDomain is the heuristic registrable domain of PreferredHost
	RootDomain string
}

// Accepts reports whether a host belongs to this crawl.
func (c *CrawlContext) Accepts(host string) bool {
	if c == nil || host == "" {
		return false
	}
	return IsSameDomain(c.PreferredHost, host)
}

// RedirectHop is one entry of a followed redirect chain.
type RedirectHop struct {
	// URL is the address that answered with a redirect
	URL string `json:"url"`
	// Status is the 3xx status code returned
	Status int `json:"status"`
	// Location is the raw Location header value
	Location string `json:"location"`
}

// Heading is a single h1..h6 element extracted from the rendered page.
type Heading struct {
	// Level is 1..6
	Level int `json:"level"`
	// Text is the trimmed heading text
	Text string `json:"text"`
}

// ImageInfo describes one image found in the rendered document.
type ImageInfo struct {
	// URL is the absolute image source
	URL string `json:"url"`
	// Alt is the alt attribute, possibly empty
	Alt string `json:"alt"`
}

// PageLink is one outbound anchor discovered on a page.
type PageLink struct {
	// URL is the canonical target URL
	URL string `json:"url"`
	// Text is the trimmed anchor text
	Text string `json:"text"`
	// Internal indicates the target is on the crawl's domain
	Internal bool `json:"internal"`
	// Nofollow indicates rel="nofollow" on the anchor
	Nofollow bool `json:"nofollow"`
}

// PageMetrics is the bag of performance signals collected from in-page
// observers while the page rendered. Fields are zero when a collector could
// not be installed or never fired.
type PageMetrics struct {
	// FirstPaintMs is the first-paint timestamp relative to navigation start
	FirstPaintMs float64 `json:"firstPaintMs"`
	// FirstContentfulPaintMs is the first-contentful-paint timestamp
	FirstContentfulPaintMs float64 `json:"firstContentfulPaintMs"`
	// LayoutShift is the accumulated layout shift score
	LayoutShift float64 `json:"layoutShift"`
	// BlockingTimeMs is the accumulated long-task time
	BlockingTimeMs float64 `json:"blockingTimeMs"`
	// FirstInputDelayMs is the first input delay, 0 if no input occurred
	FirstInputDelayMs float64 `json:"firstInputDelayMs"`
}

// PageRecord is the per-URL crawl result. One record exists per attempted
// URL (error records included) and is never updated after creation.
type PageRecord struct {
	// URL is the canonical URL this record describes
	URL string `json:"url"`
	// Depth is the frontier depth the URL was crawled at
	Depth int `json:"depth"`
	// Status is the HTTP status code (0 on network/render failure)
	Status int `json:"status"`
	// ContentType is the effective content type of the response
	ContentType string `json:"contentType"`
	// Rendered indicates the record came from the browser pipeline rather
	// than the plain-fetch fallback
	Rendered bool `json:"rendered"`
	// FetchMs is the wall time of the fetch/render in milliseconds
	FetchMs int64 `json:"fetchMs"`
	// DNSMs is the DNS resolution time of the plain fetch in milliseconds
	DNSMs int64 `json:"dnsMs"`
	// ConnectMs is the connection setup time in milliseconds
	ConnectMs int64 `json:"connectMs"`
	// TTFBMs is the time to first response byte in milliseconds
	TTFBMs int64 `json:"ttfbMs"`

	// Title is the stabilized page title
	Title string `json:"title"`
	// MetaDescription is the meta description content
	MetaDescription string `json:"metaDescription"`
	// Canonical is the href of the page's canonical link, if any
	Canonical string `json:"canonical,omitempty"`
	// Headings are the page's h1..h6 elements in document order
	Headings []Heading `json:"headings,omitempty"`
	// Images are the page's images
	Images []ImageInfo `json:"images,omitempty"`
	// Links are the page's outbound anchors
	Links []PageLink `json:"links,omitempty"`
	// Keywords are the highest-scoring content words of the page
	Keywords []string `json:"keywords,omitempty"`
	// WordCount is the word count of the page's main content text
	WordCount int `json:"wordCount"`
	// Metrics is the performance signal bag
	Metrics PageMetrics `json:"metrics"`
	// StructuredDataTypes lists the JSON-LD @type values found on the page
	StructuredDataTypes []string `json:"structuredDataTypes,omitempty"`

	// InitialMarkupBytes is the markup size right after navigation
	InitialMarkupBytes int `json:"initialMarkupBytes"`
	// RenderedMarkupBytes is the markup size after content expansion
	RenderedMarkupBytes int `json:"renderedMarkupBytes"`

	// ContentHash is the normalized-content hash (empty when hashing is off)
	ContentHash string `json:"contentHash,omitempty"`
	// DuplicateOf is the URL of an earlier page with identical content
	DuplicateOf string `json:"duplicateOf,omitempty"`

	// SkipReason explains why a fetched resource was recorded by status
	// only (non-HTML content, for example), empty otherwise
	SkipReason string `json:"skipReason,omitempty"`

	// Error holds the failure message for error records, empty otherwise
	Error string `json:"error,omitempty"`
}

// H1Count returns the number of h1 headings on the page.
func (p *PageRecord) H1Count() int {
	n := 0
	for _, h := range p.Headings {
		if h.Level == 1 {
			n++
		}
	}
	return n
}

// RenderGrowth returns how much of the final markup only appeared after
// script execution, as a ratio of rendered size to initial size. Returns 1
// when the initial capture is missing.
func (p *PageRecord) RenderGrowth() float64 {
	if p.InitialMarkupBytes <= 0 {
		return 1
	}
	return float64(p.RenderedMarkupBytes) / float64(p.InitialMarkupBytes)
}

// InternalLinks returns the page's same-domain anchors.
func (p *PageRecord) InternalLinks() []PageLink {
	var out []PageLink
	for _, l := range p.Links {
		if l.Internal {
			out = append(out, l)
		}
	}
	return out
}
