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
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// RendererConfig tunes the staged render protocol.
type RendererConfig struct {
	// NavigateTimeout bounds navigation plus initial readiness
	NavigateTimeout time.Duration
	// EvaluateTimeout bounds each in-page evaluation
	EvaluateTimeout time.Duration
	// SettleDelay is the post-navigation wait for hydration
	SettleDelay time.Duration
	// ScrollDelay is the wait after each expansion scroll
	ScrollDelay time.Duration
	// MaxExpandRounds caps the content expansion loop; infinite-scroll
	// pages never stabilize on their own
	MaxExpandRounds int
	// TitlePolls is how many times the title is re-read for stability
	TitlePolls int
	// TitlePollInterval is the wait between title polls
	TitlePollInterval time.Duration
	// Attempts is how many full render attempts a page gets before the
	// static fallback takes over
	Attempts int
	// RetryBackoff is the base delay between attempts; it doubles per
	// attempt
	RetryBackoff time.Duration
}

// DefaultRendererConfig returns the renderer defaults.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		NavigateTimeout:   30 * time.Second,
		EvaluateTimeout:   10 * time.Second,
		SettleDelay:       1500 * time.Millisecond,
		ScrollDelay:       700 * time.Millisecond,
		MaxExpandRounds:   4,
		TitlePolls:        5,
		TitlePollInterval: 200 * time.Millisecond,
		Attempts:          3,
		RetryBackoff:      500 * time.Millisecond,
	}
}

// Renderer runs the browser-based half of the extraction pipeline. Every
// page goes through the same staged protocol: static preflight, navigation,
// observer install, bounded content expansion with health checks between
// rounds, live-DOM extraction, title stabilization and a blank reset that
// returns the page handle in a reusable state.
type Renderer struct {
	session *SessionManager
	fetcher *Fetcher
	cfg     RendererConfig
	log     *slog.Logger
}

// NewRenderer creates a Renderer over a session manager and a fetcher. The
// fetcher serves the preflight request and the non-rendering fallback.
func NewRenderer(session *SessionManager, fetcher *Fetcher, cfg RendererConfig, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.MaxExpandRounds <= 0 {
		cfg.MaxExpandRounds = 1
	}
	return &Renderer{session: session, fetcher: fetcher, cfg: cfg, log: log}
}

// installMetricsJS registers buffered performance observers so paint,
// layout-shift, long-task and first-input entries from before the install
// are still captured.
const installMetricsJS = `(() => {
	window.__pageSignals = {fp: 0, fcp: 0, cls: 0, tbt: 0, fid: 0};
	const s = window.__pageSignals;
	try {
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				if (e.name === 'first-paint') s.fp = e.startTime;
				if (e.name === 'first-contentful-paint') s.fcp = e.startTime;
			}
		}).observe({type: 'paint', buffered: true});
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				if (!e.hadRecentInput) s.cls += e.value;
			}
		}).observe({type: 'layout-shift', buffered: true});
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				if (e.duration > 50) s.tbt += e.duration - 50;
			}
		}).observe({type: 'longtask', buffered: true});
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				s.fid = e.processingStart - e.startTime;
			}
		}).observe({type: 'first-input', buffered: true});
	} catch (err) {}
	return true;
})()`

const collectMetricsJS = `window.__pageSignals || {fp: 0, fcp: 0, cls: 0, tbt: 0, fid: 0}`

// expandJS runs one expansion round: open collapsed sections, click a few
// load-more style buttons, scroll to the bottom, and report the new scroll
// height so the expansion loop can detect when the page stops growing.
const expandJS = `(() => {
	for (const d of document.querySelectorAll('details:not([open])')) {
		d.setAttribute('open', '');
	}
	const labels = /^(load more|show more|see more|view more|more)$/i;
	let clicks = 0;
	for (const el of document.querySelectorAll('button, a[role="button"], [class*="load-more"], [class*="show-more"]')) {
		if (clicks >= 3) break;
		const text = (el.textContent || '').trim();
		if (text.length > 40 || !labels.test(text)) continue;
		try { el.click(); clicks++; } catch (e) {}
	}
	window.scrollTo(0, document.body ? document.body.scrollHeight : 0);
	return document.body ? document.body.scrollHeight : 0;
})()`

const scrollTopJS = `(() => { window.scrollTo(0, 0); return true; })()`

const renderedMarkupJS = `(document.documentElement && document.documentElement.outerHTML) || ''`

const titleJS = `document.title || ''`

// extractDOMJS pulls everything the audit needs out of the live DOM in a
// single evaluation, including same-origin iframe text which static parsing
// cannot reach.
const extractDOMJS = `(() => {
	const out = {title: document.title || '', metaDescription: '', canonical: '',
		headings: [], images: [], links: [], jsonld: [], text: ''};
	const md = document.querySelector('meta[name="description"]');
	if (md) out.metaDescription = md.getAttribute('content') || '';
	const can = document.querySelector('link[rel="canonical"]');
	if (can) out.canonical = can.href || can.getAttribute('href') || '';
	for (const h of document.querySelectorAll('h1,h2,h3,h4,h5,h6')) {
		out.headings.push({level: parseInt(h.tagName.substring(1), 10), text: (h.textContent || '').trim()});
	}
	for (const img of document.querySelectorAll('img[src]')) {
		out.images.push({url: img.src, alt: img.getAttribute('alt') || ''});
	}
	for (const a of document.querySelectorAll('a[href]')) {
		const raw = a.getAttribute('href') || '';
		if (!raw || raw.startsWith('#') || raw.startsWith('javascript:') ||
			raw.startsWith('mailto:') || raw.startsWith('tel:')) continue;
		const rel = (a.getAttribute('rel') || '').toLowerCase();
		out.links.push({url: a.href, text: (a.textContent || '').trim(),
			nofollow: rel.split(/[\s,]+/).indexOf('nofollow') !== -1});
	}
	for (const sc of document.querySelectorAll('script[type="application/ld+json"]')) {
		out.jsonld.push(sc.textContent || '');
	}
	let text = document.body ? document.body.innerText : '';
	for (const f of document.querySelectorAll('iframe')) {
		try {
			const d = f.contentDocument;
			if (d && d.body) text += '\n' + d.body.innerText;
		} catch (err) {}
	}
	out.text = text;
	return out;
})()`

// domExtract mirrors the object returned by extractDOMJS.
type domExtract struct {
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	Canonical       string `json:"canonical"`
	Headings        []struct {
		Level int    `json:"level"`
		Text  string `json:"text"`
	} `json:"headings"`
	Images []struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	} `json:"images"`
	Links []struct {
		URL      string `json:"url"`
		Text     string `json:"text"`
		Nofollow bool   `json:"nofollow"`
	} `json:"links"`
	JSONLD []string `json:"jsonld"`
	Text   string   `json:"text"`
}

// domMetrics mirrors the object returned by collectMetricsJS.
type domMetrics struct {
	FP  float64 `json:"fp"`
	FCP float64 `json:"fcp"`
	CLS float64 `json:"cls"`
	TBT float64 `json:"tbt"`
	FID float64 `json:"fid"`
}

// Render produces the full record for one URL. It always returns a record;
// the error return is reserved for crawl cancellation and a permanently
// lost session. Render failures degrade to the static-parse fallback built
// from the preflight response.
func (r *Renderer) Render(ctx context.Context, rawURL string, cctx *CrawlContext, depth int) (*PageRecord, error) {
	rec := &PageRecord{
		URL:   Normalize(rawURL),
		Depth: depth,
	}

	// Static preflight: status, headers, timing and the pre-script markup
	// all come from a plain GET. The browser never reliably exposes these.
	result, err := r.fetcher.get(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec.Error = err.Error()
		return rec, nil
	}
	rec.Status = result.Status
	rec.ContentType = result.ContentType
	rec.FetchMs = result.Elapsed.Milliseconds()
	rec.InitialMarkupBytes = len(result.Body)
	result.Trace.fillRecord(rec)

	if !strings.Contains(result.ContentType, "text/html") {
		// Non-HTML resources are recorded by status only, never rendered.
		reason := &ContentTypeError{URL: rawURL, ContentType: result.ContentType}
		rec.SkipReason = reason.Error()
		r.log.Debug("skipping render", "url", rawURL, "reason", reason)
		return rec, nil
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.Attempts; attempt++ {
		if attempt > 0 {
			backoff := r.cfg.RetryBackoff << (attempt - 1)
			r.log.Warn("render attempt failed, retrying",
				"url", rawURL, "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		page, err := r.session.AcquirePage(ctx)
		if err != nil {
			if errors.Is(err, ErrSessionClosed) || ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		err = r.renderOnce(ctx, page, rawURL, cctx, rec)
		if err == nil {
			rec.Rendered = true
			return rec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryableRenderError(err) {
			lastErr = err
			break
		}
		lastErr = err
	}

	r.log.Warn("rendering failed, falling back to static parse",
		"url", rawURL, "error", lastErr)
	r.fetcher.parseStaticMarkup(rec, result.Body, cctx)
	return rec, nil
}

// renderOnce runs one pass of the staged protocol against a page handle.
// Any error leaves the record partially filled; the caller decides whether
// to retry or fall back.
func (r *Renderer) renderOnce(ctx context.Context, page Page, rawURL string, cctx *CrawlContext, rec *PageRecord) error {
	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigateTimeout)
	err := page.Navigate(navCtx, rawURL)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &RenderTimeoutError{URL: rawURL, Stage: "navigate", Timeout: r.cfg.NavigateTimeout}
		}
		return &SessionError{Op: "navigate", Err: err}
	}

	if err := r.evaluate(ctx, page, installMetricsJS, nil); err != nil {
		// Observers are best effort; metrics stay zero.
		r.log.Debug("metrics observer install failed", "url", rawURL, "error", err)
	}

	select {
	case <-time.After(r.cfg.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := r.expandContent(ctx, page, rawURL); err != nil {
		return err
	}

	var renderedHTML string
	if err := r.evaluate(ctx, page, renderedMarkupJS, &renderedHTML); err != nil {
		return &SessionError{Op: "capture", Err: err}
	}
	rec.RenderedMarkupBytes = len(renderedHTML)
	if hash, err := ComputeContentHashWithConfig([]byte(renderedHTML), r.fetcher.hashAlgorithm, nil); err == nil {
		rec.ContentHash = hash
	}

	var dom domExtract
	if err := r.evaluate(ctx, page, extractDOMJS, &dom); err != nil {
		return &SessionError{Op: "extract", Err: err}
	}
	r.applyExtract(rec, &dom, renderedHTML, cctx)

	title, err := r.stabilizeTitle(ctx, page, dom.Title)
	if err != nil {
		r.log.Debug("title stabilization failed", "url", rawURL,
			"error", &ExtractionStepError{Step: "title", Err: err})
	} else {
		rec.Title = title
	}

	var metrics domMetrics
	if err := r.evaluate(ctx, page, collectMetricsJS, &metrics); err != nil {
		r.log.Debug("metrics collection failed", "url", rawURL,
			"error", &ExtractionStepError{Step: "metrics", Err: err})
	} else {
		rec.Metrics = PageMetrics{
			FirstPaintMs:           metrics.FP,
			FirstContentfulPaintMs: metrics.FCP,
			LayoutShift:            metrics.CLS,
			BlockingTimeMs:         metrics.TBT,
			FirstInputDelayMs:      metrics.FID,
		}
	}

	// Reset to a blank page so the handle is reusable. A handle that cannot
	// reset is spent.
	resetCtx, cancel := context.WithTimeout(ctx, r.cfg.EvaluateTimeout)
	err = page.Navigate(resetCtx, "about:blank")
	cancel()
	if err != nil {
		r.session.MarkPageUnusable()
		r.log.Warn("blank reset failed, page handle retired", "url", rawURL, "error", err)
	}
	return nil
}

// expandContent scrolls the page in rounds until its height stabilizes or
// the round cap is hit, re-verifying session health before each round.
func (r *Renderer) expandContent(ctx context.Context, page Page, rawURL string) error {
	prevHeight := -1
	for round := 0; round < r.cfg.MaxExpandRounds; round++ {
		if !r.session.VerifyHealthy(ctx) {
			return &SessionError{Op: "expand", Err: errors.New("health probe failed")}
		}
		var height int
		if err := r.evaluate(ctx, page, expandJS, &height); err != nil {
			return &SessionError{Op: "expand", Err: err}
		}
		select {
		case <-time.After(r.cfg.ScrollDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if height == prevHeight {
			break
		}
		prevHeight = height
	}
	if err := r.evaluate(ctx, page, scrollTopJS, nil); err != nil {
		r.log.Debug("scroll-top after expansion failed", "url", rawURL, "error", err)
	}
	return nil
}

// stabilizeTitle re-reads the title until two consecutive polls agree.
// Client-side routers rewrite titles well after load.
func (r *Renderer) stabilizeTitle(ctx context.Context, page Page, initial string) (string, error) {
	last := initial
	for poll := 0; poll < r.cfg.TitlePolls; poll++ {
		select {
		case <-time.After(r.cfg.TitlePollInterval):
		case <-ctx.Done():
			return last, ctx.Err()
		}
		var current string
		if err := r.evaluate(ctx, page, titleJS, &current); err != nil {
			return last, err
		}
		if current == last {
			return current, nil
		}
		last = current
	}
	return last, nil
}

// evaluate runs an in-page expression under the evaluation timeout.
func (r *Renderer) evaluate(ctx context.Context, page Page, expr string, out any) error {
	evalCtx, cancel := context.WithTimeout(ctx, r.cfg.EvaluateTimeout)
	defer cancel()
	return page.Evaluate(evalCtx, expr, out)
}

// applyExtract maps a live-DOM extraction onto the record, canonicalizing
// link targets against the crawl context.
func (r *Renderer) applyExtract(rec *PageRecord, dom *domExtract, renderedHTML string, cctx *CrawlContext) {
	rec.Title = dom.Title
	rec.MetaDescription = dom.MetaDescription
	rec.Canonical = dom.Canonical

	for _, h := range dom.Headings {
		rec.Headings = append(rec.Headings, Heading{Level: h.Level, Text: h.Text})
	}
	for _, img := range dom.Images {
		rec.Images = append(rec.Images, ImageInfo{URL: img.URL, Alt: img.Alt})
	}
	for _, l := range dom.Links {
		target := Normalize(l.URL)
		if target == "" {
			continue
		}
		rec.Links = append(rec.Links, PageLink{
			URL:      target,
			Text:     l.Text,
			Internal: cctx.Accepts(HostOf(target)),
			Nofollow: l.Nofollow,
		})
	}

	// Word count and keywords come from the main content area of the
	// rendered markup; the full innerText (which still sees same-origin
	// iframes) stands in when no content node is found.
	text := extractMainContentText([]byte(renderedHTML))
	if text == "" {
		text = normalizeWhitespace(dom.Text)
	}
	rec.WordCount = len(strings.Fields(text))
	rec.Keywords = ExtractKeywords(text, defaultKeywordCount)

	seen := make(map[string]bool)
	for _, raw := range dom.JSONLD {
		for _, t := range structuredDataTypes(raw) {
			if !seen[t] {
				seen[t] = true
				rec.StructuredDataTypes = append(rec.StructuredDataTypes, t)
			}
		}
	}
}

// structuredDataTypes extracts the @type values from a JSON-LD payload,
// descending into top-level arrays and @graph containers.
func structuredDataTypes(jsonText string) []string {
	var root any
	if err := json.Unmarshal([]byte(jsonText), &root); err != nil {
		return nil
	}
	var types []string
	var walk func(node any)
	walk = func(node any) {
		switch v := node.(type) {
		case []any:
			for _, item := range v {
				walk(item)
			}
		case map[string]any:
			switch t := v["@type"].(type) {
			case string:
				types = append(types, t)
			case []any:
				for _, item := range t {
					if s, ok := item.(string); ok {
						types = append(types, s)
					}
				}
			}
			if graph, ok := v["@graph"]; ok {
				walk(graph)
			}
		}
	}
	walk(root)
	return types
}
