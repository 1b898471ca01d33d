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
	"log/slog"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/time/rate"
)

// Frontier is the FIFO crawl queue. A URL enters at most once for the
// lifetime of a crawl: queued holds what is still in the queue, visited
// holds everything ever dequeued, and no URL is in both sets at once.
type Frontier struct {
	queue   []CrawlTask
	queued  map[string]bool
	visited map[string]bool
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queued:  make(map[string]bool),
		visited: make(map[string]bool),
	}
}

// Push enqueues a task unless its URL was already queued or visited.
// Returns whether the task was accepted.
func (f *Frontier) Push(task CrawlTask) bool {
	if task.URL == "" || f.queued[task.URL] || f.visited[task.URL] {
		return false
	}
	f.queued[task.URL] = true
	f.queue = append(f.queue, task)
	return true
}

// Pop dequeues the oldest task and moves its URL from the queued set to
// the visited set. The second return is false when the frontier is empty.
func (f *Frontier) Pop() (CrawlTask, bool) {
	if len(f.queue) == 0 {
		return CrawlTask{}, false
	}
	task := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.queued, task.URL)
	f.visited[task.URL] = true
	return task, true
}

// Seen reports whether a URL was ever queued or visited.
func (f *Frontier) Seen(url string) bool {
	return f.queued[url] || f.visited[url]
}

// Len returns the number of pending tasks.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// PageSource produces a record for one URL. The renderer is the primary
// source; the plain fetcher stands in when rendering is disabled.
type PageSource interface {
	Render(ctx context.Context, rawURL string, cctx *CrawlContext, depth int) (*PageRecord, error)
}

// fetchSource adapts a Fetcher to the PageSource interface.
type fetchSource struct {
	fetcher *Fetcher
}

func (s fetchSource) Render(ctx context.Context, rawURL string, cctx *CrawlContext, depth int) (*PageRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return s.fetcher.FetchRecord(ctx, rawURL, cctx, depth), nil
}

// Scheduler drives the breadth-first crawl: it owns the frontier, applies
// every admission filter, paces requests and feeds each record to the
// analyzers. It runs single-threaded; the one browser session is the
// bottleneck and the frontier needs no locking.
type Scheduler struct {
	source    PageSource
	fetcher   *Fetcher
	cctx      *CrawlContext
	cfg       Config
	robots    *RobotsGuard
	limiter   *rate.Limiter
	excludes  []glob.Glob
	cons      *Consolidator
	analyzers []Analyzer
	log       *slog.Logger

	frontier *Frontier
	// hashFirstURL maps a content hash to the first URL that produced it
	hashFirstURL map[string]string
	pages        []*PageRecord
	// StopReason names the exhausted budget, empty when the frontier
	// drained naturally
	StopReason string
}

// NewScheduler builds a scheduler. robots may be nil to disable robots.txt
// filtering. Invalid exclude patterns fail construction.
func NewScheduler(source PageSource, fetcher *Fetcher, cctx *CrawlContext, cfg Config, robots *RobotsGuard, cons *Consolidator, analyzers []Analyzer, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	var excludes []glob.Glob
	for _, pattern := range cfg.ExcludePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, g)
	}

	var limiter *rate.Limiter
	if cfg.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)
	}

	return &Scheduler{
		source:       source,
		fetcher:      fetcher,
		cctx:         cctx,
		cfg:          cfg,
		robots:       robots,
		limiter:      limiter,
		excludes:     excludes,
		cons:         cons,
		analyzers:    analyzers,
		log:          log,
		frontier:     NewFrontier(),
		hashFirstURL: make(map[string]string),
	}, nil
}

// Seed enqueues the entry URL at depth 0 and any sitemap URLs at depth 1.
func (s *Scheduler) Seed(seedURL string, sitemapURLs []string) {
	s.frontier.Push(CrawlTask{URL: Normalize(seedURL), Depth: 0})
	for _, u := range sitemapURLs {
		if s.admissible(u) {
			s.frontier.Push(CrawlTask{URL: u, Depth: 1})
		}
	}
}

// Run processes the frontier to exhaustion or until a budget trips. The
// returned records are in crawl (breadth-first) order. The error return is
// reserved for cancellation and a permanently lost session; budget stops
// are normal completion with StopReason set.
func (s *Scheduler) Run(ctx context.Context) ([]*PageRecord, error) {
	var deadline time.Time
	if s.cfg.MaxDuration > 0 {
		deadline = time.Now().Add(s.cfg.MaxDuration)
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.pages, err
		}
		if len(s.pages) >= s.cfg.MaxPages {
			s.StopReason = "page budget exhausted"
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			s.StopReason = "time budget exhausted"
			break
		}

		task, ok := s.frontier.Pop()
		if !ok {
			break
		}

		if s.robots != nil && !s.robots.Allowed(ctx, task.URL) {
			s.log.Debug("skipping disallowed url", "url", task.URL)
			continue
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return s.pages, err
			}
		}

		rec, err := s.source.Render(ctx, task.URL, s.cctx, task.Depth)
		if err != nil {
			return s.pages, err
		}

		s.trackDuplicate(rec)
		s.pages = append(s.pages, rec)
		s.log.Info("crawled page", "url", rec.URL, "depth", rec.Depth,
			"status", rec.Status, "rendered", rec.Rendered)

		for _, analyze := range s.analyzers {
			s.cons.AddAll(analyze(rec))
		}

		s.expand(ctx, rec)
	}
	return s.pages, nil
}

// trackDuplicate links a record to the first earlier page with the same
// content hash.
func (s *Scheduler) trackDuplicate(rec *PageRecord) {
	if rec.ContentHash == "" || !isAuditableHTML(rec) {
		return
	}
	if first, ok := s.hashFirstURL[rec.ContentHash]; ok && first != rec.URL {
		rec.DuplicateOf = first
		return
	}
	s.hashFirstURL[rec.ContentHash] = rec.URL
}

// expand enqueues a page's internal links, up to the per-page cap. Pages
// that rendered without any links get one static re-check: script-broken
// pages sometimes produce an empty live DOM while the served markup still
// carries anchors.
func (s *Scheduler) expand(ctx context.Context, rec *PageRecord) {
	if rec.Depth >= s.cfg.MaxDepth {
		return
	}

	links := rec.Links
	if len(links) == 0 && rec.Rendered && isAuditableHTML(rec) {
		discovered, err := s.fetcher.DiscoverLinks(ctx, rec.URL, s.cctx)
		if err != nil {
			s.log.Debug("static link re-check failed", "url", rec.URL, "error", err)
		} else {
			links = discovered
		}
	}

	accepted := 0
	for _, link := range links {
		if accepted >= s.cfg.MaxLinksPerPage {
			break
		}
		if !link.Internal || !s.admissible(link.URL) {
			continue
		}
		if s.frontier.Push(CrawlTask{URL: link.URL, Depth: rec.Depth + 1}) {
			accepted++
		}
	}
}

// admissible applies the static admission filters: same-domain, not a
// binary asset, not excluded by pattern.
func (s *Scheduler) admissible(rawURL string) bool {
	if rawURL == "" || !s.cctx.Accepts(HostOf(rawURL)) {
		return false
	}
	if IsBinaryAssetURL(rawURL) {
		return false
	}
	for _, g := range s.excludes {
		if g.Match(rawURL) {
			return false
		}
	}
	return true
}
