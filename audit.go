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

// Package siteaudit crawls a website with a headless browser and produces
// an audit of its pages: metadata, content, performance signals and the
// consolidated issues found along the way.
package siteaudit

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Option customizes an Auditor.
type Option func(*Auditor)

// WithLogger sets the structured logger for the whole run.
func WithLogger(log *slog.Logger) Option {
	return func(a *Auditor) {
		if log != nil {
			a.log = log
		}
	}
}

// WithDriver replaces the browser driver. Tests install fakes here.
func WithDriver(driver Driver) Option {
	return func(a *Auditor) { a.driver = driver }
}

// WithTransport replaces the HTTP transport used for plain fetches.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *Auditor) { a.transport = rt }
}

// WithAnalyzers replaces the analyzer set.
func WithAnalyzers(analyzers []Analyzer) Option {
	return func(a *Auditor) { a.analyzers = analyzers }
}

// Auditor runs complete site audits. One Auditor can serve multiple Run
// calls; each run builds its own session and frontier.
type Auditor struct {
	cfg       Config
	log       *slog.Logger
	driver    Driver
	transport http.RoundTripper
	analyzers []Analyzer
}

// NewAuditor creates an Auditor with the given configuration.
func NewAuditor(cfg Config, opts ...Option) *Auditor {
	a := &Auditor{
		cfg: cfg.withDefaults(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuditResult is the outcome of one audit run.
type AuditResult struct {
	// SeedURL is the redirect-resolved entry URL the crawl started from
	SeedURL string `json:"seedUrl"`
	// RedirectChain is the seed's redirect chain, possibly empty
	RedirectChain []RedirectHop `json:"redirectChain,omitempty"`
	// Context is the crawl context derived from the seed
	Context *CrawlContext `json:"context"`
	// Pages are the crawled records in breadth-first order
	Pages []*PageRecord `json:"pages"`
	// Issues are the consolidated issues, highest severity first
	Issues []Issue `json:"issues"`
	// IssuesByCategory groups Issues by category
	IssuesByCategory map[Category][]Issue `json:"issuesByCategory"`
	// StartedAt is when the run began
	StartedAt time.Time `json:"startedAt"`
	// Duration is the wall time of the run
	Duration time.Duration `json:"duration"`
	// StopReason names the budget that ended the crawl, empty when the
	// frontier drained
	StopReason string `json:"stopReason,omitempty"`
}

// Run audits the site behind seedURL. Seed resolution failures are fatal;
// everything after that degrades per page. On cancellation the partial
// result is returned alongside the context error.
func (a *Auditor) Run(ctx context.Context, seedURL string) (*AuditResult, error) {
	if seedURL == "" {
		return nil, ErrMissingSeedURL
	}
	started := time.Now()

	fetcher := NewFetcher(a.cfg.UserAgent, a.cfg.FetchTimeout)
	fetcher.SetLogger(a.log)
	fetcher.SetHashAlgorithm(a.cfg.HashAlgorithm)
	if a.transport != nil {
		fetcher.SetTransport(a.transport)
	}

	cctx, finalURL, chain, err := ResolveCrawlContext(ctx, fetcher, seedURL)
	if err != nil {
		return nil, err
	}
	a.log.Info("crawl context resolved", "seed", finalURL,
		"host", cctx.PreferredHost, "rootDomain", cctx.RootDomain,
		"redirects", len(chain))

	var source PageSource
	if a.cfg.RenderEnabled {
		driver := a.driver
		if driver == nil {
			driver = NewChromedpDriver(a.cfg.UserAgent)
		}
		session := NewSessionManager(driver, a.cfg.Session, a.log)
		defer session.Close()
		source = NewRenderer(session, fetcher, a.cfg.Renderer, a.log)
	} else {
		source = fetchSource{fetcher: fetcher}
	}

	var robots *RobotsGuard
	if a.cfg.RespectRobots {
		robots = NewRobotsGuard(fetcher, a.cfg.UserAgent, a.log)
	}

	analyzers := a.analyzers
	if analyzers == nil {
		analyzers = DefaultAnalyzers()
	}
	cons := NewConsolidator()

	sched, err := NewScheduler(source, fetcher, cctx, a.cfg, robots, cons, analyzers, a.log)
	if err != nil {
		return nil, err
	}

	var sitemapURLs []string
	if a.cfg.UseSitemap {
		sitemapURLs = FetchSitemapURLs(ctx, fetcher, cctx, a.log)
		a.log.Debug("sitemap seeding", "urls", len(sitemapURLs))
	}
	sched.Seed(finalURL, sitemapURLs)

	pages, runErr := sched.Run(ctx)

	issues := cons.Finalize()
	result := &AuditResult{
		SeedURL:          finalURL,
		RedirectChain:    chain,
		Context:          cctx,
		Pages:            pages,
		Issues:           issues,
		IssuesByCategory: ByCategory(issues),
		StartedAt:        started,
		Duration:         time.Since(started),
		StopReason:       sched.StopReason,
	}
	a.log.Info("audit finished", "pages", len(pages), "issues", len(issues),
		"duration", result.Duration, "stopReason", result.StopReason)
	return result, runErr
}
