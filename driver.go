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

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Driver abstracts the headless-browser automation backend. The pipeline
// consumes exactly three operations: launching a browser process, opening a
// page, and evaluating an expression in-page. Every call must be treated as
// fallible and possibly hanging; callers attach their own deadlines.
type Driver interface {
	// Launch starts a browser process and returns a handle to it.
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser process handle.
type Browser interface {
	// NewPage opens a page (tab) in the browser.
	NewPage(ctx context.Context) (Page, error)
	// Disconnected is closed when the underlying process is gone. Events on
	// this channel can be transient artifacts of long in-page waits; the
	// session manager debounces them before declaring the session lost.
	Disconnected() <-chan struct{}
	// Close terminates the browser process. Idempotent.
	Close() error
}

// Page is a single page (tab) handle.
type Page interface {
	// Navigate loads url and waits for the initial document structure.
	// It does not wait for network idle; initial markup is sufficient and
	// bounds latency.
	Navigate(ctx context.Context, url string) error
	// Evaluate runs a JavaScript expression in-page and unmarshals its
	// result into out (out may be nil to discard the result). Expressions
	// returning a promise resolve before the call returns.
	Evaluate(ctx context.Context, expr string, out any) error
	// Close closes the page. Idempotent.
	Close() error
}

// ChromedpDriver is the chromedp-backed Driver used outside of tests.
type ChromedpDriver struct {
	// UserAgent overrides the browser's user agent when non-empty.
	UserAgent string
	// Headless runs the browser without a display. Default true via
	// NewChromedpDriver.
	Headless bool
}

// NewChromedpDriver returns a headless chromedp driver.
func NewChromedpDriver(userAgent string) *ChromedpDriver {
	return &ChromedpDriver{UserAgent: userAgent, Headless: true}
}

// Launch starts a Chrome process through a fresh exec allocator.
func (d *ChromedpDriver) Launch(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if d.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Materialize the process now so launch failures surface here rather
	// than on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	return &chromedpBrowser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
	}, nil
}

type chromedpBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func (b *chromedpBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.ctx)
	p := &chromedpPage{ctx: tabCtx, cancel: tabCancel}
	if err := p.run(ctx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		return nil, err
	}
	return p, nil
}

func (b *chromedpBrowser) Disconnected() <-chan struct{} {
	return b.ctx.Done()
}

func (b *chromedpBrowser) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes chromedp actions against the tab, honoring the caller's
// deadline and cancellation on top of the tab's own lifetime.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dlCancel context.CancelFunc
		runCtx, dlCancel = context.WithDeadline(runCtx, deadline)
		defer dlCancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromedpPage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *chromedpPage) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expr, out,
		func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
			return params.WithAwaitPromise(true)
		}))
}

func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}
