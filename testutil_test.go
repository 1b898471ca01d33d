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
	"io"
	"log/slog"
	"sync"
	"time"
)

// testLogger returns a logger that discards everything.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setOut writes a value into an Evaluate output argument the way the real
// driver does: through a JSON round trip.
func setOut(out any, v any) error {
	if out == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// fakePage is an in-memory Page. Its Evaluate understands the expressions
// the renderer and the session manager actually send.
type fakePage struct {
	mu          sync.Mutex
	navigations []string
	closed      bool

	html         string
	title        string
	dom          domExtract
	metrics      domMetrics
	scrollHeight int

	navErr    error
	resetErr  error
	probeFail bool
	// evalHook, when set, intercepts every evaluation
	evalHook func(expr string, out any) (handled bool, err error)
}

func newFakePage() *fakePage {
	return &fakePage{scrollHeight: 100}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	if url == "about:blank" {
		return p.resetErr
	}
	return p.navErr
}

func (p *fakePage) Evaluate(ctx context.Context, expr string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.evalHook != nil {
		if handled, err := p.evalHook(expr, out); handled {
			return err
		}
	}

	switch expr {
	case "1+1":
		if p.probeFail {
			return errors.New("evaluation failed")
		}
		return setOut(out, 2)
	case installMetricsJS, scrollTopJS:
		return setOut(out, true)
	case expandJS:
		return setOut(out, p.scrollHeight)
	case renderedMarkupJS:
		return setOut(out, p.html)
	case extractDOMJS:
		return setOut(out, p.dom)
	case collectMetricsJS:
		return setOut(out, p.metrics)
	case titleJS:
		return setOut(out, p.title)
	}
	return setOut(out, nil)
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) navigatedTo() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// fakeBrowser hands out one fakePage and can simulate a dropped process.
type fakeBrowser struct {
	page *fakePage

	mu           sync.Mutex
	closed       bool
	dropped      bool
	disconnected chan struct{}
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		page:         newFakePage(),
		disconnected: make(chan struct{}),
	}
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.page, nil
}

func (b *fakeBrowser) Disconnected() <-chan struct{} {
	return b.disconnected
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// dropConnection fires the disconnect signal once.
func (b *fakeBrowser) dropConnection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dropped {
		b.dropped = true
		close(b.disconnected)
	}
}

// fakeDriver launches fakeBrowsers, optionally failing the first few
// attempts.
type fakeDriver struct {
	mu        sync.Mutex
	launches  int
	failFirst int
	// setupPage customizes each new browser's page before use
	setupPage func(p *fakePage)
	browsers  []*fakeBrowser
}

func (d *fakeDriver) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.launches++
	if d.launches <= d.failFirst {
		return nil, errors.New("browser failed to start")
	}
	b := newFakeBrowser()
	if d.setupPage != nil {
		d.setupPage(b.page)
	}
	d.browsers = append(d.browsers, b)
	return b, nil
}

func (d *fakeDriver) launchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

func (d *fakeDriver) lastBrowser() *fakeBrowser {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.browsers) == 0 {
		return nil
	}
	return d.browsers[len(d.browsers)-1]
}

// fastSessionConfig keeps session tests quick.
func fastSessionConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.LaunchBackoff = time.Millisecond
	cfg.DisconnectDebounce = 10 * time.Millisecond
	return cfg
}

// fastRendererConfig keeps render tests quick.
func fastRendererConfig() RendererConfig {
	cfg := DefaultRendererConfig()
	cfg.SettleDelay = time.Millisecond
	cfg.ScrollDelay = time.Millisecond
	cfg.TitlePollInterval = time.Millisecond
	cfg.RetryBackoff = time.Millisecond
	return cfg
}
