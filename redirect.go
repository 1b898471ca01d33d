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
	"io"
	"net/http"
)

const maxRedirects = 10

// FollowRedirects issues a lightweight request to rawURL and follows HTTP
// redirects manually, capturing every intermediate hop. It returns the
// terminal URL and the full chain. Response bodies are discarded; only the
// chain matters.
func (f *Fetcher) FollowRedirects(ctx context.Context, rawURL string) (finalURL string, chain []RedirectHop, err error) {
	// A dedicated client that never follows redirects on its own, so every
	// hop is observed.
	client := &http.Client{
		Transport: f.client.Transport,
		Timeout:   f.client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	current := rawURL
	for i := 0; i < maxRedirects; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return "", chain, err
		}
		req.Header.Set("User-Agent", f.userAgent)

		res, err := client.Do(req)
		if err != nil {
			return "", chain, err
		}
		// Drain a little so the connection can be reused, then close.
		io.CopyN(io.Discard, res.Body, 512)
		res.Body.Close()

		location := res.Header.Get("Location")
		if res.StatusCode < 300 || res.StatusCode >= 400 || location == "" {
			return current, chain, nil
		}

		next, err := req.URL.Parse(location)
		if err != nil {
			return "", chain, err
		}
		chain = append(chain, RedirectHop{
			URL:      current,
			Status:   res.StatusCode,
			Location: location,
		})
		current = next.String()
	}
	return "", chain, ErrTooManyRedirects
}

// ResolveCrawlContext resolves the seed URL's redirect chain and derives the
// CrawlContext that governs every same-domain decision for the crawl. Any
// failure here is fatal to the whole crawl.
func ResolveCrawlContext(ctx context.Context, f *Fetcher, seedURL string) (*CrawlContext, string, []RedirectHop, error) {
	if seedURL == "" {
		return nil, "", nil, &SeedResolutionError{URL: seedURL, Err: ErrMissingSeedURL}
	}

	finalURL, chain, err := f.FollowRedirects(ctx, seedURL)
	if err != nil {
		return nil, "", chain, &SeedResolutionError{URL: seedURL, Err: err}
	}

	host := HostOf(finalURL)
	scheme := SchemeOf(finalURL)
	if host == "" || scheme == "" {
		return nil, "", chain, &SeedResolutionError{URL: seedURL, Err: ErrMissingSeedURL}
	}

	return &CrawlContext{
		PreferredHost:   host,
		PreferredScheme: scheme,
		RootDomain:      ResolveRootDomain(host),
	}, Normalize(finalURL), chain, nil
}
