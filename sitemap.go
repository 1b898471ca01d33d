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
	"context"
	"log/slog"
	"strings"

	"github.com/antchfx/xmlquery"
)

// sitemapMaxURLs caps how many sitemap URLs are handed to the frontier.
const sitemapMaxURLs = 5000

// FetchSitemapURLs collects page URLs from the site's sitemap. Both
// /sitemap.xml and /sitemap_index.xml are tried; sitemap indexes are
// followed one level deep. Failures are logged and return an empty slice,
// never an error: a missing sitemap is normal.
func FetchSitemapURLs(ctx context.Context, fetcher *Fetcher, cctx *CrawlContext, log *slog.Logger) []string {
	if log == nil {
		log = slog.Default()
	}
	base := cctx.PreferredScheme + "://" + cctx.PreferredHost

	var urls []string
	seen := make(map[string]bool)
	for _, candidate := range []string{base + "/sitemap.xml", base + "/sitemap_index.xml"} {
		for _, u := range fetchSitemap(ctx, fetcher, candidate, true, log) {
			normalized := Normalize(u)
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			urls = append(urls, normalized)
			if len(urls) >= sitemapMaxURLs {
				return urls
			}
		}
	}
	return urls
}

// fetchSitemap parses one sitemap document. followIndex controls whether
// <sitemapindex> children are fetched; child sitemaps never recurse again.
func fetchSitemap(ctx context.Context, fetcher *Fetcher, sitemapURL string, followIndex bool, log *slog.Logger) []string {
	result, err := fetcher.get(ctx, sitemapURL)
	if err != nil || result.Status != 200 {
		log.Debug("sitemap not available", "url", sitemapURL, "error", err)
		return nil
	}
	if !strings.Contains(result.ContentType, "xml") && !bytes.Contains(result.Body[:min(len(result.Body), 256)], []byte("<")) {
		return nil
	}

	doc, err := xmlquery.Parse(bytes.NewReader(result.Body))
	if err != nil {
		log.Debug("sitemap parse failed", "url", sitemapURL, "error", err)
		return nil
	}

	var urls []string
	for _, node := range xmlquery.Find(doc, "//*[local-name()='urlset']/*[local-name()='url']/*[local-name()='loc']") {
		if loc := strings.TrimSpace(node.InnerText()); loc != "" {
			urls = append(urls, loc)
		}
	}

	if followIndex {
		for _, node := range xmlquery.Find(doc, "//*[local-name()='sitemapindex']/*[local-name()='sitemap']/*[local-name()='loc']") {
			child := strings.TrimSpace(node.InnerText())
			if child == "" {
				continue
			}
			urls = append(urls, fetchSitemap(ctx, fetcher, child, false, log)...)
			if len(urls) >= sitemapMaxURLs {
				break
			}
		}
	}
	return urls
}
