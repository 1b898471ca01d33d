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
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGuard answers robots.txt allow/deny questions for the crawl. Each
// host's robots.txt is fetched once and cached; a host whose robots.txt
// cannot be fetched or parsed is treated as allow-all.
type RobotsGuard struct {
	fetcher   *Fetcher
	userAgent string
	log       *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

// NewRobotsGuard creates a guard that fetches robots.txt with the given
// fetcher and matches rules against userAgent.
func NewRobotsGuard(fetcher *Fetcher, userAgent string, log *slog.Logger) *RobotsGuard {
	if log == nil {
		log = slog.Default()
	}
	return &RobotsGuard{
		fetcher:   fetcher,
		userAgent: userAgent,
		log:       log,
		hosts:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the crawl may fetch the given URL.
func (g *RobotsGuard) Allowed(ctx context.Context, rawURL string) bool {
	host := HostOf(rawURL)
	if host == "" {
		return false
	}
	data := g.robotsFor(ctx, host, SchemeOf(rawURL))
	if data == nil {
		return true
	}
	return data.TestAgent(pathOf(rawURL), g.userAgent)
}

// robotsFor returns the cached robots data for a host, fetching on first
// use. A nil return means allow-all.
func (g *RobotsGuard) robotsFor(ctx context.Context, host, scheme string) *robotstxt.RobotsData {
	g.mu.Lock()
	data, ok := g.hosts[host]
	g.mu.Unlock()
	if ok {
		return data
	}

	if scheme == "" {
		scheme = "https"
	}
	robotsURL := scheme + "://" + host + "/robots.txt"

	var fetched *robotstxt.RobotsData
	result, err := g.fetcher.get(ctx, robotsURL)
	if err != nil {
		g.log.Debug("robots.txt fetch failed, allowing all", "host", host, "error", err)
	} else {
		parsed, err := robotstxt.FromStatusAndBytes(result.Status, result.Body)
		if err != nil {
			g.log.Debug("robots.txt parse failed, allowing all", "host", host, "error", err)
		} else {
			fetched = parsed
		}
	}

	g.mu.Lock()
	g.hosts[host] = fetched
	g.mu.Unlock()
	return fetched
}
