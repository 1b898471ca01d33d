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

import "time"

// Config holds every tunable of an audit run. Zero values mean "use the
// default"; callers set only what they care about.
type Config struct {
	// UserAgent identifies the crawler in requests and robots.txt matching
	UserAgent string
	// MaxPages caps how many pages the crawl records
	MaxPages int
	// MaxDepth caps link distance from the seed (seed = 0)
	MaxDepth int
	// MaxDuration caps the wall-clock time of the whole crawl
	MaxDuration time.Duration
	// MaxLinksPerPage caps how many links a single page may enqueue
	MaxLinksPerPage int
	// RequestDelay is the minimum spacing between page loads
	RequestDelay time.Duration
	// FetchTimeout bounds each plain HTTP request
	FetchTimeout time.Duration
	// RenderEnabled turns the browser pipeline on; off means every page
	// goes through the static fallback
	RenderEnabled bool
	// UseSitemap seeds the frontier from the site's sitemap
	UseSitemap bool
	// RespectRobots enables robots.txt filtering
	RespectRobots bool
	// ExcludePatterns are glob patterns of URLs to skip
	ExcludePatterns []string
	// HashAlgorithm selects the content hash ("xxhash", "md5", "sha256")
	HashAlgorithm string

	// Session tunes the browser session manager
	Session SessionConfig
	// Renderer tunes the render protocol
	Renderer RendererConfig
}

// DefaultConfig returns a ready-to-use configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent:       "siteaudit/1.0",
		MaxPages:        200,
		MaxDepth:        5,
		MaxDuration:     15 * time.Minute,
		MaxLinksPerPage: 200,
		RequestDelay:    200 * time.Millisecond,
		FetchTimeout:    10 * time.Second,
		RenderEnabled:   true,
		UseSitemap:      true,
		RespectRobots:   true,
		HashAlgorithm:   "xxhash",
		Session:         DefaultSessionConfig(),
		Renderer:        DefaultRendererConfig(),
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.MaxPages <= 0 {
		c.MaxPages = def.MaxPages
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = def.MaxDuration
	}
	if c.MaxLinksPerPage <= 0 {
		c.MaxLinksPerPage = def.MaxLinksPerPage
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = def.RequestDelay
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = def.HashAlgorithm
	}
	if c.Session == (SessionConfig{}) {
		c.Session = def.Session
	}
	if c.Renderer == (RendererConfig{}) {
		c.Renderer = def.Renderer
	}
	return c
}
