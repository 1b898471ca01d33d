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
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
)

// ContentHashConfig controls how markup is normalized before hashing for
// duplicate detection. Dynamic fragments (timestamps, tokens, tracking
// code) must be stripped or every page hashes unique.
type ContentHashConfig struct {
	// ExcludeTags are removed before hashing
	ExcludeTags []string
	// IncludeOnlyTags, when set, restricts hashing to these tags
	IncludeOnlyTags []string
	// StripTimestamps replaces absolute and relative timestamps
	StripTimestamps bool
	// StripAnalytics removes tracking snippets
	StripAnalytics bool
	// StripComments removes HTML comments
	StripComments bool
	// CollapseWhitespace folds whitespace runs into single spaces
	CollapseWhitespace bool
}

// DefaultContentHashConfig returns the normalization defaults.
func DefaultContentHashConfig() *ContentHashConfig {
	return &ContentHashConfig{
		ExcludeTags:        []string{"script", "style", "nav", "footer"},
		StripTimestamps:    true,
		StripAnalytics:     true,
		StripComments:      true,
		CollapseWhitespace: true,
	}
}

var (
	timestampPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`),
		regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}(?::\d{2})? (?:AM|PM)`),
		regexp.MustCompile(`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},?\s+\d{4}\s+\d{1,2}:\d{2}`),
	}

	relativeTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s+(?:second|minute|hour|day|week|month|year)s?\s+ago`),
		regexp.MustCompile(`(?:just\s+now|moments?\s+ago)`),
	}

	sessionIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:session|request|trace)[-_]?id[:=]\s*["']?[a-f0-9-]{8,}["']?`),
		regexp.MustCompile(`(?i)csrf[-_]?token[:=]\s*["']?[a-zA-Z0-9+/=]{16,}["']?`),
		regexp.MustCompile(`(?i)_token["']?\s*[:=]\s*["']?[a-zA-Z0-9+/=]{16,}["']?`),
	}

	analyticsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)google-analytics\.com/(?:analytics|ga)\.js`),
		regexp.MustCompile(`(?i)googletagmanager\.com/gtag/js`),
		regexp.MustCompile(`(?i)www\.google-analytics\.com/collect\?[^\s<>"']+`),
		regexp.MustCompile(`(?i)gtag\s*\([^)]+\)`),
		regexp.MustCompile(`(?i)ga\s*\([^)]+\)`),
		regexp.MustCompile(`(?i)_gaq\.push\([^)]+\)`),
		regexp.MustCompile(`(?i)fbq\s*\([^)]+\)`),
		regexp.MustCompile(`(?i)pixel\.gif\?[^\s<>"']+`),
	}

	versionParamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\?v=[a-f0-9]+`),
		regexp.MustCompile(`\?ver=[a-f0-9]+`),
		regexp.MustCompile(`\?_=[0-9]+`),
		regexp.MustCompile(`\?t=[0-9]+`),
	}

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeContent strips dynamic elements from markup so two fetches of
// the same logical content hash equal.
func NormalizeContent(html []byte, config *ContentHashConfig) ([]byte, error) {
	if config == nil {
		config = DefaultContentHashConfig()
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if len(config.IncludeOnlyTags) > 0 {
		doc = extractOnlyTags(doc, config.IncludeOnlyTags)
	}
	for _, tag := range config.ExcludeTags {
		doc.Find(tag).Remove()
	}

	content, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}
	out := []byte(content)

	if config.StripComments {
		out = stripHTMLComments(out)
	}
	if config.StripTimestamps {
		out = stripTimestamps(out)
	}
	if config.StripAnalytics {
		out = stripAnalytics(out)
	}
	out = stripSessionIDs(out)
	out = stripVersionParams(out)
	if config.CollapseWhitespace {
		out = collapseWhitespace(out)
	}
	return out, nil
}

// extractOnlyTags builds a document containing only the selected tags.
func extractOnlyTags(doc *goquery.Document, tags []string) *goquery.Document {
	extracted := doc.Find(strings.Join(tags, ", "))

	newDoc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	body := newDoc.Find("body")
	extracted.Each(func(i int, s *goquery.Selection) {
		body.AppendSelection(s)
	})
	return newDoc
}

var commentPattern = regexp.MustCompile(`<!--[\s\S]*?-->`)

func stripHTMLComments(content []byte) []byte {
	return commentPattern.ReplaceAll(content, []byte(""))
}

func stripTimestamps(content []byte) []byte {
	for _, pattern := range timestampPatterns {
		content = pattern.ReplaceAll(content, []byte("[TIMESTAMP]"))
	}
	for _, pattern := range relativeTimePatterns {
		content = pattern.ReplaceAll(content, []byte("[RELATIVE_TIME]"))
	}
	return content
}

func stripAnalytics(content []byte) []byte {
	for _, pattern := range analyticsPatterns {
		content = pattern.ReplaceAll(content, []byte(""))
	}
	return content
}

func stripSessionIDs(content []byte) []byte {
	for _, pattern := range sessionIDPatterns {
		content = pattern.ReplaceAll(content, []byte(""))
	}
	return content
}

func stripVersionParams(content []byte) []byte {
	for _, pattern := range versionParamPatterns {
		content = pattern.ReplaceAll(content, []byte(""))
	}
	return content
}

func collapseWhitespace(content []byte) []byte {
	return whitespacePattern.ReplaceAll(bytes.TrimSpace(content), []byte(" "))
}

// ComputeContentHash hashes normalized content with the given algorithm.
// xxhash is the default; md5 and sha256 exist for stored results that must
// survive tool changes.
func ComputeContentHash(content []byte, algorithm string) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("content is empty")
	}

	switch strings.ToLower(algorithm) {
	case "xxhash", "":
		return fmt.Sprintf("%016x", xxhash.Sum64(content)), nil
	case "md5":
		sum := md5.Sum(content)
		return hex.EncodeToString(sum[:]), nil
	case "sha256":
		sum := sha256.Sum256(content)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s (supported: xxhash, md5, sha256)", algorithm)
	}
}

// ComputeContentHashWithConfig normalizes markup and hashes it in one step.
func ComputeContentHashWithConfig(html []byte, algorithm string, config *ContentHashConfig) (string, error) {
	normalized, err := NormalizeContent(html, config)
	if err != nil {
		return "", fmt.Errorf("failed to normalize content: %w", err)
	}
	hash, err := ComputeContentHash(normalized, algorithm)
	if err != nil {
		return "", fmt.Errorf("failed to compute hash: %w", err)
	}
	return hash, nil
}
