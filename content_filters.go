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

// content_filters.go holds the noise filters run before main-content text
// extraction. They strip chrome (navigation, footers, share widgets) so the
// duplicate-content hash and thin-content checks score real content only.

package siteaudit

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ContentFilter modifies a document in place and returns it for chaining.
type ContentFilter interface {
	Filter(doc *goquery.Document) *goquery.Document
	// Name identifies the filter in debug logs
	Name() string
}

// FilterChain applies filters in sequence.
type FilterChain struct {
	filters []ContentFilter
}

// NewFilterChain creates a chain over the given filters.
func NewFilterChain(filters ...ContentFilter) *FilterChain {
	return &FilterChain{filters: filters}
}

// Apply runs every filter in order.
func (fc *FilterChain) Apply(doc *goquery.Document) *goquery.Document {
	for _, f := range fc.filters {
		doc = f.Filter(doc)
	}
	return doc
}

// Add appends a filter to the chain.
func (fc *FilterChain) Add(f ContentFilter) *FilterChain {
	fc.filters = append(fc.filters, f)
	return fc
}

// noisePatterns match class/id attributes of elements that are rarely real
// content: page chrome, social widgets, ads, cookie banners.
var noisePatterns = regexp.MustCompile(`(?i)` +
	`[Ff]ooter|` +
	`^side$|` +
	`^side_|` +
	`^widget$|` +
	`[_-]ads?[_-]?|` +
	`^ad[s]?[ _-]|` +
	`^banner|` +
	`breadcrumbs|` +
	`byline|` +
	`^caption$|` +
	`carousel|` +
	`comment|` +
	`contact|` +
	`cookie|` +
	`^date$|` +
	`facebook|` +
	`figcaption|` +
	`footnote|` +
	`foot|` +
	`header|` +
	`hidden|` +
	`menu|` +
	`menucontainer|` +
	`[Nn]avigation|` +
	`navbar|` +
	`^nav[_-]|` +
	`popup|` +
	`recommend|` +
	`related|` +
	`rss|` +
	`search[_-]|` +
	`share[_-]|` +
	`sidebar|` +
	`social|` +
	`sponsor|` +
	`subscribe|` +
	`subscription|` +
	`tags|` +
	`teaser|` +
	`timestamp|` +
	`tools|` +
	`tooltip|` +
	`twitter|` +
	`newsletter|` +
	`follow|` +
	`signin|` +
	`sign-in|` +
	`account|` +
	`settings`)

// keepPatterns protect likely-content containers from removal even when a
// noise pattern also matches.
var keepPatterns = regexp.MustCompile(`(?i)` +
	`\barticle\b|` +
	`\bcontent\b|` +
	`\bstory\b|` +
	`\bpost\b|` +
	`\bentry\b|` +
	`\bmain\b|` +
	`\bbody\b`)

// NoisePatternFilter removes elements whose class or id matches a known
// non-content pattern.
type NoisePatternFilter struct{}

func NewNoisePatternFilter() *NoisePatternFilter {
	return &NoisePatternFilter{}
}

func (f *NoisePatternFilter) Name() string {
	return "NoisePatternFilter"
}

func (f *NoisePatternFilter) Filter(doc *goquery.Document) *goquery.Document {
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		class, hasClass := s.Attr("class")
		id, hasID := s.Attr("id")

		if hasClass && keepPatterns.MatchString(class) {
			return
		}
		if hasID && keepPatterns.MatchString(id) {
			return
		}
		if hasClass && noisePatterns.MatchString(class) {
			s.Remove()
			return
		}
		if hasID && noisePatterns.MatchString(id) {
			s.Remove()
		}
	})
	return doc
}

// navigationTextPhrases are short texts that mark an element as chrome, not
// content.
var navigationTextPhrases = []string{
	"sign in", "sign out", "subscribe", "newsletter", "my account",
	"settings", "edition", "watch", "listen", "more", "about",
	"terms of use", "privacy policy", "ad choices", "help center",
	"close", "submit", "cancel", "feedback",
	"tweet", "email", "link copied", "see all topics",
	"updated", "published", "min read",
}

// NavigationTextFilter removes short elements whose text is a known
// navigation phrase.
type NavigationTextFilter struct {
	maxTextLength int
}

func NewNavigationTextFilter() *NavigationTextFilter {
	return &NavigationTextFilter{maxTextLength: 100}
}

func (f *NavigationTextFilter) Name() string {
	return "NavigationTextFilter"
}

func (f *NavigationTextFilter) Filter(doc *goquery.Document) *goquery.Document {
	doc.Find("div, span, li, ul").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) == 0 || len(text) >= f.maxTextLength {
			return
		}
		lower := strings.ToLower(text)
		for _, phrase := range navigationTextPhrases {
			if strings.Contains(lower, phrase) {
				s.Remove()
				return
			}
		}
	})
	return doc
}

// LinkDensityFilter removes elements where most of the text sits inside
// links, which usually means a menu or a link list.
type LinkDensityFilter struct {
	// MaxLinkRatio is the link-word to total-word ratio above which the
	// element is removed
	MaxLinkRatio float64
	// MinLinks is the minimum link count before density is considered
	MinLinks int
}

func NewLinkDensityFilter() *LinkDensityFilter {
	return &LinkDensityFilter{
		MaxLinkRatio: 0.5,
		MinLinks:     3,
	}
}

func (f *LinkDensityFilter) Name() string {
	return "LinkDensityFilter"
}

func (f *LinkDensityFilter) Filter(doc *goquery.Document) *goquery.Document {
	doc.Find("div, section, aside, ul, ol").Each(func(i int, s *goquery.Selection) {
		if f.isHighLinkDensity(s) {
			s.Remove()
		}
	})
	return doc
}

func (f *LinkDensityFilter) isHighLinkDensity(node *goquery.Selection) bool {
	links := node.Find("a")
	if links.Length() < f.MinLinks {
		return false
	}

	words := strings.Fields(node.Text())
	if len(words) == 0 {
		return true
	}

	var linkText strings.Builder
	links.Each(func(i int, s *goquery.Selection) {
		linkText.WriteString(s.Text())
		linkText.WriteString(" ")
	})
	linkWords := len(strings.Fields(linkText.String()))

	ratio := float64(linkWords) / float64(len(words))
	if ratio > f.MaxLinkRatio {
		return true
	}
	return links.Length() > 5 && ratio > 0.3
}

// englishStopwords is the common-word table used for content scoring and
// keyword filtering.
var englishStopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"against": true, "all": true, "also": true, "am": true, "an": true,
	"and": true, "another": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "because": true, "been": true, "before": true,
	"being": true, "below": true, "between": true, "both": true, "but": true,
	"by": true, "can": true, "could": true, "did": true, "do": true,
	"does": true, "doing": true, "down": true, "during": true, "each": true,
	"even": true, "few": true, "for": true, "from": true, "further": true,
	"get": true, "had": true, "has": true, "have": true, "having": true,
	"he": true, "her": true, "here": true, "hers": true, "herself": true,
	"him": true, "himself": true, "his": true, "how": true, "i": true,
	"if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "itself": true, "just": true, "like": true, "make": true,
	"many": true, "me": true, "might": true, "more": true, "most": true,
	"much": true, "must": true, "my": true, "myself": true, "never": true,
	"no": true, "nor": true, "not": true, "now": true, "of": true,
	"off": true, "on": true, "once": true, "only": true, "or": true,
	"other": true, "our": true, "ours": true, "ourselves": true, "out": true,
	"over": true, "own": true, "said": true, "same": true, "she": true,
	"should": true, "so": true, "some": true, "still": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "theirs": true,
	"them": true, "themselves": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "through": true, "to": true,
	"too": true, "under": true, "until": true, "up": true, "upon": true,
	"us": true, "very": true, "was": true, "we": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"who": true, "whom": true, "why": true, "will": true, "with": true,
	"would": true, "you": true, "your": true, "yours": true, "yourself": true,
	"yourselves": true,
}

// StopwordsScorer scores text by stopword presence; real prose has many,
// navigation labels have few.
type StopwordsScorer struct {
	stopwords map[string]bool
}

func NewStopwordsScorer() *StopwordsScorer {
	return &StopwordsScorer{stopwords: englishStopwords}
}

// CountStopwords returns the number of stopwords in text.
func (s *StopwordsScorer) CountStopwords(text string) int {
	if text == "" {
		return 0
	}
	count := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}—–-")
		if s.stopwords[word] {
			count++
		}
	}
	return count
}

// ScoreText combines stopword count with a length bonus.
func (s *StopwordsScorer) ScoreText(text string) int {
	score := s.CountStopwords(text)
	if len(text) > 100 {
		score += len(text) / 100
	}
	return score
}
