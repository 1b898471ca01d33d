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
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// defaultKeywordCount is how many keywords a page record carries.
const defaultKeywordCount = 10

// Filter chain applied before main-content extraction.
var defaultContentFilters = NewFilterChain(
	NewNoisePatternFilter(),
	NewNavigationTextFilter(),
	NewLinkDensityFilter(),
)

var defaultStopwordsScorer = NewStopwordsScorer()

// extractAllText returns all visible text of a markup body with whitespace
// collapsed. Navigation and boilerplate are included; this is the basis for
// the page word count.
func extractAllText(htmlBody []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return normalizeWhitespace(doc.Text())
}

// extractMainContentText returns the text of the page's main content area,
// excluding navigation, headers, footers and sidebars. Semantic elements
// win when present; otherwise a stopwords-based score picks the densest
// content node, with body as the last resort.
func extractMainContentText(htmlBody []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	doc = defaultContentFilters.Apply(doc)

	var content *goquery.Selection
	if article := doc.Find("article").First(); article.Length() > 0 {
		content = article
	} else if main := doc.Find("main").First(); main.Length() > 0 {
		content = main
	} else if roleMain := doc.Find("[role='main']").First(); roleMain.Length() > 0 {
		content = roleMain
	}
	if content == nil {
		content = findBestContentNode(doc)
	}
	if content == nil || content.Length() == 0 {
		content = doc.Find("body")
	}
	if content == nil || content.Length() == 0 {
		return ""
	}
	return normalizeWhitespace(content.Text())
}

// findBestContentNode scores paragraph-like elements by stopword presence
// and propagates scores upward, gravity style, so the common parent of the
// real content wins.
func findBestContentNode(doc *goquery.Document) *goquery.Selection {
	parentScores := make(map[*goquery.Selection]int)
	linkDensity := NewLinkDensityFilter()

	doc.Find("p, pre, td").Each(func(i int, s *goquery.Selection) {
		text := s.Text()
		if defaultStopwordsScorer.CountStopwords(text) < 2 {
			return
		}
		if linkDensity.isHighLinkDensity(s) {
			return
		}
		score := defaultStopwordsScorer.ScoreText(text)
		parent := s.Parent()
		if parent.Length() > 0 {
			parentScores[parent] += score
		}
		grandparent := parent.Parent()
		if grandparent.Length() > 0 {
			parentScores[grandparent] += score / 2
		}
	})

	var best *goquery.Selection
	bestScore := 0
	for node, score := range parentScores {
		if score > bestScore {
			bestScore = score
			best = node
		}
	}
	return best
}

// ExtractKeywords returns the n most frequent content words of a text,
// stopwords and short tokens excluded. Frequency ties resolve by first
// occurrence, keeping the output stable for identical input.
func ExtractKeywords(text string, n int) []string {
	if n <= 0 {
		n = defaultKeywordCount
	}
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	next := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}|/\\—–-")
		if len(word) < 3 || englishStopwords[word] || !containsLetter(word) {
			continue
		}
		if _, seen := counts[word]; !seen {
			firstSeen[word] = next
			next++
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

func containsLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) != -1
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
