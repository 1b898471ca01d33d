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
	"regexp"
	"sort"
	"strings"

	"github.com/kennygrant/sanitize"
)

// Severity ranks how much an issue matters.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Category groups issues by the aspect of the site they concern.
type Category string

const (
	CategoryMetadata       Category = "metadata"
	CategoryContent        Category = "content"
	CategoryPerformance    Category = "performance"
	CategoryIndexability   Category = "indexability"
	CategoryStructuredData Category = "structured-data"
	CategoryAvailability   Category = "availability"
)

// Finding is one per-page observation produced by an analyzer. Findings
// are raw material; the consolidator folds them into site-level issues.
type Finding struct {
	// Category is the aspect of the site the finding concerns
	Category Category `json:"category"`
	// Severity is the finding's weight
	Severity Severity `json:"severity"`
	// Message is the human-readable description
	Message string `json:"message"`
	// URL is the page the finding was observed on
	URL string `json:"url"`
	// Detail carries finding-specific context, possibly empty
	Detail string `json:"detail,omitempty"`
}

// Issue is a consolidated site-level problem: one message, every page it
// was observed on.
type Issue struct {
	// Category is the issue's category
	Category Category `json:"category"`
	// Severity is the highest severity among the folded findings
	Severity Severity `json:"severity"`
	// Message is the message of the first finding folded in
	Message string `json:"message"`
	// Detail is the detail text of the first folded finding that carried one
	Detail string `json:"detail,omitempty"`
	// Pages lists affected pages in first-seen order, deduplicated
	Pages []string `json:"pages"`
}

// Count returns how many pages the issue affects.
func (i *Issue) Count() int {
	return len(i.Pages)
}

// Consolidator folds per-page findings into site-level issues. Two
// findings belong to the same issue when category and normalized message
// match; phrasing variants of the same complaint must not split into
// separate issues.
type Consolidator struct {
	issues map[string]*consolidatedIssue
	order  []string
}

type consolidatedIssue struct {
	issue Issue
	pages map[string]bool
}

// NewConsolidator creates an empty consolidator.
func NewConsolidator() *Consolidator {
	return &Consolidator{issues: make(map[string]*consolidatedIssue)}
}

// Add folds one finding in. Adding the same page to the same issue twice
// is a no-op, so re-running an analyzer over a page cannot inflate counts.
func (c *Consolidator) Add(f Finding) {
	key := string(f.Category) + "\x00" + normalizeMessage(f.Message)
	entry, ok := c.issues[key]
	if !ok {
		entry = &consolidatedIssue{
			issue: Issue{
				Category: f.Category,
				Severity: f.Severity,
				Message:  f.Message,
				Detail:   f.Detail,
			},
			pages: make(map[string]bool),
		}
		c.issues[key] = entry
		c.order = append(c.order, key)
	}
	if f.Severity > entry.issue.Severity {
		entry.issue.Severity = f.Severity
	}
	if entry.issue.Detail == "" {
		entry.issue.Detail = f.Detail
	}
	if f.URL != "" && !entry.pages[f.URL] {
		entry.pages[f.URL] = true
		entry.issue.Pages = append(entry.issue.Pages, f.URL)
	}
}

// AddAll folds a batch of findings in.
func (c *Consolidator) AddAll(findings []Finding) {
	for _, f := range findings {
		c.Add(f)
	}
}

// Finalize returns the consolidated issues ordered by severity (highest
// first), ties broken by first-seen order. The ordering is deterministic
// for identical input.
func (c *Consolidator) Finalize() []Issue {
	out := make([]Issue, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.issues[key].issue)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity > out[j].Severity
	})
	return out
}

// ByCategory groups finalized issues by category, preserving the Finalize
// ordering within each group.
func ByCategory(issues []Issue) map[Category][]Issue {
	grouped := make(map[Category][]Issue)
	for _, issue := range issues {
		grouped[issue.Category] = append(grouped[issue.Category], issue)
	}
	return grouped
}

var digitRuns = regexp.MustCompile(`\d+`)

// messageFillerWords are dropped during normalization so phrasings like
// "Title tag too short" and "Page title too short" land in the same issue.
var messageFillerWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"tag": true, "page": true, "this": true, "your": true, "has": true,
	"have": true, "was": true, "were": true, "it": true, "its": true,
}

// normalizeMessage produces the equivalence key component for a finding
// message: accents folded, lowercased, digits collapsed, punctuation
// stripped, filler words removed.
func normalizeMessage(msg string) string {
	msg = strings.ToLower(sanitize.Accents(msg))
	msg = digitRuns.ReplaceAllString(msg, "#")

	var b strings.Builder
	for _, r := range msg {
		switch {
		case r >= 'a' && r <= 'z', r == '#', r == ' ', r == '\t', r == '\n':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	var kept []string
	for _, word := range strings.Fields(b.String()) {
		if messageFillerWords[word] {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}
