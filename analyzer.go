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
	"fmt"
	"strings"
)

// Analyzer inspects one page record and reports findings. Analyzers never
// mutate the record.
type Analyzer func(rec *PageRecord) []Finding

// Audit thresholds.
const (
	minTitleLength       = 30
	maxTitleLength       = 60
	minDescriptionLength = 50
	maxDescriptionLength = 160
	thinContentWords     = 250
	slowFCPMs            = 2500.0
	highLayoutShift      = 0.25
	moderateLayoutShift  = 0.1
	highBlockingTimeMs   = 300.0
	slowFetchMs          = 2000
	renderGrowthRatio    = 3.0
)

// DefaultAnalyzers returns the standard analyzer set.
func DefaultAnalyzers() []Analyzer {
	return []Analyzer{
		AnalyzeAvailability,
		AnalyzeTitle,
		AnalyzeMetaDescription,
		AnalyzeHeadings,
		AnalyzeImages,
		AnalyzeContent,
		AnalyzePerformance,
		AnalyzeIndexability,
		AnalyzeStructuredData,
	}
}

// isAuditableHTML reports whether a record is a successfully fetched HTML
// page. Content checks only apply to those.
func isAuditableHTML(rec *PageRecord) bool {
	return rec.Error == "" && rec.Status == 200 && strings.Contains(rec.ContentType, "text/html")
}

// AnalyzeAvailability flags pages that failed to load or answered with an
// error status.
func AnalyzeAvailability(rec *PageRecord) []Finding {
	if rec.Error != "" {
		return []Finding{{
			Category: CategoryAvailability,
			Severity: SeverityHigh,
			Message:  "Page failed to load",
			URL:      rec.URL,
			Detail:   rec.Error,
		}}
	}
	switch {
	case rec.Status >= 500:
		return []Finding{{
			Category: CategoryAvailability,
			Severity: SeverityHigh,
			Message:  "Server error",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("status %d", rec.Status),
		}}
	case rec.Status >= 400:
		return []Finding{{
			Category: CategoryAvailability,
			Severity: SeverityHigh,
			Message:  "Broken page",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("status %d", rec.Status),
		}}
	case rec.Status >= 300:
		return []Finding{{
			Category: CategoryAvailability,
			Severity: SeverityLow,
			Message:  "Page responds with a redirect",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("status %d", rec.Status),
		}}
	}
	return nil
}

// AnalyzeTitle checks title presence and length.
func AnalyzeTitle(rec *PageRecord) []Finding {
	if !isAuditableHTML(rec) {
		return nil
	}
	title := strings.TrimSpace(rec.Title)
	switch {
	case title == "":
		return []Finding{{
			Category: CategoryMetadata,
			Severity: SeverityHigh,
			Message:  "Missing title",
			URL:      rec.URL,
		}}
	case len(title) < minTitleLength:
		return []Finding{{
			Category: CategoryMetadata,
			Severity: SeverityMedium,
			Message:  "Title too short",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%d characters", len(title)),
		}}
	case len(title) > maxTitleLength:
		return []Finding{{
			Category: CategoryMetadata,
			Severity: SeverityLow,
			Message:  "Title too long",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%d characters", len(title)),
		}}
	}
	return nil
}

// AnalyzeMetaDescription checks meta description presence and length.
func AnalyzeMetaDescription(rec *PageRecord) []Finding {
	if !isAuditableHTML(rec) {
		return nil
	}
	desc := strings.TrimSpace(rec.MetaDescription)
	switch {
	case desc == "":
		return []Finding{{
			Category: CategoryMetadata,
			Severity: SeverityMedium,
			Message:  "Missing meta description",
			URL:      rec.URL,
		}}
	case len(desc) < minDescriptionLength:
		return []Finding{{
			Category: CategoryMetadata,
			Severity: SeverityLow,
			Message:  "Meta description too short",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%d characters", len(desc)),
		}}
	case len(desc) > maxDescriptionLength:
		return []Finding{{
			Category: CategoryMetadata,
			Severity: SeverityLow,
			Message:  "Meta description too long",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%d characters", len(desc)),
		}}
	}
	return nil
}

// AnalyzeHeadings checks the H1 structure.
func AnalyzeHeadings(rec *PageRecord) []Finding {
	if !isAuditableHTML(rec) {
		return nil
	}
	switch n := rec.H1Count(); {
	case n == 0:
		return []Finding{{
			Category: CategoryMetadata,
			Severity: SeverityMedium,
			Message:  "Missing H1 heading",
			URL:      rec.URL,
		}}
	case n > 1:
		return []Finding{{
			Category: CategoryMetadata,
			Severity: SeverityLow,
			Message:  "Multiple H1 headings",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%d h1 elements", n),
		}}
	}
	return nil
}

// AnalyzeImages flags images without alt text.
func AnalyzeImages(rec *PageRecord) []Finding {
	if !isAuditableHTML(rec) {
		return nil
	}
	var findings []Finding
	for _, img := range rec.Images {
		if strings.TrimSpace(img.Alt) == "" {
			findings = append(findings, Finding{
				Category: CategoryContent,
				Severity: SeverityMedium,
				Message:  "Image missing alt text",
				URL:      rec.URL,
				Detail:   img.URL,
			})
		}
	}
	return findings
}

// AnalyzeContent flags thin and duplicate content.
func AnalyzeContent(rec *PageRecord) []Finding {
	if !isAuditableHTML(rec) {
		return nil
	}
	var findings []Finding
	if rec.WordCount < thinContentWords {
		findings = append(findings, Finding{
			Category: CategoryContent,
			Severity: SeverityMedium,
			Message:  "Thin content",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%d words", rec.WordCount),
		})
	}
	if rec.DuplicateOf != "" {
		findings = append(findings, Finding{
			Category: CategoryContent,
			Severity: SeverityHigh,
			Message:  "Duplicate content",
			URL:      rec.URL,
			Detail:   "duplicate of " + rec.DuplicateOf,
		})
	}
	return findings
}

// AnalyzePerformance flags slow paint, layout instability, long blocking
// time and slow fetches. Paint metrics only exist on rendered records.
func AnalyzePerformance(rec *PageRecord) []Finding {
	if !isAuditableHTML(rec) {
		return nil
	}
	var findings []Finding
	if rec.Rendered && rec.Metrics.FirstContentfulPaintMs > slowFCPMs {
		findings = append(findings, Finding{
			Category: CategoryPerformance,
			Severity: SeverityMedium,
			Message:  "Slow first contentful paint",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%.0fms", rec.Metrics.FirstContentfulPaintMs),
		})
	}
	if rec.Rendered {
		switch cls := rec.Metrics.LayoutShift; {
		case cls > highLayoutShift:
			findings = append(findings, Finding{
				Category: CategoryPerformance,
				Severity: SeverityHigh,
				Message:  "Severe layout instability",
				URL:      rec.URL,
				Detail:   fmt.Sprintf("CLS %.3f", cls),
			})
		case cls > moderateLayoutShift:
			findings = append(findings, Finding{
				Category: CategoryPerformance,
				Severity: SeverityMedium,
				Message:  "Layout instability",
				URL:      rec.URL,
				Detail:   fmt.Sprintf("CLS %.3f", cls),
			})
		}
	}
	if rec.Rendered && rec.Metrics.BlockingTimeMs > highBlockingTimeMs {
		findings = append(findings, Finding{
			Category: CategoryPerformance,
			Severity: SeverityMedium,
			Message:  "High script blocking time",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%.0fms", rec.Metrics.BlockingTimeMs),
		})
	}
	if rec.FetchMs > slowFetchMs {
		findings = append(findings, Finding{
			Category: CategoryPerformance,
			Severity: SeverityLow,
			Message:  "Slow server response",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("%dms", rec.FetchMs),
		})
	}
	return findings
}

// AnalyzeIndexability flags canonical problems and heavy script dependence.
func AnalyzeIndexability(rec *PageRecord) []Finding {
	if !isAuditableHTML(rec) {
		return nil
	}
	var findings []Finding
	if rec.Canonical == "" {
		findings = append(findings, Finding{
			Category: CategoryIndexability,
			Severity: SeverityLow,
			Message:  "Missing canonical link",
			URL:      rec.URL,
		})
	} else if Normalize(rec.Canonical) != rec.URL {
		findings = append(findings, Finding{
			Category: CategoryIndexability,
			Severity: SeverityLow,
			Message:  "Canonical points to a different URL",
			URL:      rec.URL,
			Detail:   rec.Canonical,
		})
	}
	if rec.Rendered && rec.RenderGrowth() > renderGrowthRatio {
		findings = append(findings, Finding{
			Category: CategoryIndexability,
			Severity: SeverityMedium,
			Message:  "Content depends heavily on script execution",
			URL:      rec.URL,
			Detail:   fmt.Sprintf("markup grew %.1fx after rendering", rec.RenderGrowth()),
		})
	}
	return findings
}

// AnalyzeStructuredData flags pages without any structured data.
func AnalyzeStructuredData(rec *PageRecord) []Finding {
	if !isAuditableHTML(rec) {
		return nil
	}
	if len(rec.StructuredDataTypes) == 0 {
		return []Finding{{
			Category: CategoryStructuredData,
			Severity: SeverityLow,
			Message:  "No structured data found",
			URL:      rec.URL,
		}}
	}
	return nil
}
