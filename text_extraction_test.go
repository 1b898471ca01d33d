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
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestExtractAllTextStripsScriptsAndStyles(t *testing.T) {
	html := []byte(`<html><head><title>T</title><style>p { color: red }</style></head>
<body><script>var hidden = "secret";</script><p>Visible   paragraph.</p>
<noscript>Enable JS</noscript></body></html>`)

	text := extractAllText(html)
	if strings.Contains(text, "secret") || strings.Contains(text, "color") {
		t.Errorf("script/style text leaked: %q", text)
	}
	if strings.Contains(text, "Enable JS") {
		t.Errorf("noscript text leaked: %q", text)
	}
	if !strings.Contains(text, "Visible paragraph.") {
		t.Errorf("visible text missing or whitespace not collapsed: %q", text)
	}
}

func TestExtractMainContentPrefersArticle(t *testing.T) {
	html := []byte(`<html><body>
<nav><a href="/">Home</a> <a href="/about">About</a> <a href="/blog">Blog</a> <a href="/contact">Contact</a></nav>
<article>The article is where the substantive words of the page actually live and it should win.</article>
<footer>Copyright and some other boilerplate text</footer>
</body></html>`)

	text := extractMainContentText(html)
	if !strings.Contains(text, "substantive words") {
		t.Errorf("article content missing: %q", text)
	}
	if strings.Contains(text, "Copyright") || strings.Contains(text, "About") {
		t.Errorf("chrome leaked into main content: %q", text)
	}
}

func TestExtractMainContentFallsBackToDensestNode(t *testing.T) {
	html := []byte(`<html><body>
<div id="sidebar"><a href="/a">one</a> <a href="/b">two</a> <a href="/c">three</a> <a href="/d">four</a></div>
<div id="content"><p>This is the paragraph with the most real prose because it has many of the common
English words that a reader would expect to find in the body of an actual page.</p></div>
</body></html>`)

	text := extractMainContentText(html)
	if !strings.Contains(text, "real prose") {
		t.Errorf("densest node not selected: %q", text)
	}
	if strings.Contains(text, "three") {
		t.Errorf("link sidebar leaked into main content: %q", text)
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "Coffee coffee coffee. The espresso machine brews espresso. A grinder helps. COFFEE!"

	got := ExtractKeywords(text, 3)
	want := []string{"coffee", "espresso", "machine"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractKeywords = %v, want %v", got, want)
	}
}

func TestExtractKeywordsSkipsStopwordsAndShortTokens(t *testing.T) {
	got := ExtractKeywords("the and of it is at to go", 5)
	if len(got) != 0 {
		t.Errorf("stopword-only text yielded keywords %v", got)
	}

	got = ExtractKeywords("12345 999 telescope telescope", 5)
	if !reflect.DeepEqual(got, []string{"telescope"}) {
		t.Errorf("numeric tokens not skipped: %v", got)
	}
}

func TestExtractKeywordsDeterministicTieBreak(t *testing.T) {
	// Equal frequencies: first-seen order decides.
	text := "zebra apple zebra apple"
	first := ExtractKeywords(text, 2)
	for i := 0; i < 10; i++ {
		if got := ExtractKeywords(text, 2); !reflect.DeepEqual(got, first) {
			t.Fatalf("unstable keyword order: %v vs %v", got, first)
		}
	}
	if !reflect.DeepEqual(first, []string{"zebra", "apple"}) {
		t.Errorf("tie-break order = %v, want first-seen", first)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	if got := normalizeWhitespace("  a \t b\n\nc  "); got != "a b c" {
		t.Errorf("normalizeWhitespace = %q", got)
	}
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc
}

func TestLinkDensityFilter(t *testing.T) {
	f := NewLinkDensityFilter()

	dense := parseDoc(t, `<html><body><div><a href="/a">aa</a> <a href="/b">bb</a> <a href="/c">cc</a> x</div></body></html>`)
	out := f.Filter(dense)
	if out.Find("a").Length() != 0 {
		t.Error("dense link block survived")
	}

	sparse := parseDoc(t, `<html><body><div><a href="/a">one link</a> inside a long paragraph of otherwise ordinary prose that keeps the ratio low</div></body></html>`)
	out = f.Filter(sparse)
	if !strings.Contains(out.Text(), "ordinary prose") {
		t.Error("sparse block removed")
	}
}

func TestNavigationTextFilter(t *testing.T) {
	f := NewNavigationTextFilter()
	doc := parseDoc(t, `<html><body><li>Sign in</li><p>Sign in pages are a topic this paragraph merely discusses at length, among many other things worth keeping around.</p></body></html>`)
	out := f.Filter(doc)
	if out.Find("li").Length() != 0 {
		t.Error("navigation stub survived")
	}
	if !strings.Contains(out.Text(), "worth keeping") {
		t.Error("prose paragraph mentioning a nav phrase was removed")
	}
}

func TestStopwordsScorer(t *testing.T) {
	s := defaultStopwordsScorer
	if n := s.CountStopwords("the cat and the dog"); n != 3 {
		t.Errorf("CountStopwords = %d, want 3", n)
	}
	if s.ScoreText("the cat and the dog is here") <= s.ScoreText("zx qv bn") {
		t.Error("prose should outscore gibberish")
	}
}
