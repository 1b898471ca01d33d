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

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://Example.COM/Page", "https://example.com/Page"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"strips trailing slash", "https://example.com/path/", "https://example.com/path"},
		{"collapses duplicate slashes", "https://example.com/a//b///c", "https://example.com/a/b/c"},
		{"strips fragment", "https://example.com/page#section", "https://example.com/page"},
		{"strips default port", "https://example.com:443/x", "https://example.com/x"},
		{"keeps explicit port", "https://example.com:8443/x", "https://example.com:8443/x"},
		{"keeps query", "https://example.com/p?a=1&b=2", "https://example.com/p?a=1&b=2"},
		{"trims whitespace", "  https://example.com/x  ", "https://example.com/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com/a//b/",
		"https://example.com/page#frag",
		"https://example.com/",
		"not a url at all",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestNormalizeMalformedInputIsStable(t *testing.T) {
	in := "  ://not-a-url  "
	got := Normalize(in)
	if got != Normalize(in) {
		t.Errorf("malformed input produced unstable output: %q", got)
	}
}

func TestNormalizeRef(t *testing.T) {
	got, err := NormalizeRef("https://example.com/dir/page", "../other")
	if err != nil {
		t.Fatalf("NormalizeRef returned error: %v", err)
	}
	if got != "https://example.com/other" {
		t.Errorf("NormalizeRef = %q, want %q", got, "https://example.com/other")
	}

	got, err = NormalizeRef("https://example.com/dir/", "sub/page/")
	if err != nil {
		t.Fatalf("NormalizeRef returned error: %v", err)
	}
	if got != "https://example.com/dir/sub/page" {
		t.Errorf("NormalizeRef = %q, want %q", got, "https://example.com/dir/sub/page")
	}
}

func TestHostOfAndSchemeOf(t *testing.T) {
	if got := HostOf("https://EN.Example.com:8080/x"); got != "en.example.com" {
		t.Errorf("HostOf = %q, want en.example.com", got)
	}
	if got := HostOf("garbage"); got != "" {
		t.Errorf("HostOf(garbage) = %q, want empty", got)
	}
	if got := SchemeOf("HTTPS://example.com"); got != "https" {
		t.Errorf("SchemeOf = %q, want https", got)
	}
	if got := SchemeOf("example.com/path"); got != "" {
		t.Errorf("SchemeOf without scheme = %q, want empty", got)
	}
}

func TestIsSameDomain(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"example.com", "example.com", true},
		{"www.example.com", "example.com", true},
		{"blog.example.com", "www.example.com", true},
		{"en.example.com", "example.com", true},
		{"shop.example.com", "example.com", true},
		{"example.com", "other.com", false},
		{"example.com", "notexample.com", false},
		{"", "example.com", false},
	}
	for _, tt := range tests {
		if got := IsSameDomain(tt.a, tt.b); got != tt.want {
			t.Errorf("IsSameDomain(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestResolveRootDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"www.example.com", "example.com"},
		{"en.example.com", "example.com"},
		{"en-us.www.example.com", "example.com"},
		{"shop.example.com", "shop.example.com"},
		{"example.com", "example.com"},
		// Known heuristic limit: multi-label TLDs are not reduced further.
		{"example.co.uk", "example.co.uk"},
	}
	for _, tt := range tests {
		if got := ResolveRootDomain(tt.host); got != tt.want {
			t.Errorf("ResolveRootDomain(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestPreferURL(t *testing.T) {
	if got := PreferURL("http://example.com/x", "https://example.com/x"); got != "https://example.com/x" {
		t.Errorf("https should win, got %q", got)
	}
	if got := PreferURL("https://example.com/page/", "https://example.com/page"); got != "https://example.com/page" {
		t.Errorf("shorter form should win, got %q", got)
	}
	if got := PreferURL("", "https://example.com"); got != "https://example.com" {
		t.Errorf("empty argument should lose, got %q", got)
	}
}

func TestIsBinaryAssetURL(t *testing.T) {
	binary := []string{
		"https://example.com/image.png",
		"https://example.com/doc.PDF",
		"https://example.com/app.js?v=12",
		"https://example.com/styles/site.css",
	}
	for _, u := range binary {
		if !IsBinaryAssetURL(u) {
			t.Errorf("IsBinaryAssetURL(%q) = false, want true", u)
		}
	}
	pages := []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/products?page=2",
	}
	for _, u := range pages {
		if IsBinaryAssetURL(u) {
			t.Errorf("IsBinaryAssetURL(%q) = true, want false", u)
		}
	}
}
