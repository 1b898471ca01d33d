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
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// Normalize converts a URL into its canonical string form, used as the
// dedup/equality key throughout the crawl. It lower-cases the host, strips
// default ports and fragments, collapses duplicate slashes in the path and
// removes a single trailing slash (except for the root path).
//
// Normalize is total: malformed input is returned trimmed but otherwise
// unchanged, so the same input always yields the same key.
func Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := urlParser.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	// The WHATWG serialization already lower-cases the host and strips
	// default ports.
	s := parsed.String()

	// Strip the fragment.
	if i := strings.IndexByte(s, '#'); i != -1 {
		s = s[:i]
	}

	// Collapse duplicate slashes in the path portion only.
	if idx := strings.Index(s, "://"); idx != -1 {
		authorityStart := idx + 3
		if pathStart := strings.IndexByte(s[authorityStart:], '/'); pathStart != -1 {
			head := s[:authorityStart+pathStart]
			s = head + collapseSlashes(s[authorityStart+pathStart:])
		}
	}

	// Strip one trailing slash unless the path is just "/".
	if strings.HasSuffix(s, "/") && !strings.HasSuffix(s, "://") {
		trimmed := strings.TrimSuffix(s, "/")
		if idx := strings.Index(trimmed, "://"); idx != -1 && strings.ContainsRune(trimmed[idx+3:], '/') {
			s = trimmed
		}
	}
	return s
}

// NormalizeRef resolves href against base and returns the canonical form of
// the result. It is used for links discovered in page markup, which are
// frequently relative.
func NormalizeRef(base, href string) (string, error) {
	resolved, err := urlParser.ParseRef(base, href)
	if err != nil {
		return "", err
	}
	return Normalize(resolved.String()), nil
}

// collapseSlashes reduces runs of '/' in a path-and-after string to a single
// slash, leaving everything past the query separator alone.
func collapseSlashes(pathAndAfter string) string {
	var b strings.Builder
	b.Grow(len(pathAndAfter))
	inPath := true
	prevSlash := false
	for _, r := range pathAndAfter {
		if r == '?' || r == '#' {
			inPath = false
		}
		if inPath && r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HostOf returns the lower-cased hostname of a URL, or "" if it cannot be
// parsed. The port is dropped; canonical keys already distinguish ports.
func HostOf(rawURL string) string {
	parsed, err := urlParser.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// SchemeOf returns the scheme of an absolute URL ("http", "https"), or "" if
// none is present.
func SchemeOf(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(rawURL[:idx])
}

// pathOf returns the path portion of a URL (without query or fragment).
func pathOf(rawURL string) string {
	s := rawURL
	if idx := strings.Index(s, "://"); idx != -1 {
		rest := s[idx+3:]
		slash := strings.IndexByte(rest, '/')
		if slash == -1 {
			return "/"
		}
		s = rest[slash:]
	}
	if i := strings.IndexByte(s, '?'); i != -1 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '#'); i != -1 {
		s = s[:i]
	}
	return s
}

// IsSameDomain reports whether two hosts belong to the same site for crawl
// purposes. Hosts match when they are equal, or when one is a dot-suffix
// subdomain of the other's registrable root domain. The relaxed rule exists
// because sites legitimately serve canonical content from a locale or www
// subdomain that is only discovered after following redirects.
func IsSameDomain(hostA, hostB string) bool {
	a := strings.ToLower(strings.TrimSuffix(hostA, "."))
	b := strings.ToLower(strings.TrimSuffix(hostB, "."))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	rootA := ResolveRootDomain(a)
	rootB := ResolveRootDomain(b)
	if rootA == rootB {
		return true
	}
	if strings.HasSuffix(a, "."+rootB) || strings.HasSuffix(b, "."+rootA) {
		return true
	}
	return false
}

// ResolveRootDomain strips a single leading "www." and leading locale-style
// labels (en, de, en-us, ...) from a host, approximating the registrable
// domain.
//
// This is a heuristic, not a public-suffix-list implementation: it never
// reduces a host below two labels, which misjudges multi-label effective
// TLDs such as "co.uk". Known limitation.
func ResolveRootDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if i := strings.IndexByte(host, ':'); i != -1 {
		host = host[:i]
	}
	labels := strings.Split(host, ".")
	for len(labels) > 2 {
		first := labels[0]
		if first == "www" || isLocaleLabel(first) {
			labels = labels[1:]
			continue
		}
		break
	}
	return strings.Join(labels, ".")
}

// isLocaleLabel reports whether a host label looks like a language/locale
// subdomain: "en", "fra", or "en-us" style.
func isLocaleLabel(label string) bool {
	if len(label) == 2 || len(label) == 3 {
		return isAlpha(label)
	}
	if len(label) == 5 && label[2] == '-' {
		return isAlpha(label[:2]) && isAlpha(label[3:])
	}
	return false
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return len(s) > 0
}

// PreferURL chooses the preferred form among two URL variants that share a
// canonical identity: https wins over http, then the shorter serialization
// wins, then the first argument.
func PreferURL(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	schemeA, schemeB := SchemeOf(a), SchemeOf(b)
	if schemeA != schemeB {
		if schemeA == "https" {
			return a
		}
		if schemeB == "https" {
			return b
		}
	}
	if len(b) < len(a) {
		return b
	}
	return a
}

// binaryAssetExtensions lists URL suffixes that identify non-page resources.
// Links to these are never enqueued; rendering them would only waste the
// browser session.
var binaryAssetExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico", ".avif",
	".css", ".js", ".mjs", ".json", ".xml",
	".woff", ".woff2", ".ttf", ".eot", ".otf",
	".mp4", ".webm", ".ogg", ".mp3", ".wav", ".flac",
	".pdf", ".zip", ".gz", ".tar", ".rar", ".7z",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".exe", ".dmg", ".apk",
}

// IsBinaryAssetURL reports whether a URL's path ends in an extension that
// marks it as a binary/static asset rather than a crawlable page.
func IsBinaryAssetURL(rawURL string) bool {
	p := strings.ToLower(pathOf(rawURL))
	for _, ext := range binaryAssetExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}
