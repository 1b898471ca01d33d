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
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionClosed is returned when a page is requested from a session
	// manager that has already been closed.
	ErrSessionClosed = errors.New("browser session manager is closed")
	// ErrMissingSeedURL is returned when an audit is started without an
	// entry URL.
	ErrMissingSeedURL = errors.New("missing seed URL")
	// ErrTooManyRedirects is returned when seed resolution exceeds the
	// redirect limit.
	ErrTooManyRedirects = errors.New("stopped after 10 redirects")
)

// SeedResolutionError is fatal: without a resolved entry URL there is no
// CrawlContext and the whole crawl aborts.
type SeedResolutionError struct {
	URL string
	Err error
}

func (e *SeedResolutionError) Error() string {
	return fmt.Sprintf("resolving seed %q: %v", e.URL, e.Err)
}

func (e *SeedResolutionError) Unwrap() error { return e.Err }

// SessionError marks a lost or unlaunchable browser session. The session
// manager tears down and relaunches, and the current render attempt is
// retried from scratch.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// RenderTimeoutError marks a navigation, in-page evaluation or whole-render
// deadline overrun. It is retried exactly like a SessionError.
type RenderTimeoutError struct {
	URL     string
	Stage   string
	Timeout time.Duration
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render of %q timed out during %s after %s", e.URL, e.Stage, e.Timeout)
}

// ContentTypeError marks a URL that resolved to non-HTML content. The page
// is recorded via the non-rendering fallback path and never retried in the
// browser.
type ContentTypeError struct {
	URL         string
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("%q is not an HTML page (content type %q)", e.URL, e.ContentType)
}

// ExtractionStepError marks a single failed in-page sub-step. The affected
// field degrades to its zero value; the rest of the page record is kept.
type ExtractionStepError struct {
	Step string
	Err  error
}

func (e *ExtractionStepError) Error() string {
	return fmt.Sprintf("extraction step %s: %v", e.Step, e.Err)
}

func (e *ExtractionStepError) Unwrap() error { return e.Err }

// LinkDiscoveryError marks a failed link-discovery pass for one page. It is
// non-fatal: the page simply contributes zero new frontier entries.
type LinkDiscoveryError struct {
	URL string
	Err error
}

func (e *LinkDiscoveryError) Error() string {
	return fmt.Sprintf("discovering links on %q: %v", e.URL, e.Err)
}

func (e *LinkDiscoveryError) Unwrap() error { return e.Err }

// isRetryableRenderError reports whether a render attempt should be retried
// against a freshly relaunched session. Connection-class failures and
// timeouts qualify; content-level failures do not.
func isRetryableRenderError(err error) bool {
	if err == nil {
		return false
	}
	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		return true
	}
	var timeoutErr *RenderTimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
