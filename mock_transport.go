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
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"
)

// MockResponse is one canned HTTP response.
type MockResponse struct {
	// StatusCode defaults to 200
	StatusCode int
	// Body is the response body when BodyFunc is nil
	Body string
	// BodyFunc generates the body per request; takes precedence over Body
	BodyFunc func(*http.Request) string
	// Headers are returned as-is
	Headers http.Header
	// Delay simulates network latency
	Delay time.Duration
	// Error simulates a transport-level failure
	Error error
}

type mockPattern struct {
	pattern  *regexp.Regexp
	response *MockResponse
}

// MockTransport is an http.RoundTripper serving canned responses, so fetch
// and crawl tests run without a live server. Unregistered URLs answer 404
// unless a fallback transport is set.
type MockTransport struct {
	responses map[string]*MockResponse
	patterns  []mockPattern
	fallback  http.RoundTripper
	mutex     sync.RWMutex
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[string]*MockResponse),
	}
}

// RegisterResponse registers a response for an exact URL.
func (m *MockTransport) RegisterResponse(url string, response *MockResponse) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if response.StatusCode == 0 {
		response.StatusCode = 200
	}
	if response.Headers == nil {
		response.Headers = make(http.Header)
	}
	m.responses[url] = response
}

// RegisterHTML registers a 200 text/html response.
func (m *MockTransport) RegisterHTML(url, html string) {
	headers := make(http.Header)
	headers.Set("Content-Type", "text/html; charset=utf-8")
	m.RegisterResponse(url, &MockResponse{
		StatusCode: 200,
		Body:       html,
		Headers:    headers,
	})
}

// RegisterRedirect registers a redirect hop from url to location.
func (m *MockTransport) RegisterRedirect(url, location string, status int) {
	if status == 0 {
		status = http.StatusMovedPermanently
	}
	headers := make(http.Header)
	headers.Set("Location", location)
	m.RegisterResponse(url, &MockResponse{
		StatusCode: status,
		Headers:    headers,
	})
}

// RegisterError registers a transport-level failure for a URL.
func (m *MockTransport) RegisterError(url string, err error) {
	m.RegisterResponse(url, &MockResponse{Error: err})
}

// RegisterPattern registers a response for URLs matching a regex.
func (m *MockTransport) RegisterPattern(pattern string, response *MockResponse) error {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if response.StatusCode == 0 {
		response.StatusCode = 200
	}
	if response.Headers == nil {
		response.Headers = make(http.Header)
	}
	m.patterns = append(m.patterns, mockPattern{pattern: regex, response: response})
	return nil
}

// SetFallback routes unregistered URLs to another transport.
func (m *MockTransport) SetFallback(fallback http.RoundTripper) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fallback = fallback
}

// Reset drops all registrations.
func (m *MockTransport) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.responses = make(map[string]*MockResponse)
	m.patterns = nil
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mutex.RLock()

	url := req.URL.String()
	mockResp, found := m.responses[url]
	if !found {
		for _, p := range m.patterns {
			if p.pattern.MatchString(url) {
				mockResp = p.response
				found = true
				break
			}
		}
	}

	if !found {
		fallback := m.fallback
		m.mutex.RUnlock()
		if fallback != nil {
			return fallback.RoundTrip(req)
		}
		return &http.Response{
			StatusCode: 404,
			Body:       io.NopCloser(bytes.NewBufferString("Not Found")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}
	m.mutex.RUnlock()

	if mockResp.Delay > 0 {
		time.Sleep(mockResp.Delay)
	}
	if mockResp.Error != nil {
		return nil, mockResp.Error
	}

	body := mockResp.Body
	if mockResp.BodyFunc != nil {
		body = mockResp.BodyFunc(req)
	}

	resp := &http.Response{
		StatusCode: mockResp.StatusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     cloneHeaders(mockResp.Headers),
		Request:    req,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
	}
	if resp.Header.Get("Content-Length") == "" {
		resp.ContentLength = int64(len(body))
	}
	return resp, nil
}

func cloneHeaders(headers http.Header) http.Header {
	clone := make(http.Header)
	for key, values := range headers {
		clone[key] = append([]string{}, values...)
	}
	return clone
}
