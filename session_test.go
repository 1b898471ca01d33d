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
	"testing"
	"time"
)

func TestSessionLaunchAndReuse(t *testing.T) {
	driver := &fakeDriver{}
	m := NewSessionManager(driver, fastSessionConfig(), testLogger())
	defer m.Close()

	if m.State() != StateUninitialized {
		t.Fatalf("initial state = %v, want uninitialized", m.State())
	}

	page1, err := m.AcquirePage(context.Background())
	if err != nil {
		t.Fatalf("AcquirePage failed: %v", err)
	}
	if m.State() != StateReady {
		t.Fatalf("state after acquire = %v, want ready", m.State())
	}

	// Launch includes the smoke test: about:blank must have been visited.
	navs := driver.lastBrowser().page.navigatedTo()
	if len(navs) == 0 || navs[0] != "about:blank" {
		t.Fatalf("smoke test navigation missing, got %v", navs)
	}

	page2, err := m.AcquirePage(context.Background())
	if err != nil {
		t.Fatalf("second AcquirePage failed: %v", err)
	}
	if page1 != page2 {
		t.Error("healthy page should be reused")
	}
	if driver.launchCount() != 1 {
		t.Errorf("launch count = %d, want 1", driver.launchCount())
	}
}

func TestSessionLaunchRetriesWithBackoff(t *testing.T) {
	driver := &fakeDriver{failFirst: 2}
	m := NewSessionManager(driver, fastSessionConfig(), testLogger())
	defer m.Close()

	_, err := m.AcquirePage(context.Background())
	if err != nil {
		t.Fatalf("AcquirePage failed after retries: %v", err)
	}
	if driver.launchCount() != 3 {
		t.Errorf("launch count = %d, want 3", driver.launchCount())
	}
}

func TestSessionLaunchGivesUp(t *testing.T) {
	driver := &fakeDriver{failFirst: 100}
	m := NewSessionManager(driver, fastSessionConfig(), testLogger())
	defer m.Close()

	_, err := m.AcquirePage(context.Background())
	if err == nil {
		t.Fatal("AcquirePage should fail when every launch fails")
	}
	var sessionErr *SessionError
	if !errors.As(err, &sessionErr) {
		t.Fatalf("error type = %T, want *SessionError", err)
	}
	if m.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", m.State())
	}
}

func TestSessionRelaunchesUnhealthyPage(t *testing.T) {
	driver := &fakeDriver{}
	m := NewSessionManager(driver, fastSessionConfig(), testLogger())
	defer m.Close()

	page1, err := m.AcquirePage(context.Background())
	if err != nil {
		t.Fatalf("AcquirePage failed: %v", err)
	}

	// Break the current page: the next acquire must relaunch from scratch.
	driver.lastBrowser().page.probeFail = true

	page2, err := m.AcquirePage(context.Background())
	if err != nil {
		t.Fatalf("AcquirePage after breakage failed: %v", err)
	}
	if page1 == page2 {
		t.Error("broken page should not be reused")
	}
	if driver.launchCount() != 2 {
		t.Errorf("launch count = %d, want 2", driver.launchCount())
	}
}

func TestSessionMarkPageUnusableForcesFreshPage(t *testing.T) {
	driver := &fakeDriver{}
	m := NewSessionManager(driver, fastSessionConfig(), testLogger())
	defer m.Close()

	page1, err := m.AcquirePage(context.Background())
	if err != nil {
		t.Fatalf("AcquirePage failed: %v", err)
	}
	m.MarkPageUnusable()

	page2, err := m.AcquirePage(context.Background())
	if err != nil {
		t.Fatalf("AcquirePage failed: %v", err)
	}
	if page1 == page2 {
		t.Error("unusable page should have been replaced")
	}
}

func TestSessionTransientDisconnectRecovers(t *testing.T) {
	driver := &fakeDriver{}
	m := NewSessionManager(driver, fastSessionConfig(), testLogger())
	defer m.Close()

	if _, err := m.AcquirePage(context.Background()); err != nil {
		t.Fatalf("AcquirePage failed: %v", err)
	}

	// The page still answers probes: the disconnect event is transient and
	// the session must settle back to Ready.
	driver.lastBrowser().dropConnection()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == StateReady {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never recovered, state = %v", m.State())
}

func TestSessionConfirmedDisconnect(t *testing.T) {
	driver := &fakeDriver{}
	m := NewSessionManager(driver, fastSessionConfig(), testLogger())
	defer m.Close()

	if _, err := m.AcquirePage(context.Background()); err != nil {
		t.Fatalf("AcquirePage failed: %v", err)
	}

	browser := driver.lastBrowser()
	browser.page.probeFail = true
	browser.dropConnection()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == StateDisconnected {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if m.State() != StateDisconnected {
		t.Fatalf("session never confirmed the disconnect, state = %v", m.State())
	}

	// Acquire after a confirmed loss relaunches from scratch.
	if _, err := m.AcquirePage(context.Background()); err != nil {
		t.Fatalf("AcquirePage after disconnect failed: %v", err)
	}
	if m.State() != StateReady {
		t.Errorf("state = %v, want ready", m.State())
	}
	if driver.launchCount() != 2 {
		t.Errorf("launch count = %d, want 2", driver.launchCount())
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	driver := &fakeDriver{}
	m := NewSessionManager(driver, fastSessionConfig(), testLogger())

	if _, err := m.AcquirePage(context.Background()); err != nil {
		t.Fatalf("AcquirePage failed: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if m.State() != StateClosed {
		t.Errorf("state = %v, want closed", m.State())
	}
	if !driver.lastBrowser().closed {
		t.Error("browser should be closed")
	}

	if _, err := m.AcquirePage(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("AcquirePage after Close = %v, want ErrSessionClosed", err)
	}
}

func TestSessionStateString(t *testing.T) {
	states := map[SessionState]string{
		StateUninitialized: "uninitialized",
		StateLaunching:     "launching",
		StateReady:         "ready",
		StateDegraded:      "degraded",
		StateDisconnected:  "disconnected",
		StateClosed:        "closed",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
