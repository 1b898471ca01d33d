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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// SessionState is the lifecycle state of the browser session.
type SessionState int32

const (
	// StateUninitialized means no browser has been launched yet
	StateUninitialized SessionState = iota
	// StateLaunching means a launch attempt is in progress
	StateLaunching
	// StateReady means the session answered its last health probe
	StateReady
	// StateDegraded means a disconnect event fired but has not been
	// confirmed yet; it resolves to Ready or Disconnected after a debounce
	// window
	StateDegraded
	// StateDisconnected means the session is confirmed gone
	StateDisconnected
	// StateClosed means the manager was shut down
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLaunching:
		return "launching"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// SessionConfig tunes the session manager's timeouts and recovery policy.
type SessionConfig struct {
	// LaunchTimeout bounds a single browser launch attempt
	LaunchTimeout time.Duration
	// ProbeTimeout bounds a health-check evaluation
	ProbeTimeout time.Duration
	// LaunchAttempts is the number of launch attempts before giving up
	LaunchAttempts int
	// LaunchBackoff is the base delay between launch attempts; it doubles
	// per attempt
	LaunchBackoff time.Duration
	// DisconnectDebounce is how long a disconnect event must persist before
	// the session is declared lost
	DisconnectDebounce time.Duration
}

// DefaultSessionConfig returns the session manager defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		LaunchTimeout:      30 * time.Second,
		ProbeTimeout:       3 * time.Second,
		LaunchAttempts:     3,
		LaunchBackoff:      time.Second,
		DisconnectDebounce: 500 * time.Millisecond,
	}
}

// SessionManager owns at most one browser process and one reusable page
// handle for the whole crawl. It is a single-flight resource, not a pool:
// callers acquire the one page, use it for a full render, and re-verify
// health before every risky step. No other component ever holds the raw
// process reference.
type SessionManager struct {
	driver    Driver
	cfg       SessionConfig
	log       *slog.Logger
	debounced func(func())

	mu           sync.Mutex
	state        SessionState
	browser      Browser
	page         Page
	pageUnusable bool
	gen          int
	watchStop    chan struct{}
}

// NewSessionManager creates a manager over the given driver. Nothing is
// launched until the first AcquirePage call.
func NewSessionManager(driver Driver, cfg SessionConfig, log *slog.Logger) *SessionManager {
	if log == nil {
		log = slog.Default()
	}
	if cfg.LaunchAttempts <= 0 {
		cfg.LaunchAttempts = 1
	}
	if cfg.DisconnectDebounce <= 0 {
		cfg.DisconnectDebounce = DefaultSessionConfig().DisconnectDebounce
	}
	return &SessionManager{
		driver:    driver,
		cfg:       cfg,
		log:       log,
		state:     StateUninitialized,
		debounced: debounce.New(cfg.DisconnectDebounce),
	}
}

// State returns the current lifecycle state.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AcquirePage returns a healthy page handle, reusing the existing one when
// it answers a liveness probe and relaunching the browser from scratch
// otherwise.
func (m *SessionManager) AcquirePage(ctx context.Context) (Page, error) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if m.state == StateReady && m.page != nil && !m.pageUnusable {
		page := m.page
		m.mu.Unlock()
		if m.probe(ctx, page) {
			return page, nil
		}
		m.log.Debug("page handle failed liveness probe, relaunching")
	} else {
		m.mu.Unlock()
	}
	return m.relaunch(ctx)
}

// VerifyHealthy runs a cheap in-page probe against the current page handle.
// Callers re-check health immediately before every risky sub-operation;
// long waits between steps are exactly when disconnects occur.
func (m *SessionManager) VerifyHealthy(ctx context.Context) bool {
	m.mu.Lock()
	page := m.page
	state := m.state
	m.mu.Unlock()
	if page == nil || state == StateClosed || state == StateDisconnected {
		return false
	}
	return m.probe(ctx, page)
}

// MarkPageUnusable flags the reused page handle as spent, forcing the next
// AcquirePage to open a fresh one. Used when the post-render blank reset
// fails.
func (m *SessionManager) MarkPageUnusable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageUnusable = true
}

// Close tears down the page and the browser process. Idempotent; the
// owning crawl routine must call it on every exit path.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return nil
	}
	m.teardownLocked()
	m.state = StateClosed
	return nil
}

// probe evaluates a trivial expression in-page within ProbeTimeout.
func (m *SessionManager) probe(ctx context.Context, page Page) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	var result int
	if err := page.Evaluate(probeCtx, "1+1", &result); err != nil {
		return false
	}
	return result == 2
}

// relaunch fully tears down any existing session and launches a new one.
// There is no partial-state recovery: callers retry their whole render
// attempt against the fresh session.
func (m *SessionManager) relaunch(ctx context.Context) (Page, error) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil, ErrSessionClosed
	}
	m.teardownLocked()
	m.state = StateLaunching
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < m.cfg.LaunchAttempts; attempt++ {
		if attempt > 0 {
			backoff := m.cfg.LaunchBackoff << (attempt - 1)
			m.log.Warn("browser launch failed, backing off",
				"attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &SessionError{Op: "launch", Err: ctx.Err()}
			}
		}

		page, err := m.launchOnce(ctx, gen)
		if err == nil {
			return page, nil
		}
		lastErr = err
	}

	m.mu.Lock()
	if m.state == StateLaunching {
		m.state = StateDisconnected
	}
	m.mu.Unlock()
	return nil, &SessionError{Op: "launch", Err: lastErr}
}

// launchOnce performs one launch attempt including the one-page smoke test
// that gates the Ready state.
func (m *SessionManager) launchOnce(ctx context.Context, gen int) (Page, error) {
	launchCtx, cancel := context.WithTimeout(ctx, m.cfg.LaunchTimeout)
	defer cancel()

	browser, err := m.driver.Launch(launchCtx)
	if err != nil {
		return nil, err
	}

	page, err := browser.NewPage(launchCtx)
	if err != nil {
		browser.Close()
		return nil, err
	}

	// Smoke test: the session is not Ready until a fresh page answers a
	// navigation and a trivial evaluation.
	if err := page.Navigate(launchCtx, "about:blank"); err != nil {
		page.Close()
		browser.Close()
		return nil, err
	}
	var two int
	if err := page.Evaluate(launchCtx, "1+1", &two); err != nil || two != 2 {
		page.Close()
		browser.Close()
		if err == nil {
			err = fmt.Errorf("smoke test evaluated to %d", two)
		}
		return nil, err
	}

	stop := make(chan struct{})
	m.mu.Lock()
	if m.state == StateClosed || gen != m.gen {
		m.mu.Unlock()
		page.Close()
		browser.Close()
		return nil, ErrSessionClosed
	}
	m.browser = browser
	m.page = page
	m.pageUnusable = false
	m.state = StateReady
	m.watchStop = stop
	m.mu.Unlock()

	go m.watchDisconnect(browser, gen, stop)
	m.log.Info("browser session ready")
	return page, nil
}

// watchDisconnect reacts to the driver's disconnect signal for one session
// generation.
func (m *SessionManager) watchDisconnect(browser Browser, gen int, stop chan struct{}) {
	select {
	case <-browser.Disconnected():
		m.onDisconnectEvent(gen)
	case <-stop:
	}
}

// onDisconnectEvent handles a raw disconnect signal. Disconnect events can
// be transient during long in-page waits, so the session only degrades here;
// the loss is confirmed (or withdrawn) after the debounce window.
func (m *SessionManager) onDisconnectEvent(gen int) {
	m.mu.Lock()
	if gen != m.gen || m.state == StateClosed || m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateDegraded
	m.mu.Unlock()

	m.log.Debug("disconnect event received, debouncing")
	m.debounced(func() { m.confirmDisconnect(gen) })
}

// confirmDisconnect settles a Degraded session: back to Ready if the handle
// still answers a probe, Disconnected otherwise.
func (m *SessionManager) confirmDisconnect(gen int) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateDegraded {
		m.mu.Unlock()
		return
	}
	page := m.page
	m.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(context.Background(), m.cfg.ProbeTimeout)
	reachable := page != nil && m.probe(probeCtx, page)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != StateDegraded {
		return
	}
	if reachable {
		m.state = StateReady
		m.log.Debug("disconnect event was transient, session still reachable")
		return
	}
	m.log.Warn("browser session lost")
	m.teardownLocked()
	m.state = StateDisconnected
}

// teardownLocked closes the page and browser and stops the disconnect
// watcher. Callers hold m.mu.
func (m *SessionManager) teardownLocked() {
	if m.watchStop != nil {
		close(m.watchStop)
		m.watchStop = nil
	}
	if m.page != nil {
		m.page.Close()
		m.page = nil
	}
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	m.pageUnusable = false
}
