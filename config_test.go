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
	"testing"
	"time"
)

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{}.withDefaults()
	def := DefaultConfig()

	if cfg.UserAgent != def.UserAgent {
		t.Errorf("user agent = %q", cfg.UserAgent)
	}
	if cfg.MaxPages != def.MaxPages || cfg.MaxDepth != def.MaxDepth {
		t.Errorf("budgets = %d/%d", cfg.MaxPages, cfg.MaxDepth)
	}
	if cfg.RequestDelay != def.RequestDelay || cfg.FetchTimeout != def.FetchTimeout {
		t.Errorf("timings = %v/%v", cfg.RequestDelay, cfg.FetchTimeout)
	}
	if cfg.HashAlgorithm != def.HashAlgorithm {
		t.Errorf("hash algorithm = %q", cfg.HashAlgorithm)
	}
	if cfg.Session.LaunchTimeout == 0 || cfg.Renderer.NavigateTimeout == 0 {
		t.Error("nested configs not defaulted")
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		UserAgent:    "custom/2.0",
		MaxPages:     7,
		MaxDepth:     1,
		RequestDelay: 5 * time.Millisecond,
	}.withDefaults()

	if cfg.UserAgent != "custom/2.0" || cfg.MaxPages != 7 || cfg.MaxDepth != 1 {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
	if cfg.RequestDelay != 5*time.Millisecond {
		t.Errorf("delay = %v", cfg.RequestDelay)
	}
	// Untouched fields still get defaults.
	if cfg.FetchTimeout == 0 {
		t.Error("fetch timeout not defaulted")
	}
}

func TestDefaultConfigRenderFlags(t *testing.T) {
	def := DefaultConfig()
	if !def.RenderEnabled || !def.UseSitemap || !def.RespectRobots {
		t.Errorf("default flags = render %v sitemap %v robots %v",
			def.RenderEnabled, def.UseSitemap, def.RespectRobots)
	}
}
