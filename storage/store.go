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

// Package storage persists audit results to SQLite so runs can be compared
// over time.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Mreoch1/siteaudit"
)

// AuditRun is one stored audit.
type AuditRun struct {
	ID         uint `gorm:"primaryKey"`
	SeedURL    string
	RootDomain string
	StartedAt  time.Time
	DurationMs int64
	PageCount  int
	IssueCount int
	StopReason string
	CreatedAt  time.Time

	Pages  []PageRow  `gorm:"foreignKey:AuditRunID;constraint:OnDelete:CASCADE"`
	Issues []IssueRow `gorm:"foreignKey:AuditRunID;constraint:OnDelete:CASCADE"`
}

// PageRow is one crawled page of a run.
type PageRow struct {
	ID         uint `gorm:"primaryKey"`
	AuditRunID uint `gorm:"index"`

	URL             string `gorm:"index"`
	Depth           int
	Status          int
	ContentType     string
	Rendered        bool
	FetchMs         int64
	Title           string
	MetaDescription string
	WordCount       int
	ContentHash     string
	DuplicateOf     string
	Error           string
	// DetailJSON holds the full record (headings, links, metrics) as JSON
	DetailJSON string `gorm:"type:text"`
}

// IssueRow is one consolidated issue of a run.
type IssueRow struct {
	ID         uint `gorm:"primaryKey"`
	AuditRunID uint `gorm:"index"`

	Category  string `gorm:"index"`
	Severity  string
	Message   string
	Detail    string
	PageCount int
	// PagesJSON is the affected-page list as JSON
	PagesJSON string `gorm:"type:text"`
}

// Store wraps the SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the database at path. ":memory:" works for
// tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&AuditRun{}, &PageRow{}, &IssueRow{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveResult stores a finished audit and returns its run ID.
func (s *Store) SaveResult(result *siteaudit.AuditResult) (uint, error) {
	run := AuditRun{
		SeedURL:    result.SeedURL,
		StartedAt:  result.StartedAt,
		DurationMs: result.Duration.Milliseconds(),
		PageCount:  len(result.Pages),
		IssueCount: len(result.Issues),
		StopReason: result.StopReason,
	}
	if result.Context != nil {
		run.RootDomain = result.Context.RootDomain
	}

	for _, page := range result.Pages {
		detail, err := json.Marshal(page)
		if err != nil {
			return 0, fmt.Errorf("encoding page %s: %w", page.URL, err)
		}
		run.Pages = append(run.Pages, PageRow{
			URL:             page.URL,
			Depth:           page.Depth,
			Status:          page.Status,
			ContentType:     page.ContentType,
			Rendered:        page.Rendered,
			FetchMs:         page.FetchMs,
			Title:           page.Title,
			MetaDescription: page.MetaDescription,
			WordCount:       page.WordCount,
			ContentHash:     page.ContentHash,
			DuplicateOf:     page.DuplicateOf,
			Error:           page.Error,
			DetailJSON:      string(detail),
		})
	}

	for _, issue := range result.Issues {
		pages, err := json.Marshal(issue.Pages)
		if err != nil {
			return 0, fmt.Errorf("encoding issue pages: %w", err)
		}
		run.Issues = append(run.Issues, IssueRow{
			Category:  string(issue.Category),
			Severity:  issue.Severity.String(),
			Message:   issue.Message,
			Detail:    issue.Detail,
			PageCount: len(issue.Pages),
			PagesJSON: string(pages),
		})
	}

	if err := s.db.Create(&run).Error; err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns stored runs, newest first, without pages or issues.
func (s *Store) ListRuns() ([]AuditRun, error) {
	var runs []AuditRun
	err := s.db.Order("id desc").Find(&runs).Error
	return runs, err
}

// GetRun loads one run with its pages and issues.
func (s *Store) GetRun(id uint) (*AuditRun, error) {
	var run AuditRun
	err := s.db.Preload("Pages").Preload("Issues").First(&run, id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Record decodes a page row's stored detail back into a full record.
func (p *PageRow) Record() (*siteaudit.PageRecord, error) {
	var rec siteaudit.PageRecord
	if err := json.Unmarshal([]byte(p.DetailJSON), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
