// Package ingest imports stories exported by the StoryDredge archive tool.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/storyatlas/internal/database"
)

const (
	newsSection  = "news"
	importedFrom = "StoryDredge"
	parseWorkers = 4
)

// Record is one story file in the archive tool's export format.
type Record struct {
	Headline    string   `json:"headline"`
	Body        string   `json:"body"`
	Tags        []string `json:"tags"`
	Section     string   `json:"section"`
	Timestamp   string   `json:"timestamp"`
	Publication string   `json:"publication"`
	SourceIssue string   `json:"source_issue"`
	SourceURL   string   `json:"source_url"`
	Byline      string   `json:"byline,omitempty"`
	Dateline    string   `json:"dateline,omitempty"`
}

// Store is the write side of the story store.
type Store interface {
	StoryExistsWithRawText(ctx context.Context, s string) (bool, error)
	CreateStory(ctx context.Context, s database.Story) (*database.Story, error)
}

// Result counts what an import did with each file found.
type Result struct {
	Found    int
	Imported int
	Skipped  int
	Failed   int
}

// Importer loads archive files into a store.
type Importer struct {
	store Store
}

// NewImporter creates an importer writing to store.
func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

type parsed struct {
	path   string
	record *Record
	err    error
}

// ImportDir walks dir for .json files and imports each news story that is not
// already stored. Files are parsed concurrently and inserted one at a time in
// path order. Per-file problems are counted, not returned.
func (im *Importer) ImportDir(ctx context.Context, dir string) (*Result, error) {
	files, err := FindJSONFiles(dir)
	if err != nil {
		return nil, err
	}
	log.Printf("Found %d JSON files in %s", len(files), dir)

	records := make([]parsed, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)
	for i, path := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			rec, err := ReadRecord(path)
			records[i] = parsed{path: path, record: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Found: len(files)}
	for _, p := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if p.err != nil {
			log.Printf("Error processing file %s: %v", p.path, p.err)
			res.Failed++
			continue
		}
		imported, err := im.importRecord(ctx, p.record)
		switch {
		case err != nil:
			log.Printf("Error processing file %s: %v", p.path, err)
			res.Failed++
		case imported:
			res.Imported++
		default:
			res.Skipped++
		}
	}
	return res, nil
}

// importRecord stores one record. It returns false without error when the
// record is skipped.
func (im *Importer) importRecord(ctx context.Context, rec *Record) (bool, error) {
	if rec.Section != newsSection {
		log.Printf("Skipping non-news story %q, section: %s", rec.Headline, rec.Section)
		return false, nil
	}

	if rec.SourceURL != "" {
		exists, err := im.store.StoryExistsWithRawText(ctx, "URL: "+rec.SourceURL+"\n")
		if err != nil {
			return false, fmt.Errorf("checking for existing story: %w", err)
		}
		if exists {
			log.Printf("Story already exists: %s", rec.Headline)
			return false, nil
		}
	}

	ts, err := parseTimestamp(rec.Timestamp)
	if err != nil {
		return false, err
	}

	story := database.Story{
		Title:         rec.Headline,
		RawText:       MetadataBlock(rec) + rec.Body,
		ProcessedText: rec.Body,
		Timestamp:     ts,
		SourceType:    rec.Publication,
	}
	if rec.Dateline != "" {
		story.Location = &rec.Dateline
	}
	if _, err := im.store.CreateStory(ctx, story); err != nil {
		return false, fmt.Errorf("inserting story: %w", err)
	}
	log.Printf("Imported story: %s", rec.Headline)
	return true, nil
}

// MetadataBlock is the provenance header prepended to a story's raw text. The
// source URL inside it is what later imports match on to skip duplicates.
func MetadataBlock(rec *Record) string {
	var b strings.Builder
	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "Source: %s\n", rec.Publication)
	fmt.Fprintf(&b, "URL: %s\n", rec.SourceURL)
	fmt.Fprintf(&b, "Issue: %s\n", rec.SourceIssue)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(rec.Tags, ", "))
	fmt.Fprintf(&b, "Imported from: %s\n", importedFrom)
	if rec.Byline != "" {
		fmt.Fprintf(&b, "Byline: %s\n", rec.Byline)
	}
	if rec.Dateline != "" {
		fmt.Fprintf(&b, "Dateline: %s\n", rec.Dateline)
	}
	b.WriteString("---\n\n")
	return b.String()
}

// ReadRecord reads and decodes one archive file.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// FindJSONFiles returns every .json file under dir, sorted by path.
func FindJSONFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("archive directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive directory: %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".json" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	database.DateLayout,
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
