// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes the unhandled-data file for a run and reads back the
// run logs that later commands depend on.
package report

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/barcode-sync/internal/match"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

// AddedBarcodeMessage prefixes the log line written for every container
// that received a barcode. remove-barcodes looks for it.
const AddedBarcodeMessage = "Added barcode to top container"

// Meta identifies the run a report belongs to.
type Meta struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	BibID       string    `json:"bib_id,omitempty" yaml:"bib_id,omitempty"`
	HoldingsID  string    `json:"holdings_id,omitempty" yaml:"holdings_id,omitempty"`
	ResourceID  int       `json:"resource_id,omitempty" yaml:"resource_id,omitempty"`
	DryRun      bool      `json:"dry_run" yaml:"dry_run"`
}

// Entry is one record listed in a report section.
type Entry struct {
	ID     string       `json:"id" yaml:"id"`
	Key    string       `json:"key,omitempty" yaml:"key,omitempty"`
	Reason string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Record types.Record `json:"record" yaml:"record"`
}

// Document is the unhandled-data report: everything a run did not write.
type Document struct {
	Meta    `yaml:",inline"`
	Profile string       `json:"profile" yaml:"profile"`
	Counts  match.Counts `json:"counts" yaml:"counts"`

	UnmatchedSource []Entry `json:"unmatched_source" yaml:"unmatched_source"`
	UnmatchedTarget []Entry `json:"unmatched_target" yaml:"unmatched_target"`
	DuplicateSource []Entry `json:"duplicate_source" yaml:"duplicate_source"`
	DuplicateTarget []Entry `json:"duplicate_target" yaml:"duplicate_target"`
	MalformedSource []Entry `json:"malformed_source" yaml:"malformed_source"`
	MalformedTarget []Entry `json:"malformed_target" yaml:"malformed_target"`
	Precoded        []Entry `json:"precoded_target" yaml:"precoded_target"`
}

// Build converts a classified run into a Document. Every section is sorted
// by record identifier.
func Build(meta Meta, r *match.Report, layout match.Layout) *Document {
	d := &Document{Meta: meta, Profile: r.Profile, Counts: r.Counts()}

	d.UnmatchedSource = recordEntries(r.UnmatchedSource, layout.SourceID)
	d.UnmatchedTarget = recordEntries(r.UnmatchedTarget, layout.TargetID)
	d.Precoded = recordEntries(r.Precoded, layout.TargetID)
	d.DuplicateSource = duplicateEntries(r.DuplicateSource)
	d.DuplicateTarget = duplicateEntries(r.DuplicateTarget)
	d.MalformedSource = malformedEntries(r.MalformedSource)
	d.MalformedTarget = malformedEntries(r.MalformedTarget)
	return d
}

func recordEntries(records []types.Record, idField string) []Entry {
	out := make([]Entry, len(records))
	for i, r := range records {
		out[i] = Entry{ID: r.String(idField), Record: r}
	}
	sortEntries(out)
	return out
}

func duplicateEntries(dups []match.Duplicate) []Entry {
	out := make([]Entry, len(dups))
	for i, d := range dups {
		out[i] = Entry{ID: d.ID, Key: d.Key.String(), Record: d.Record}
	}
	sortEntries(out)
	return out
}

func malformedEntries(bad []match.Malformed) []Entry {
	out := make([]Entry, len(bad))
	for i, m := range bad {
		out[i] = Entry{ID: m.ID, Reason: m.Reason, Record: m.Record}
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}

// Filename returns the report file name for base and format.
func Filename(base string, format types.ReportFormat) string {
	return fmt.Sprintf("unhandled_%s.%s", base, format)
}

// Write encodes doc in format to dir/unhandled_{base}.{format} and returns
// the path written.
func Write(dir, base string, format types.ReportFormat, doc *Document) (string, error) {
	if format == "" {
		format = types.ReportJSON
	}
	var (
		data []byte
		err  error
	)
	switch format {
	case types.ReportJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
	case types.ReportYAML:
		data, err = yaml.Marshal(doc)
	case types.ReportCSV:
		data, err = encodeCSV(doc)
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("encoding %s report: %w", format, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, Filename(base, format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

var csvHeader = []string{"section", "id", "key", "reason", "record"}

// encodeCSV flattens every section into one table; the record column holds
// the record's JSON.
func encodeCSV(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	sections := []struct {
		name    string
		entries []Entry
	}{
		{"unmatched_source", doc.UnmatchedSource},
		{"unmatched_target", doc.UnmatchedTarget},
		{"duplicate_source", doc.DuplicateSource},
		{"duplicate_target", doc.DuplicateTarget},
		{"malformed_source", doc.MalformedSource},
		{"malformed_target", doc.MalformedTarget},
		{"precoded_target", doc.Precoded},
	}
	for _, s := range sections {
		for _, e := range s.entries {
			rec, err := json.Marshal(e.Record)
			if err != nil {
				return nil, err
			}
			if err := w.Write([]string{s.name, e.ID, e.Key, e.Reason, string(rec)}); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// AddedBarcodeURIs scans a JSON-lines run log and returns, sorted and
// de-duplicated, the URIs of containers that were given a barcode. Lines
// written by earlier tooling carry the text under "event" instead
// of "message"; both are read. Lines that are not JSON are skipped.
func AddedBarcodeURIs(r io.Reader) ([]string, error) {
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		var line map[string]any
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			continue
		}
		msg, _ := line["message"].(string)
		if msg == "" {
			msg, _ = line["event"].(string)
		}
		if !strings.HasPrefix(msg, AddedBarcodeMessage) {
			continue
		}
		uri, _ := line["uri"].(string)
		if uri == "" {
			uri = strings.TrimSpace(strings.TrimPrefix(msg, AddedBarcodeMessage))
		}
		if uri != "" {
			seen[uri] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading run log: %w", err)
	}

	uris := make([]string, 0, len(seen))
	for u := range seen {
		uris = append(uris, u)
	}
	sort.Strings(uris)
	return uris, nil
}
