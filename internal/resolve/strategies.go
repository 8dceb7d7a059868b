package resolve

import (
	"context"
	"regexp"

	"github.com/lanceiro/radar-cli/pkg/pncp"
)

// maxPatternMatches bounds how many regex hits a TextPattern inspects before
// giving up on a document.
const maxPatternMatches = 50

// StructuredField reads a value the pipeline already holds (stub, cached
// detail, raw payload) through an accessor.
type StructuredField struct {
	Name string
	Get  func(r *Record) (any, bool)
}

func (s StructuredField) Source() string { return s.Name }

func (s StructuredField) Try(_ context.Context, r *Record) (any, bool, error) {
	v, ok := s.Get(r)
	return v, ok, nil
}

// DetailLookup fetches the authoritative per-notice record, memoizing it on
// the Record so later strategies read it for free.
type DetailLookup struct {
	Name  string
	Fetch func(ctx context.Context, r *Record) (*pncp.Detail, error)
	Pick  func(r *Record) (any, bool)
}

func (s DetailLookup) Source() string { return s.Name }

func (s DetailLookup) Try(ctx context.Context, r *Record) (any, bool, error) {
	if r.Detail == nil {
		d, err := s.Fetch(ctx, r)
		if err != nil {
			return nil, false, err
		}
		r.Detail = d
	}
	if r.Detail == nil {
		return nil, false, nil
	}
	v, ok := s.Pick(r)
	return v, ok, nil
}

// TextPattern extracts a candidate via regex over a text source, then parses
// and validates it. An invalid candidate is a miss, never an error.
type TextPattern struct {
	Name    string
	Text    func(r *Record) string
	Pattern *regexp.Regexp
	Parse   func(match []string, r *Record) (any, bool)
}

func (s TextPattern) Source() string { return s.Name }

func (s TextPattern) Try(_ context.Context, r *Record) (any, bool, error) {
	text := s.Text(r)
	if text == "" {
		return nil, false, nil
	}
	matches := s.Pattern.FindAllStringSubmatch(text, maxPatternMatches)
	for _, m := range matches {
		if v, ok := s.Parse(m, r); ok {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// SpreadsheetColumn scans attached spreadsheets for a column whose header
// the matcher accepts, then walks its cells for a parsable value.
type SpreadsheetColumn struct {
	Name   string
	Header func(header string) bool
	Parse  func(cell string, r *Record) (any, bool)
}

func (s SpreadsheetColumn) Source() string { return s.Name }

func (s SpreadsheetColumn) Try(_ context.Context, r *Record) (any, bool, error) {
	for _, sheet := range r.Sheets {
		col, ok := sheet.Column(s.Header)
		if !ok {
			continue
		}
		for i := range sheet.Rows {
			cell := sheet.Cell(i, col)
			if cell == "" {
				continue
			}
			if v, ok := s.Parse(cell, r); ok {
				return v, true, nil
			}
		}
	}
	return nil, false, nil
}

// LastResortScan hands the whole text to a scanner that returns the first
// plausible value, with no phrasing anchor.
type LastResortScan struct {
	Name string
	Text func(r *Record) string
	Scan func(text string, r *Record) (any, bool)
}

func (s LastResortScan) Source() string { return s.Name }

func (s LastResortScan) Try(_ context.Context, r *Record) (any, bool, error) {
	text := s.Text(r)
	if text == "" {
		return nil, false, nil
	}
	v, ok := s.Scan(text, r)
	return v, ok, nil
}
