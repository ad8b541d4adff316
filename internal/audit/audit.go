// Package audit compares codes that entered the system outside the allocator
// (spreadsheet imports, manual entry) against the live counters. It never
// writes counter state.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
)

// KeySummary describes the imported codes for one (module type, year).
type KeySummary struct {
	ModuleType   string `json:"module_type" yaml:"module_type"`
	Year         int    `json:"year" yaml:"year"`
	Imported     int    `json:"imported" yaml:"imported"`
	MaxImported  int64  `json:"max_imported" yaml:"max_imported"`
	CounterValue int64  `json:"counter_value" yaml:"counter_value"`
}

// Ahead reports whether a future allocation would collide with an imported code.
func (k KeySummary) Ahead() bool { return k.MaxImported > k.CounterValue }

type Duplicate struct {
	Code string `json:"code" yaml:"code"`
	Rows []int  `json:"rows" yaml:"rows"`
}

type Invalid struct {
	Row    int    `json:"row" yaml:"row"`
	Value  string `json:"value" yaml:"value"`
	Reason string `json:"reason" yaml:"reason"`
}

// NonCanonical is a code padded differently from what the allocator produces
// (TASK-24-0001 for TASK-24-001). It still counts against its key.
type NonCanonical struct {
	Row       int    `json:"row" yaml:"row"`
	Value     string `json:"value" yaml:"value"`
	Canonical string `json:"canonical" yaml:"canonical"`
}

type Report struct {
	Scanned      int            `json:"scanned" yaml:"scanned"`
	Keys         []KeySummary   `json:"keys" yaml:"keys"`
	Duplicates   []Duplicate    `json:"duplicates" yaml:"duplicates"`
	Invalid      []Invalid      `json:"invalid" yaml:"invalid"`
	NonCanonical []NonCanonical `json:"non_canonical" yaml:"non_canonical"`
}

// Collisions returns the keys whose counters are behind the imported codes.
func (r *Report) Collisions() []KeySummary {
	var out []KeySummary
	for _, k := range r.Keys {
		if k.Ahead() {
			out = append(out, k)
		}
	}
	return out
}

// OK is true when nothing needs operator attention.
func (r *Report) OK() bool {
	return len(r.Collisions()) == 0 && len(r.Duplicates) == 0 && len(r.Invalid) == 0
}

// Run groups entries by key and looks up each key's counter once.
func Run(ctx context.Context, inspector counter.Inspector, entries []Entry) (*Report, error) {
	rep := &Report{Scanned: len(entries)}
	summaries := map[counter.Key]*KeySummary{}
	rowsByCode := map[string][]int{}

	for _, e := range entries {
		module, year, n, err := codegen.ParseLenient(e.Code)
		if err != nil {
			rep.Invalid = append(rep.Invalid, Invalid{Row: e.Row, Value: e.Code, Reason: err.Error()})
			continue
		}
		// Padding variants of one sequence number are the same code.
		canonical := string(codegen.Format(module, year, n))
		if canonical != e.Code {
			rep.NonCanonical = append(rep.NonCanonical, NonCanonical{Row: e.Row, Value: e.Code, Canonical: canonical})
		}
		rowsByCode[canonical] = append(rowsByCode[canonical], e.Row)

		key := counter.Key{ModuleType: module, Year: year}
		s, ok := summaries[key]
		if !ok {
			s = &KeySummary{ModuleType: module, Year: year}
			summaries[key] = s
		}
		s.Imported++
		if n > s.MaxImported {
			s.MaxImported = n
		}
	}

	for key, s := range summaries {
		rec, err := inspector.Get(ctx, key)
		switch {
		case err == nil:
			s.CounterValue = rec.Value
		case errors.Is(err, counter.ErrNotFound):
			s.CounterValue = 0
		default:
			return nil, fmt.Errorf("audit %s: %w", key, err)
		}
		rep.Keys = append(rep.Keys, *s)
	}
	sort.Slice(rep.Keys, func(i, j int) bool {
		if rep.Keys[i].Year != rep.Keys[j].Year {
			return rep.Keys[i].Year < rep.Keys[j].Year
		}
		return rep.Keys[i].ModuleType < rep.Keys[j].ModuleType
	})

	for code, rows := range rowsByCode {
		if len(rows) > 1 {
			rep.Duplicates = append(rep.Duplicates, Duplicate{Code: code, Rows: rows})
		}
	}
	sort.Slice(rep.Duplicates, func(i, j int) bool { return rep.Duplicates[i].Code < rep.Duplicates[j].Code })
	return rep, nil
}
