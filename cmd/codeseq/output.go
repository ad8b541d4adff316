package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aimhigh31/work-ten-sub018/internal/audit"
	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
)

var errAuditFindings = errors.New("audit found problems")

func printStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case "table", "":
		return false, nil
	default:
		return true, fmt.Errorf("unsupported output format %q", format)
	}
}

func printRecords(w io.Writer, format string, recs []counter.Record) error {
	if done, err := printStructured(w, format, recs); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tYEAR\tVALUE\tNEXT\tUPDATED")
	for _, r := range recs {
		updated := "-"
		if !r.UpdatedAt.IsZero() {
			updated = r.UpdatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", r.ModuleType, r.Year, r.Value, codegen.Format(r.ModuleType, r.Year, r.Value+1), updated)
	}
	return tw.Flush()
}

func printAudit(w io.Writer, format string, rep *audit.Report) error {
	if done, err := printStructured(w, format, rep); done {
		return err
	}
	fmt.Fprintf(w, "Scanned %d codes across %d keys\n\n", rep.Scanned, len(rep.Keys))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tYEAR\tIMPORTED\tMAX IMPORTED\tCOUNTER\tSTATUS")
	for _, k := range rep.Keys {
		status := "ok"
		if k.Ahead() {
			status = fmt.Sprintf("BEHIND by %d", k.MaxImported-k.CounterValue)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", k.ModuleType, k.Year, k.Imported, k.MaxImported, k.CounterValue, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, d := range rep.Duplicates {
		fmt.Fprintf(w, "duplicate %s on rows %v\n", d.Code, d.Rows)
	}
	for _, inv := range rep.Invalid {
		fmt.Fprintf(w, "row %d: %q: %s\n", inv.Row, inv.Value, inv.Reason)
	}
	for _, nc := range rep.NonCanonical {
		fmt.Fprintf(w, "row %d: %s counted as %s\n", nc.Row, nc.Value, nc.Canonical)
	}
	return nil
}

// exitCode: 1 for failures, 2 for invalid input, 3 when audit found problems.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errAuditFindings):
		return 3
	case errors.Is(err, codegen.ErrInvalidInput):
		return 2
	default:
		return 1
	}
}
