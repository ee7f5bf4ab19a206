package registry

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Validation status codes, ordered by severity.
const (
	StatusOK       = 0 // no findings
	StatusWarnings = 1 // non-critical findings only
	StatusErrors   = 2 // errors worth correcting, table still produced
	StatusFatal    = 3 // no canonical table can be produced
)

// Report accumulates validation findings by severity. Fatal findings
// abort the registry stage before any artifact is written; warnings and
// errors are persisted to the warnings log.
type Report struct {
	Warnings []string
	Errors   []string
	Fatals   []string
}

func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) Fatalf(format string, args ...any) {
	r.Fatals = append(r.Fatals, fmt.Sprintf(format, args...))
}

// Status returns the overall severity of the report.
func (r *Report) Status() int {
	switch {
	case len(r.Fatals) > 0:
		return StatusFatal
	case len(r.Errors) > 0:
		return StatusErrors
	case len(r.Warnings) > 0:
		return StatusWarnings
	}
	return StatusOK
}

// Fatal reports whether validation must abort.
func (r *Report) Fatal() bool {
	return len(r.Fatals) > 0
}

// Err collapses the fatal findings into a single error, nil if none.
func (r *Report) Err() error {
	if !r.Fatal() {
		return nil
	}
	return fmt.Errorf("sample validation failed:\n%s", joinLines(r.Fatals))
}

// Write renders the report in the section format of the warnings log,
// one line per finding.
func (r *Report) Write(w io.Writer) error {
	if len(r.Fatals) > 0 {
		fmt.Fprintln(w, "===== FATAL ERRORS =====")
		for _, m := range r.Fatals {
			fmt.Fprintln(w, m)
		}
		fmt.Fprintln(w)
		return nil
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "===== ERRORS =====")
		for _, m := range r.Errors {
			fmt.Fprintln(w, m)
		}
		fmt.Fprintln(w)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "===== WARNINGS =====")
		for _, m := range r.Warnings {
			fmt.Fprintln(w, m)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		fmt.Fprintln(w, "===== VALIDATION OK =====")
		fmt.Fprintln(w, "No problems found in the sample file.")
	}
	return nil
}

func (r *Report) String() string {
	var b strings.Builder
	_ = r.Write(&b)
	return b.String()
}

// WriteFile persists the report to the warnings log path.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing validation report: %w", err)
	}
	defer f.Close()
	return r.Write(f)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
