package domain

import "fmt"

// Severity of a diagnostic.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityFatal Severity = "fatal"
)

// Diagnostic is a non-fatal condition surfaced as data: an unparseable line,
// a missing route fragment, conflicting DSL options, or an unresolved
// controller reference. The only fatal diagnostic is a missing route root.
type Diagnostic struct {
	Severity Severity
	File     string
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, loc, d.Message)
}

// Diagnostics is an ordered collection with append helpers; evaluation and
// analysis pass a single instance down so ordering matches processing order.
type Diagnostics struct {
	entries []Diagnostic
}

// Infof appends an info diagnostic.
func (ds *Diagnostics) Infof(file string, line int, format string, args ...interface{}) {
	ds.entries = append(ds.entries, Diagnostic{
		Severity: SeverityInfo,
		File:     file,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Warnf appends a warn diagnostic.
func (ds *Diagnostics) Warnf(file string, line int, format string, args ...interface{}) {
	ds.entries = append(ds.entries, Diagnostic{
		Severity: SeverityWarn,
		File:     file,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Fatalf appends a fatal diagnostic.
func (ds *Diagnostics) Fatalf(file string, line int, format string, args ...interface{}) {
	ds.entries = append(ds.entries, Diagnostic{
		Severity: SeverityFatal,
		File:     file,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Extend appends all diagnostics from another collection.
func (ds *Diagnostics) Extend(other []Diagnostic) {
	ds.entries = append(ds.entries, other...)
}

// All returns the collected diagnostics in append order.
func (ds *Diagnostics) All() []Diagnostic {
	return ds.entries
}
