// Package models defines the data structures shared across the search run.
package models

import "time"

// Assessment classifies a single piece of evidence.
type Assessment string

const (
	// Historical marks evidence that the historical indicator set outscored
	// the current indicator set.
	Historical Assessment = "historical"
	// Current marks evidence that the current indicator set outscored the
	// historical indicator set.
	Current Assessment = "current"
	// Indeterminate marks evidence with tied indicator scores, including
	// windows with no signal at all.
	Indeterminate Assessment = "indeterminate"
	// ProductDB marks a record returned by the product database lookup.
	ProductDB Assessment = "product_db"
	// Snapshot marks a hit from the snapshot archive lookup.
	Snapshot Assessment = "snapshot"
	// Marketplace marks a hit from the marketplace lookup.
	Marketplace Assessment = "marketplace"
)

// AssessmentOrder is the fixed presentation order for grouped findings.
var AssessmentOrder = []Assessment{Historical, Current, Indeterminate, ProductDB, Snapshot, Marketplace}

// UnknownClue is the explicit value used when no temporal clue or product
// name could be extracted. It is never the empty string.
const UnknownClue = "unidentified"

// Candidate is one web-search hit for a single term.
type Candidate struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Finding is one classified piece of textual evidence about the code.
type Finding struct {
	ProductName string     `csv:"product_name" json:"product_name"`
	DateClue    string     `csv:"date_clue" json:"date_clue"`
	Assessment  Assessment `csv:"assessment" json:"assessment"`
	Snippet     string     `csv:"snippet" json:"snippet"`
	SourceURL   string     `csv:"source_url" json:"source_url"`
}

// SourceResult holds the findings extracted from exactly one source URL.
// Source results are never merged before reaching the aggregator.
type SourceResult struct {
	SourceURL string    `json:"source_url"`
	Findings  []Finding `json:"findings"`
}

// RunStats carries aggregate counters for one run. Reporting only, never
// control flow.
type RunStats struct {
	StartTime    time.Time
	EndTime      time.Time
	TermCount    int
	URLCount     int
	FindingCount int
	ErrorCount   int
	RetryCount   int
}

// Elapsed returns the wall-clock duration of the run.
func (s RunStats) Elapsed() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// ResultSet is the complete output of one run: the union of all non-empty
// source results. Membership is independent of task completion order.
type ResultSet struct {
	Code    string          `json:"code"`
	Sources []*SourceResult `json:"sources"`
	Stats   RunStats        `json:"-"`
}

// TotalFindings counts findings across all sources.
func (rs *ResultSet) TotalFindings() int {
	n := 0
	for _, src := range rs.Sources {
		n += len(src.Findings)
	}
	return n
}

// ExportRow is the flat per-finding record written by the export writers.
type ExportRow struct {
	Code        string `csv:"code" json:"code"`
	URL         string `csv:"url" json:"url"`
	ProductName string `csv:"product_name" json:"product_name"`
	DateClue    string `csv:"date_clue" json:"date_clue"`
	Assessment  string `csv:"assessment" json:"assessment"`
	Snippet     string `csv:"snippet" json:"snippet"`
}
