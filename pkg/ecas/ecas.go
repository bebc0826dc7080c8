// Package ecas contains the core domain types for the eCAS status checker.
package ecas

import (
	"strings"
	"time"
)

// Rendered placeholder text. The checker branches on result kinds, never on
// these strings; they exist only for the email body and the state file.
const (
	NameNotFoundText     = "(name not found)"
	StatusNotFoundText   = "⚠️ Status not found (see debug_ecas_after_auth.html)"
	HistoryNoLinkText    = "(no case history link found)"
	HistoryNotFoundText  = "⚠️ No case history items found (see debug_case_history.html)"
	PreviousFirstRunText = "(first run)"
)

// Credentials identify the applicant to the portal. Supplied by
// configuration, immutable for the run, never persisted.
type Credentials struct {
	Identifier     string // Client ID / UCI
	IdentifierType string // Identifier type code ("1" = Client ID)
	Surname        string
	DateOfBirth    string // YYYY-MM-DD
	CountryOfBirth string // Numeric country code
}

// StatusKind tags the outcome of parsing the post-authentication page.
type StatusKind int

const (
	// StatusFound means the case-history link and status text were located.
	StatusFound StatusKind = iota
	// StatusNotFound means the expected markup was absent. The run still
	// completes and emails the anomaly instead of failing.
	StatusNotFound
)

// StatusRecord is the result of scraping the authenticated status page.
type StatusRecord struct {
	Kind       StatusKind
	Name       string // Applicant name, may be empty even when found
	Status     string // Status text, set only when Kind == StatusFound
	HistoryURL string // Absolute case-history URL, empty when not found
}

// ApplicantName returns the applicant name or its placeholder.
func (r StatusRecord) ApplicantName() string {
	if r.Kind != StatusFound || r.Name == "" {
		return NameNotFoundText
	}
	return r.Name
}

// StatusText returns the status text or its placeholder.
func (r StatusRecord) StatusText() string {
	if r.Kind != StatusFound {
		return StatusNotFoundText
	}
	return r.Status
}

// HistoryKind tags the outcome of fetching and parsing the case history.
type HistoryKind int

const (
	// HistoryFound means at least one history item was extracted.
	HistoryFound HistoryKind = iota
	// HistoryEmpty means the history page was fetched but no items matched.
	HistoryEmpty
	// HistoryNoLink means the status page carried no case-history link, so
	// no request was made.
	HistoryNoLink
)

// HistoryResult holds the case-history entries in document order.
type HistoryResult struct {
	Kind    HistoryKind
	Entries []string
}

// Render formats the history for the email body: one dash-prefixed line per
// entry, or the placeholder matching the result kind.
func (h HistoryResult) Render() string {
	switch h.Kind {
	case HistoryNoLink:
		return HistoryNoLinkText
	case HistoryEmpty:
		return HistoryNotFoundText
	default:
	}
	var b strings.Builder
	for i, e := range h.Entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(e)
	}
	return b.String()
}

// Report is everything the notification email is composed from.
type Report struct {
	RunTime   time.Time
	Applicant string
	Status    string
	Previous  string // Last persisted status, empty on first run
	Changed   bool
	History   HistoryResult
}

// Summary is returned by a successful run for the terminal output.
type Summary struct {
	Status  string
	Changed bool
}
