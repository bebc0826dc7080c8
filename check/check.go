// Package check runs one status check end to end: authenticate, scrape,
// compare against the persisted state, notify, persist.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ecas-notifier/pkg/ecas"
	"ecas-notifier/scraper"
	"ecas-notifier/storage"
)

// Portal is the authenticated portal session.
type Portal interface {
	Authenticate(ctx context.Context) (html string, err error)
	FetchHistory(ctx context.Context, historyURL string) (html string, err error)
}

// Store persists the last seen status and diagnostic page dumps.
type Store interface {
	LoadStatus(ctx context.Context) (string, error)
	SaveStatus(ctx context.Context, status string) error
	SaveDebug(ctx context.Context, name, html string) error
}

// Emailer delivers the run's notification.
type Emailer interface {
	SendReport(ctx context.Context, report ecas.Report) error
}

// Checker sequences one synchronous, single-pass check.
type Checker struct {
	portal  Portal
	store   Store
	emailer Emailer
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a checker.
func New(portal Portal, store Store, emailer Emailer, logger *slog.Logger) *Checker {
	return &Checker{
		portal:  portal,
		store:   store,
		emailer: emailer,
		logger:  logger,
		now:     time.Now,
	}
}

// Run performs one check. Transport and delivery errors are terminal;
// parsing anomalies degrade to placeholder text, dump the offending page,
// and still produce an email. The new status is persisted strictly after a
// confirmed send, so a delivery failure leaves the previous state intact.
func (c *Checker) Run(ctx context.Context) (*ecas.Summary, error) {
	html, err := c.portal.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("portal authentication: %w", err)
	}

	record := scraper.ParseStatus(html)
	if record.Kind == ecas.StatusNotFound {
		c.logger.Warn("Status link not found on authenticated page, dumping page")
		if err := c.store.SaveDebug(ctx, storage.DebugAuthPage, html); err != nil {
			return nil, fmt.Errorf("dump authenticated page: %w", err)
		}
	} else {
		c.logger.Info("Status extracted",
			"applicant", record.ApplicantName(),
			"status", record.Status,
			"history_url", record.HistoryURL)
	}

	history, err := c.fetchHistory(ctx, record.HistoryURL)
	if err != nil {
		return nil, err
	}

	previous, err := c.store.LoadStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("load previous status: %w", err)
	}

	status := record.StatusText()
	changed := Changed(previous, status)

	c.logger.Info("Change detection",
		"previous", previous,
		"current", status,
		"changed", changed)

	report := ecas.Report{
		RunTime:   c.now(),
		Applicant: record.ApplicantName(),
		Status:    status,
		Previous:  previous,
		Changed:   changed,
		History:   history,
	}

	if err := c.emailer.SendReport(ctx, report); err != nil {
		return nil, fmt.Errorf("send notification: %w", err)
	}

	// Only a confirmed send advances the persisted state.
	if err := c.store.SaveStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("save status: %w", err)
	}

	return &ecas.Summary{Status: status, Changed: changed}, nil
}

func (c *Checker) fetchHistory(ctx context.Context, historyURL string) (ecas.HistoryResult, error) {
	if historyURL == "" {
		return ecas.HistoryResult{Kind: ecas.HistoryNoLink}, nil
	}

	html, err := c.portal.FetchHistory(ctx, historyURL)
	if err != nil {
		return ecas.HistoryResult{}, fmt.Errorf("fetch case history: %w", err)
	}

	history := scraper.ParseHistory(html)
	if history.Kind == ecas.HistoryEmpty {
		c.logger.Warn("No history items found on history page, dumping page")
		if err := c.store.SaveDebug(ctx, storage.DebugHistoryPage, html); err != nil {
			return ecas.HistoryResult{}, fmt.Errorf("dump history page: %w", err)
		}
	} else {
		c.logger.Info("Case history parsed", "entries", len(history.Entries))
	}

	return history, nil
}

// Changed reports whether the status changed across runs. A first run
// (empty previous value) is never flagged as a change.
func Changed(previous, current string) bool {
	return previous != "" && previous != current
}
