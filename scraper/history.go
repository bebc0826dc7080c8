package scraper

import (
	"strings"

	"ecas-notifier/pkg/ecas"

	"github.com/PuerkitoBio/goquery"
)

// historyItemSelector matches one case-history bullet on the history page.
// The portal renders each event as a list item carrying this WET-toolkit
// spacing class.
const historyItemSelector = "li.mrgn-bttm-sm"

// ParseHistory extracts the case-history entries in document order. It is
// pure: when no items match it returns a HistoryEmpty result and the caller
// decides whether to persist the page for inspection.
func ParseHistory(html string) ecas.HistoryResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ecas.HistoryResult{Kind: ecas.HistoryEmpty}
	}

	var entries []string
	doc.Find(historyItemSelector).Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			entries = append(entries, text)
		}
	})

	if len(entries) == 0 {
		return ecas.HistoryResult{Kind: ecas.HistoryEmpty}
	}
	return ecas.HistoryResult{Kind: ecas.HistoryFound, Entries: entries}
}
