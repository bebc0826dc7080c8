package scraper

import (
	"net/url"
	"strings"

	"ecas-notifier/pkg/ecas"

	"github.com/PuerkitoBio/goquery"
)

// historyLinkSelector matches the case-history link on the authenticated
// page. The status text lives in this link's visible text.
const historyLinkSelector = `a[href^="viewcasehistory.do"]`

// ParseStatus extracts the applicant name, status text, and case-history URL
// from the post-authentication page. It is pure: when the expected markup is
// absent it returns a StatusNotFound record and the caller decides whether
// to persist the page for inspection.
func ParseStatus(html string) ecas.StatusRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ecas.StatusRecord{Kind: ecas.StatusNotFound}
	}

	link := doc.Find(historyLinkSelector).First()
	if link.Length() == 0 {
		return ecas.StatusRecord{Kind: ecas.StatusNotFound}
	}

	status := collapseWhitespace(link.Text())

	href, _ := link.Attr("href")
	historyURL := resolveHistoryURL(href)

	// The applicant name sits in the first cell of the row holding the link.
	var name string
	if row := link.Closest("tr"); row.Length() > 0 {
		if cell := row.Find("td").First(); cell.Length() > 0 {
			name = collapseWhitespace(cell.Text())
		}
	}

	return ecas.StatusRecord{
		Kind:       ecas.StatusFound,
		Name:       name,
		Status:     status,
		HistoryURL: historyURL,
	}
}

// resolveHistoryURL turns the page-relative case-history href into an
// absolute URL against the portal base.
func resolveHistoryURL(href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(DefaultBaseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// collapseWhitespace trims s and folds internal whitespace runs to single
// spaces, matching how the portal's markup interleaves text and tags.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
