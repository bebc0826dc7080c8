// Package scraper handles the eCAS portal session and page parsing. The
// Client owns the cookie-carrying HTTP session; the parsers in status.go and
// history.go are pure functions over raw HTML.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"time"

	"ecas-notifier/pkg/ecas"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the fixed portal base. Page-relative hrefs (the case
// history link) resolve against it.
const DefaultBaseURL = "https://services3.cic.gc.ca/ecas/"

const (
	securityPath     = "security.do"
	authenticatePath = "authenticate.do"

	requestTimeout = 30 * time.Second

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Client is an authenticated-session client for the portal. One Client is
// created per run and discarded at run end; the cookie jar is the only
// session state.
type Client struct {
	http    *resty.Client
	baseURL *url.URL
	creds   ecas.Credentials
	logger  *slog.Logger
}

// New creates a portal client rooted at baseURL (DefaultBaseURL outside of
// tests).
func New(baseURL string, creds ecas.Credentials, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(requestTimeout)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))

	// Browser-like headers; the portal is not built for programmatic access.
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-CA,en;q=0.9")

	return &Client{
		http:    client,
		baseURL: base,
		creds:   creds,
		logger:  logger,
	}, nil
}

// Authenticate walks the portal's entry flow: load the terms page, agree to
// the terms, then submit the identity form. It returns the raw HTML of the
// post-authentication response. Any transport error or non-2xx status aborts
// the run; there are no retries.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if err := c.acceptTerms(ctx); err != nil {
		return "", err
	}

	c.logger.Info("Submitting identity form",
		"url", authenticatePath,
		"identifier_type", c.creds.IdentifierType)

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"lang":           "",
			"_page":          "_target0",
			"app":            "ecas",
			"identifierType": c.creds.IdentifierType,
			"identifier":     c.creds.Identifier,
			"surname":        c.creds.Surname,
			"dateOfBirth":    c.creds.DateOfBirth,
			"countryOfBirth": c.creds.CountryOfBirth,
			"_submit":        "Continue",
		}).
		Post(authenticatePath)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("authenticate: HTTP %d", res.StatusCode())
	}

	c.logger.Info("Authenticated against portal",
		"status_code", res.StatusCode(),
		"body_bytes", len(res.Body()))

	return res.String(), nil
}

// acceptTerms loads the security page to establish the session cookie, then
// posts the terms agreement.
func (c *Client) acceptTerms(ctx context.Context) error {
	c.logger.Info("Loading terms page", "url", securityPath)

	res, err := c.http.R().
		SetContext(ctx).
		Get(securityPath)
	if err != nil {
		return fmt.Errorf("load terms page: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("load terms page: HTTP %d", res.StatusCode())
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"lang":        "",
			"app":         "ecas",
			"securityInd": "agree",
			"_target1":    "Continue",
		}).
		Post(securityPath)
	if err != nil {
		return fmt.Errorf("accept terms: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("accept terms: HTTP %d", res.StatusCode())
	}

	c.logger.Info("Terms accepted", "status_code", res.StatusCode())
	return nil
}

// FetchHistory retrieves the case-history page through the authenticated
// session. historyURL must be absolute (ParseStatus resolves it).
func (c *Client) FetchHistory(ctx context.Context, historyURL string) (string, error) {
	c.logger.Info("Fetching case history", "url", historyURL)

	res, err := c.http.R().
		SetContext(ctx).
		Get(historyURL)
	if err != nil {
		return "", fmt.Errorf("fetch case history: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("fetch case history: HTTP %d", res.StatusCode())
	}

	c.logger.Info("Case history fetched",
		"status_code", res.StatusCode(),
		"body_bytes", len(res.Body()))

	return res.String(), nil
}
