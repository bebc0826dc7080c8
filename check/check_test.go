package check

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"ecas-notifier/pkg/ecas"
	"ecas-notifier/storage"

	"github.com/stretchr/testify/require"
)

const authPage = `<html><body><table>
<tr><td>DOE, JOHN</td><td><a href="viewcasehistory.do?id=42">In process</a></td></tr>
</table></body></html>`

const historyPage = `<html><body><ul>
<li class="mrgn-bttm-sm">Submitted</li>
<li class="mrgn-bttm-sm">Biometrics given</li>
</ul></body></html>`

type fakePortal struct {
	authHTML    string
	authErr     error
	historyHTML string
	historyErr  error
	historyURL  string
}

func (f *fakePortal) Authenticate(context.Context) (string, error) {
	return f.authHTML, f.authErr
}

func (f *fakePortal) FetchHistory(_ context.Context, url string) (string, error) {
	f.historyURL = url
	return f.historyHTML, f.historyErr
}

type fakeStore struct {
	previous string
	loadErr  error
	saveErr  error
	saved    []string
	dumps    map[string]string
	calls    []string
}

func (f *fakeStore) LoadStatus(context.Context) (string, error) {
	f.calls = append(f.calls, "load")
	return f.previous, f.loadErr
}

func (f *fakeStore) SaveStatus(_ context.Context, status string) error {
	f.calls = append(f.calls, "save")
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, status)
	return nil
}

func (f *fakeStore) SaveDebug(_ context.Context, name, html string) error {
	if f.dumps == nil {
		f.dumps = map[string]string{}
	}
	f.dumps[name] = html
	return nil
}

type fakeEmailer struct {
	reports []ecas.Report
	err     error
	calls   *[]string
}

func (f *fakeEmailer) SendReport(_ context.Context, report ecas.Report) error {
	if f.calls != nil {
		*f.calls = append(*f.calls, "send")
	}
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, report)
	return nil
}

func newChecker(portal *fakePortal, store *fakeStore, emailer *fakeEmailer) *Checker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(portal, store, emailer, logger)
}

func TestRunFirstRun(t *testing.T) {
	portal := &fakePortal{authHTML: authPage, historyHTML: historyPage}
	store := &fakeStore{}
	emailer := &fakeEmailer{calls: &store.calls}

	summary, err := newChecker(portal, store, emailer).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, "In process", summary.Status)
	require.False(t, summary.Changed, "first run must never be flagged as a change")

	require.Equal(t, "https://services3.cic.gc.ca/ecas/viewcasehistory.do?id=42", portal.historyURL)
	require.Equal(t, []string{"In process"}, store.saved)
	require.Empty(t, store.dumps)

	require.Len(t, emailer.reports, 1)
	report := emailer.reports[0]
	require.Equal(t, "DOE, JOHN", report.Applicant)
	require.Equal(t, "In process", report.Status)
	require.Equal(t, "", report.Previous)
	require.Equal(t, []string{"Submitted", "Biometrics given"}, report.History.Entries)

	// State advances only after the send is confirmed.
	require.Equal(t, []string{"load", "send", "save"}, store.calls)
}

func TestRunStatusChanged(t *testing.T) {
	portal := &fakePortal{authHTML: authPage, historyHTML: historyPage}
	store := &fakeStore{previous: "Submitted"}
	emailer := &fakeEmailer{}

	summary, err := newChecker(portal, store, emailer).Run(context.Background())
	require.NoError(t, err)

	require.True(t, summary.Changed)
	require.True(t, emailer.reports[0].Changed)
	require.Equal(t, "Submitted", emailer.reports[0].Previous)
}

func TestRunStatusUnchanged(t *testing.T) {
	portal := &fakePortal{authHTML: authPage, historyHTML: historyPage}
	store := &fakeStore{previous: "In process"}
	emailer := &fakeEmailer{}

	summary, err := newChecker(portal, store, emailer).Run(context.Background())
	require.NoError(t, err)

	require.False(t, summary.Changed)
	require.Len(t, emailer.reports, 1, "an email goes out even without a change")
}

func TestRunStatusLinkMissing(t *testing.T) {
	portal := &fakePortal{authHTML: "<html><body>nothing here</body></html>"}
	store := &fakeStore{}
	emailer := &fakeEmailer{}

	summary, err := newChecker(portal, store, emailer).Run(context.Background())
	require.NoError(t, err, "a parsing anomaly must not fail the run")

	require.Equal(t, ecas.StatusNotFoundText, summary.Status)
	require.Equal(t, portal.authHTML, store.dumps[storage.DebugAuthPage], "page must be dumped byte-for-byte")
	require.Empty(t, portal.historyURL, "no history request without a link")

	require.Len(t, emailer.reports, 1)
	require.Equal(t, ecas.HistoryNoLink, emailer.reports[0].History.Kind)
	require.Equal(t, []string{ecas.StatusNotFoundText}, store.saved)
}

func TestRunHistoryEmpty(t *testing.T) {
	portal := &fakePortal{authHTML: authPage, historyHTML: "<html><body>no bullets</body></html>"}
	store := &fakeStore{}
	emailer := &fakeEmailer{}

	_, err := newChecker(portal, store, emailer).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, portal.historyHTML, store.dumps[storage.DebugHistoryPage])
	require.Equal(t, ecas.HistoryEmpty, emailer.reports[0].History.Kind)
}

func TestRunAuthFailure(t *testing.T) {
	portal := &fakePortal{authErr: errors.New("HTTP 503")}
	store := &fakeStore{}
	emailer := &fakeEmailer{}

	_, err := newChecker(portal, store, emailer).Run(context.Background())
	require.Error(t, err)
	require.Empty(t, store.saved, "no partial state on transport failure")
	require.Empty(t, emailer.reports, "no email on transport failure")
}

func TestRunHistoryFetchFailure(t *testing.T) {
	portal := &fakePortal{authHTML: authPage, historyErr: errors.New("HTTP 500")}
	store := &fakeStore{}
	emailer := &fakeEmailer{}

	_, err := newChecker(portal, store, emailer).Run(context.Background())
	require.Error(t, err)
	require.Empty(t, store.saved)
	require.Empty(t, emailer.reports)
}

func TestRunSendFailureLeavesStateUntouched(t *testing.T) {
	portal := &fakePortal{authHTML: authPage, historyHTML: historyPage}
	store := &fakeStore{previous: "Submitted"}
	emailer := &fakeEmailer{err: errors.New("authentication failed")}

	_, err := newChecker(portal, store, emailer).Run(context.Background())
	require.Error(t, err)
	require.Empty(t, store.saved, "state must not advance when the send fails")
}

func TestChanged(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		current  string
		want     bool
	}{
		{"first run", "", "X", false},
		{"same status", "X", "X", false},
		{"different status", "X", "Y", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Changed(tt.previous, tt.current))
		})
	}
}
