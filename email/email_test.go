package email

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"ecas-notifier/pkg/ecas"

	"github.com/stretchr/testify/require"
)

func testReport() ecas.Report {
	return ecas.Report{
		RunTime:   time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC),
		Applicant: "DOE, JOHN",
		Status:    "In process",
		Previous:  "",
		Changed:   false,
		History: ecas.HistoryResult{
			Kind:    ecas.HistoryFound,
			Entries: []string{"Submitted", "Biometrics given"},
		},
	}
}

func TestSubject(t *testing.T) {
	report := testReport()
	require.Equal(t, "eCAS: In process", Subject(report))

	report.Changed = true
	require.Equal(t, "eCAS: In process 🆕", Subject(report))
}

func TestBodyFirstRun(t *testing.T) {
	body := Body(testReport())

	want := "Run time: 2026-08-28 09:30:00\n" +
		"Applicant: DOE, JOHN\n" +
		"Current status: In process\n" +
		"Previous status: (first run)\n" +
		"Changed: NO\n" +
		"\n" +
		"Case history:\n" +
		"- Submitted\n- Biometrics given"
	require.Equal(t, want, body)
}

func TestBodyChangedRun(t *testing.T) {
	report := testReport()
	report.Previous = "Submitted"
	report.Changed = true

	body := Body(report)
	require.Contains(t, body, "Previous status: Submitted")
	require.Contains(t, body, "Changed: YES")
}

func TestBodyHistoryPlaceholders(t *testing.T) {
	report := testReport()

	report.History = ecas.HistoryResult{Kind: ecas.HistoryNoLink}
	require.Contains(t, Body(report), ecas.HistoryNoLinkText)

	report.History = ecas.HistoryResult{Kind: ecas.HistoryEmpty}
	require.Contains(t, Body(report), ecas.HistoryNotFoundText)
}

type captureProvider struct {
	to      string
	subject string
	body    string
	err     error
}

func (c *captureProvider) Send(_ context.Context, to, subject, textBody string) error {
	c.to = to
	c.subject = subject
	c.body = textBody
	return c.err
}

func TestSenderSendReport(t *testing.T) {
	provider := &captureProvider{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := New(provider, "me@example.com", logger)

	require.NoError(t, sender.SendReport(context.Background(), testReport()))
	require.Equal(t, "me@example.com", provider.to)
	require.Equal(t, "eCAS: In process", provider.subject)
	require.Contains(t, provider.body, "- Submitted\n- Biometrics given")
}

func TestSanitizeHeader(t *testing.T) {
	require.Equal(t, "eCAS: In processBcc: x@y.z", sanitizeHeader("eCAS: In process\r\nBcc: x@y.z"))
	require.Equal(t, "plain", sanitizeHeader("plain"))
}
