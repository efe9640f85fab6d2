package mailsource

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIMAPMessageSender(t *testing.T) {
	msg := &imapMessage{envelope: &imap.Envelope{
		From: []*imap.Address{{MailboxName: "IR", HostName: "Romspen.com"}},
	}}
	assert.Equal(t, "ir@romspen.com", msg.Sender())

	assert.Equal(t, "", (&imapMessage{}).Sender())
	assert.Equal(t, "", (&imapMessage{envelope: &imap.Envelope{}}).Sender())
}

func TestIMAPMessageReceivedFallsBackToInternalDate(t *testing.T) {
	envDate := time.Date(2024, time.January, 2, 9, 14, 0, 0, time.UTC)
	internal := time.Date(2024, time.January, 2, 9, 15, 0, 0, time.UTC)

	got, ok := (&imapMessage{envelope: &imap.Envelope{Date: envDate}, internalDate: internal}).Received()
	require.True(t, ok)
	assert.Equal(t, envDate, got, "envelope date wins when present")

	got, ok = (&imapMessage{envelope: &imap.Envelope{}, internalDate: internal}).Received()
	require.True(t, ok)
	assert.Equal(t, internal, got)

	_, ok = (&imapMessage{envelope: &imap.Envelope{}}).Received()
	assert.False(t, ok, "drafts have no usable timestamp")
}

func TestIMAPMessageAttachments(t *testing.T) {
	raw := strings.Join([]string{
		"From: ir@romspen.com",
		"To: team@example.com",
		"Subject: Weekly report",
		"Date: Tue, 02 Jan 2024 09:14:00 +0000",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/plain",
		"",
		"Numbers attached.",
		"--BOUNDARY",
		"Content-Type: application/octet-stream",
		`Content-Disposition: attachment; filename="report.xlsx"`,
		"",
		"spreadsheet bytes",
		"--BOUNDARY--",
		"",
	}, "\r\n")

	msg := &imapMessage{raw: []byte(raw)}
	atts, err := msg.Attachments()
	require.NoError(t, err)
	require.Len(t, atts, 1, "inline parts are not attachments")

	assert.Equal(t, "report.xlsx", atts[0].Filename())

	rc, err := atts[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "spreadsheet bytes", string(data))
}

func TestIMAPMessageNoAttachments(t *testing.T) {
	raw := strings.Join([]string{
		"From: ir@romspen.com",
		"Subject: just text",
		"Date: Tue, 02 Jan 2024 09:14:00 +0000",
		"Content-Type: text/plain",
		"",
		"No files this week.",
		"",
	}, "\r\n")

	atts, err := (&imapMessage{raw: []byte(raw)}).Attachments()
	require.NoError(t, err)
	assert.Empty(t, atts)
}
