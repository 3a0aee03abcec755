package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse_PlainText(t *testing.T) {
	raw := strings.Join([]string{
		"From: Ops Team <Ops@Example.com>",
		"To: helpdesk@example.com",
		"Subject: VPN is down",
		"Date: Fri, 14 Mar 2025 09:26:53 +0000",
		"Message-ID: <abc123@example.com>",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"The VPN gateway stopped responding this morning.",
		"",
	}, "\r\n")

	email, err := NewParser().Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "ops@example.com", email.From)
	assert.Equal(t, "helpdesk@example.com", email.To)
	assert.Equal(t, "VPN is down", email.Subject)
	assert.Equal(t, "The VPN gateway stopped responding this morning.", email.Body)
	assert.Equal(t, "<abc123@example.com>", email.MessageID)
}

func TestParser_Parse_MultipartPrefersPlainText(t *testing.T) {
	raw := strings.Join([]string{
		"From: user@example.com",
		"Subject: Printer jam",
		`Content-Type: multipart/alternative; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><b>HTML version</b></body></html>",
		"--BOUNDARY",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Plain text version",
		"--BOUNDARY--",
		"",
	}, "\r\n")

	email, err := NewParser().Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Plain text version", email.Body)
}

func TestParser_Parse_HTMLOnlyIsStripped(t *testing.T) {
	raw := strings.Join([]string{
		"From: user@example.com",
		"Subject: Outage",
		`Content-Type: multipart/alternative; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>Server&nbsp;is <b>down</b> &amp; unreachable</p>",
		"--BOUNDARY--",
		"",
	}, "\r\n")

	email, err := NewParser().Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Server is down & unreachable", email.Body)
}

func TestParser_Parse_QuotedPrintableBody(t *testing.T) {
	raw := strings.Join([]string{
		"From: user@example.com",
		"Subject: Accents",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"caf=C3=A9 is closed",
		"",
	}, "\r\n")

	email, err := NewParser().Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "café is closed", email.Body)
}

func TestParser_Parse_MissingSubject(t *testing.T) {
	raw := "From: user@example.com\r\n\r\nbody text\r\n"

	email, err := NewParser().Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "No Subject", email.Subject)
}

func TestParser_Parse_Invalid(t *testing.T) {
	_, err := NewParser().Parse([]byte("not an email"))
	assert.Error(t, err)
}

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "john@example.com", ExtractAddress("John Doe <John@Example.com>"))
	assert.Equal(t, "jane@example.com", ExtractAddress("Jane@Example.com"))
	assert.Equal(t, "", ExtractAddress(""))
}

func TestInboundEmail_Content(t *testing.T) {
	e := &InboundEmail{Subject: "VPN down", Body: "No connectivity."}
	assert.Equal(t, "VPN down\n\nNo connectivity.", e.Content())
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, `say "hi" <now>`, StripHTML(`<div>say &quot;hi&quot;   &lt;now&gt;</div>`))
}
