package imap

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMessageWithAttachment(filename string, content []byte) string {
	encoded := base64.StdEncoding.EncodeToString(content)
	return fmt.Sprintf(`From: google-noreply@google.com
To: dmarc@example.com
Subject: Report domain: example.com
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="BOUNDARY"

--BOUNDARY
Content-Type: text/plain

This is an aggregate report.

--BOUNDARY
Content-Type: application/zip; name="%s"
Content-Disposition: attachment; filename="%s"
Content-Transfer-Encoding: base64

%s
--BOUNDARY--
`, filename, filename, encoded)
}

func TestExtractAttachments(t *testing.T) {
	content := []byte("<feedback/>")
	raw := rawMessageWithAttachment("google.com!example.com!1700000000!1700086400.zip", content)

	attachments, err := extractAttachments(strings.NewReader(raw))

	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "google.com!example.com!1700000000!1700086400.zip", attachments[0].Filename)
	assert.Equal(t, content, attachments[0].Content)
	assert.Equal(t, len(content), attachments[0].DeclaredSize)
}

func TestExtractAttachments_NoAttachments(t *testing.T) {
	raw := `From: someone@example.com
To: dmarc@example.com
Subject: plain email
Content-Type: text/plain

no attachments here
`

	attachments, err := extractAttachments(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Empty(t, attachments)
}

func TestExtractAttachments_InlineWithFilenameCounts(t *testing.T) {
	content := []byte("<feedback/>")
	encoded := base64.StdEncoding.EncodeToString(content)
	raw := fmt.Sprintf(`From: reports@mailer.example.net
To: dmarc@example.com
Subject: dmarc report
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="BOUNDARY"

--BOUNDARY
Content-Type: application/gzip; name="report.xml.gz"
Content-Disposition: inline; filename="report.xml.gz"
Content-Transfer-Encoding: base64

%s
--BOUNDARY--
`, encoded)

	attachments, err := extractAttachments(strings.NewReader(raw))

	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "report.xml.gz", attachments[0].Filename)
}
