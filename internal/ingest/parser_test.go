package ingest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-ai/internal/ingest"
	"github.com/nhle/inbox-ai/internal/source"
)

func rawMessage(headers map[string]string, body string) []byte {
	var b strings.Builder
	for key, value := range headers {
		b.WriteString(key + ": " + value + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func TestParseMessagePlainText(t *testing.T) {
	raw := rawMessage(map[string]string{
		"From":         "Alice <alice@example.com>",
		"To":           "me@example.com, bob@example.com",
		"Cc":           "carol@example.com",
		"Subject":      "Quarterly numbers",
		"Message-Id":   "<msg-1@example.com>",
		"Date":         "Sat, 01 Aug 2026 10:00:00 +0000",
		"Content-Type": "text/plain; charset=utf-8",
	}, "Please send the numbers.\r\n")

	env, err := ingest.ParseMessage("INBOX", source.Message{UID: 5, Raw: raw})
	require.NoError(t, err)
	require.Equal(t, uint32(5), env.UID)
	require.Equal(t, "INBOX", env.Mailbox)
	require.Equal(t, "Quarterly numbers", env.Subject)
	require.Equal(t, "alice@example.com", env.Sender)
	require.Equal(t, []string{"me@example.com", "bob@example.com"}, env.To)
	require.Equal(t, []string{"carol@example.com"}, env.Cc)
	require.Contains(t, env.BodyText, "Please send the numbers.")
	require.NotNil(t, env.SentAt)
	require.Equal(t, 2026, env.SentAt.Year())
}

func TestParseMessageMultipart(t *testing.T) {
	raw := []byte("From: alice@example.com\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Report attached\r\n" +
		"Message-Id: <msg-2@example.com>\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"xyz\"\r\n" +
		"\r\n" +
		"--xyz\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"See attachment.\r\n" +
		"--xyz\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>See attachment.</p>\r\n" +
		"--xyz\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
		"\r\n" +
		"PDFDATA\r\n" +
		"--xyz--\r\n")

	env, err := ingest.ParseMessage("INBOX", source.Message{UID: 6, Raw: raw})
	require.NoError(t, err)
	require.Contains(t, env.BodyText, "See attachment.")
	require.Contains(t, env.BodyHTML, "<p>See attachment.</p>")
	require.Len(t, env.Attachments, 1)
	require.Equal(t, "report.pdf", env.Attachments[0].Filename)
	require.Equal(t, "application/pdf", env.Attachments[0].ContentType)
	require.Positive(t, env.Attachments[0].Size)
}

func TestParseMessageWithoutMIMEHeaders(t *testing.T) {
	raw := rawMessage(map[string]string{
		"From":       "alice@example.com",
		"To":         "me@example.com",
		"Subject":    "no mime here",
		"Message-Id": "<msg-3@example.com>",
	}, "Just a bare body.\r\nSecond line.\r\n")

	env, err := ingest.ParseMessage("INBOX", source.Message{UID: 7, Raw: raw})
	require.NoError(t, err)
	require.Contains(t, env.BodyText, "Just a bare body.")
	require.Contains(t, env.BodyText, "Second line.")
	require.Empty(t, env.BodyHTML)
	require.Empty(t, env.Attachments)
}

func TestParseMessageThreadIDResolution(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name: "thread index wins",
			headers: map[string]string{
				"Thread-Index": "AdG4xQ==",
				"In-Reply-To":  "<parent@example.com>",
				"Message-Id":   "<self@example.com>",
			},
			want: "AdG4xQ==",
		},
		{
			name: "in-reply-to before references",
			headers: map[string]string{
				"In-Reply-To": "<parent@example.com>",
				"References":  "<root@example.com> <parent@example.com>",
				"Message-Id":  "<self@example.com>",
			},
			want: "parent@example.com",
		},
		{
			name: "references fallback",
			headers: map[string]string{
				"References": "<root@example.com>",
				"Message-Id": "<self@example.com>",
			},
			want: "root@example.com",
		},
		{
			name: "message id last resort",
			headers: map[string]string{
				"Message-Id": "<self@example.com>",
			},
			want: "self@example.com",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{
				"From":         "alice@example.com",
				"Subject":      "threading",
				"Content-Type": "text/plain",
			}
			for key, value := range tc.headers {
				headers[key] = value
			}
			env, err := ingest.ParseMessage("INBOX", source.Message{UID: 1, Raw: rawMessage(headers, "hi")})
			require.NoError(t, err)
			require.Equal(t, tc.want, env.ThreadID)
		})
	}
}

func TestParseMessageEmptyPayload(t *testing.T) {
	_, err := ingest.ParseMessage("INBOX", source.Message{UID: 9, Raw: nil})
	require.Error(t, err)
	require.True(t, ingest.IsParseError(err))
}
