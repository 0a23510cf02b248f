// Package ingest turns raw mailbox messages into persisted, enriched
// envelopes.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/inbox-ai/internal/model"
	"github.com/nhle/inbox-ai/internal/source"
)

// ParseError indicates a message whose raw payload could not be turned
// into an envelope. The message is skipped and the checkpoint does not
// advance past it.
type ParseError struct {
	UID uint32
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing message %d: %v", e.UID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err (or any error in its chain) is a
// ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// ParseMessage parses a raw RFC 5322 message into an envelope. The
// mailbox and UID come from the source, everything else from headers
// and MIME parts.
func ParseMessage(mailbox string, msg source.Message) (model.Envelope, error) {
	if len(msg.Raw) == 0 {
		return model.Envelope{}, &ParseError{UID: msg.UID, Err: errors.New("empty payload")}
	}

	mr, err := mail.CreateReader(bytes.NewReader(msg.Raw))
	if err != nil {
		return model.Envelope{}, &ParseError{UID: msg.UID, Err: err}
	}
	defer mr.Close()

	header := mr.Header

	env := model.Envelope{
		UID:     msg.UID,
		Mailbox: mailbox,
		Sender:  firstAddress(header, "From"),
		To:      addressList(header, "To"),
		Cc:      addressList(header, "Cc"),
		Bcc:     addressList(header, "Bcc"),
	}

	if subject, err := header.Subject(); err == nil {
		env.Subject = subject
	}
	if id, err := header.MessageID(); err == nil {
		env.MessageID = id
	}
	if sentAt, err := header.Date(); err == nil && !sentAt.IsZero() {
		sentAt = sentAt.UTC()
		env.SentAt = &sentAt
	}
	if receivedAt := parseReceivedDate(header.Get("Received")); receivedAt != nil {
		env.ReceivedAt = receivedAt
	}
	env.ThreadID = resolveThreadID(header, env.MessageID)

	// Non-MIME messages need no special casing: the reader surfaces
	// their body as a single inline part.
	if err := readParts(mr, &env); err != nil {
		return model.Envelope{}, &ParseError{UID: msg.UID, Err: err}
	}

	return env, nil
}

// readParts walks the MIME structure collecting text bodies and
// attachment metadata. The first part of each kind wins.
func readParts(mr *mail.Reader, env *model.Envelope) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain") && env.BodyText == "":
				env.BodyText = string(body)
			case strings.HasPrefix(contentType, "text/html") && env.BodyHTML == "":
				env.BodyHTML = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			env.Attachments = append(env.Attachments, model.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int64(len(body)),
			})
		}
	}
}

// resolveThreadID picks a conversation identifier from the headers,
// preferring explicit thread headers over reply chains, and falling
// back to the message's own ID so every message belongs to a thread.
func resolveThreadID(header mail.Header, messageID string) string {
	for _, key := range []string{"Thread-Index", "Thread-Id"} {
		if value := strings.TrimSpace(header.Get(key)); value != "" {
			return value
		}
	}
	for _, key := range []string{"In-Reply-To", "References"} {
		if ids, err := header.MsgIDList(key); err == nil && len(ids) > 0 {
			return ids[0]
		}
	}
	return messageID
}

// firstAddress returns the bare address of the first entry in an
// address header, or the raw header value when it cannot be parsed.
func firstAddress(header mail.Header, key string) string {
	addrs, err := header.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(header.Get(key))
	}
	return addrs[0].Address
}

// addressList returns the bare addresses of an address header in order.
func addressList(header mail.Header, key string) []string {
	addrs, err := header.AddressList(key)
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out
}

// parseReceivedDate extracts the timestamp from a Received trace
// header, which follows its routing clauses after a semicolon.
func parseReceivedDate(received string) *time.Time {
	idx := strings.LastIndex(received, ";")
	if idx < 0 {
		return nil
	}
	parsed, err := netmail.ParseDate(strings.TrimSpace(received[idx+1:]))
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
