package model

import "time"

// Envelope is the normalized, persisted representation of one mail message.
// Its identity is (Mailbox, UID); the UID is assigned by the mail source and
// is strictly increasing within a mailbox.
type Envelope struct {
	// UID is the source-assigned message identifier within the mailbox.
	UID uint32 `json:"uid"`

	// Mailbox is the name of the mailbox the message was fetched from.
	Mailbox string `json:"mailbox"`

	// MessageID is the RFC 5322 Message-ID header, if present.
	MessageID string `json:"message_id"`

	// ThreadID groups messages belonging to the same conversation.
	ThreadID string `json:"thread_id"`

	Subject string `json:"subject"`
	Sender  string `json:"sender"`

	// To, Cc, and Bcc hold bare recipient addresses in header order.
	To  []string `json:"to"`
	Cc  []string `json:"cc"`
	Bcc []string `json:"bcc"`

	// SentAt and ReceivedAt are optional; not every message carries
	// usable date headers.
	SentAt     *time.Time `json:"sent_at,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`

	// BodyText and BodyHTML are the textual representations of the
	// message; at least one is expected to be non-empty.
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html"`

	// Attachments holds metadata only; attachment content is not retained.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment describes a message attachment without its content.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// BodyForAnalysis returns the plain-text body, falling back to the raw
// HTML body when no plain text part exists.
func (e Envelope) BodyForAnalysis() string {
	if e.BodyText != "" {
		return e.BodyText
	}
	return e.BodyHTML
}

// AddressedTo reports whether addr appears among the envelope's To, Cc,
// or Bcc recipients.
func (e Envelope) AddressedTo(addr string) bool {
	if addr == "" {
		return false
	}
	for _, lists := range [][]string{e.To, e.Cc, e.Bcc} {
		for _, recipient := range lists {
			if recipient == addr {
				return true
			}
		}
	}
	return false
}

// Checkpoint records the highest UID processed for a mailbox. It only
// ever moves forward.
type Checkpoint struct {
	Mailbox string `json:"mailbox"`
	LastUID uint32 `json:"last_uid"`
}

// FetchReport summarizes one synchronization run.
type FetchReport struct {
	// Processed is the number of messages that were parsed and persisted.
	Processed int `json:"processed"`

	// NewLastUID is the checkpoint after the run; zero means no message
	// has ever been processed for the mailbox.
	NewLastUID uint32 `json:"new_last_uid"`
}
