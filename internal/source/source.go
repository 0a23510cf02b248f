package source

import (
	"context"
	"errors"
	"fmt"
)

// TransportError indicates a mailbox or network failure, as opposed to
// an empty fetch result. It is fatal to the current run.
type TransportError struct {
	Mailbox string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s %s): %v", e.Op, e.Mailbox, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// Message is a raw mail payload paired with its source-assigned UID.
type Message struct {
	UID uint32
	Raw []byte
}

// Source abstracts a remote mailbox that can be read incrementally.
// UIDs are strictly increasing within a mailbox and assigned by the
// remote, never by this system.
type Source interface {
	// Mailbox returns the name of the mailbox being read.
	Mailbox() string

	// FetchSince returns all messages with UID greater than lastUID in
	// ascending UID order. A lastUID of zero means "from the beginning".
	// batchSize bounds the messages retrieved per server round trip; the
	// result itself is finite and may span multiple round trips. An
	// empty result means no new messages, which is not an error.
	FetchSince(ctx context.Context, lastUID uint32, batchSize int) ([]Message, error)

	// Close releases the connection.
	Close() error
}
