// Package imap implements the mail source contract over IMAP using
// go-imap v2.
package imap

import (
	"context"
	"fmt"
	"sort"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/inbox-ai/internal/model"
	"github.com/nhle/inbox-ai/internal/source"
)

// Client reads messages from a single IMAP mailbox. The connection is
// established lazily on first fetch and reused until Close.
type Client struct {
	host     string
	port     string
	username string
	password string
	tls      bool
	mailbox  string

	conn     *imapclient.Client
	selected bool
}

// NewClient creates an IMAP source for the given mailbox.
func NewClient(cfg model.IMAPConfig) *Client {
	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &Client{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		tls:      cfg.TLS,
		mailbox:  mailbox,
	}
}

// Mailbox returns the name of the mailbox being read.
func (c *Client) Mailbox() string {
	return c.mailbox
}

// FetchSince returns all messages with UID greater than lastUID in
// ascending order, retrieving raw bodies in chunks of batchSize.
func (c *Client) FetchSince(
	ctx context.Context,
	lastUID uint32,
	batchSize int,
) ([]source.Message, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	uids, err := c.searchSince(lastUID)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	var messages []source.Message
	for start := 0; start < len(uids); start += batchSize {
		end := start + batchSize
		if end > len(uids) {
			end = len(uids)
		}
		chunk, err := c.fetchRaw(uids[start:end])
		if err != nil {
			return nil, err
		}
		messages = append(messages, chunk...)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].UID < messages[j].UID
	})
	return messages, nil
}

// Close logs out and releases the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Logout().Wait()
	c.conn = nil
	c.selected = false
	if err != nil {
		return fmt.Errorf("logging out of %s: %w", c.host, err)
	}
	return nil
}

// ensureConnected dials, authenticates, and selects the mailbox if no
// live connection exists yet.
func (c *Client) ensureConnected(_ context.Context) error {
	if c.conn != nil && c.selected {
		return nil
	}

	addr := c.host + ":" + c.port

	var conn *imapclient.Client
	var err error
	if c.tls {
		conn, err = imapclient.DialTLS(addr, nil)
	} else {
		conn, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return &source.TransportError{Mailbox: c.mailbox, Op: "dial", Err: err}
	}

	if err := conn.Login(c.username, c.password).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return &source.TransportError{Mailbox: c.mailbox, Op: "login", Err: err}
	}

	if _, err := conn.Select(c.mailbox, nil).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return &source.TransportError{Mailbox: c.mailbox, Op: "select", Err: err}
	}

	c.conn = conn
	c.selected = true
	return nil
}

// searchSince returns the UIDs strictly greater than lastUID, ascending.
func (c *Client) searchSince(lastUID uint32) ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		UID: []imap.UIDSet{
			{imap.UIDRange{Start: imap.UID(lastUID + 1), Stop: 0}},
		},
	}

	searchData, err := c.conn.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &source.TransportError{Mailbox: c.mailbox, Op: "search", Err: err}
	}

	// Servers answer an out-of-range "n:*" with the highest existing
	// UID, so results at or below the checkpoint must be dropped.
	var uids []imap.UID
	for _, uid := range searchData.AllUIDs() {
		if uint32(uid) > lastUID {
			uids = append(uids, uid)
		}
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// fetchRaw retrieves the full RFC 5322 payload for each UID.
func (c *Client) fetchRaw(uids []imap.UID) ([]source.Message, error) {
	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := c.conn.Fetch(uidSet, fetchOpts)

	var messages []source.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		raw := buf.FindBodySection(bodySection)
		if raw == nil {
			continue
		}

		messages = append(messages, source.Message{
			UID: uint32(buf.UID),
			Raw: raw,
		})
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, &source.TransportError{Mailbox: c.mailbox, Op: "fetch", Err: err}
	}
	return messages, nil
}
