package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"

	"github.com/btakita/correspondence-kit/internal/source"
)

// IMAPClient is a read-only source.MailSource backed by one go-imap v2
// connection. It is not safe for concurrent use.
type IMAPClient struct {
	client   *imapclient.Client
	account  string
	selected string
	log      *slog.Logger
}

var _ source.MailSource = (*IMAPClient)(nil)

// Dial connects to the IMAP server described by s and authenticates.
// The caller is responsible for calling Close.
func Dial(ctx context.Context, s Settings, log *slog.Logger) (*IMAPClient, error) {
	if log == nil {
		log = slog.Default()
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	opts := &imapclient.Options{
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
	}

	done := make(chan dialResult, 1)
	go func() {
		var c *imapclient.Client
		var err error
		if s.StartTLS {
			c, err = imapclient.DialStartTLS(addr, opts)
		} else {
			c, err = imapclient.DialTLS(addr, opts)
		}
		done <- dialResult{client: c, err: err}
	}()

	var timeout <-chan time.Time
	if s.Timeout > 0 {
		t := time.NewTimer(s.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	var client *imapclient.Client
	select {
	case res := <-done:
		if res.err != nil {
			return nil, &source.ProtocolError{
				Op:  "connect",
				Err: fmt.Errorf("connecting to IMAP %s: %w", addr, res.err),
			}
		}
		client = res.client
	case <-timeout:
		go closeLate(done)
		return nil, &source.ProtocolError{
			Op:  "connect",
			Err: fmt.Errorf("connecting to IMAP %s: timed out after %s", addr, s.Timeout),
		}
	case <-ctx.Done():
		go closeLate(done)
		return nil, ctx.Err()
	}

	if err := client.Login(s.Username, s.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, &source.AuthError{
			Account: s.Account,
			Message: fmt.Sprintf("authentication failed for %s: %v", s.Username, err),
		}
	}

	log.Debug("imap connected", "account", s.Account, "addr", addr)
	return &IMAPClient{client: client, account: s.Account, log: log}, nil
}

type dialResult struct {
	client *imapclient.Client
	err    error
}

// closeLate releases a connection that finished dialing after the caller
// gave up on it.
func closeLate(done <-chan dialResult) {
	if res := <-done; res.err == nil {
		_ = res.client.Close()
	}
}

// Select opens label read-only (EXAMINE).
func (c *IMAPClient) Select(_ context.Context, label string) (source.Mailbox, error) {
	data, err := c.client.Select(label, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		c.selected = ""
		var imapErr *imap.Error
		if errors.As(err, &imapErr) && imapErr.Type == imap.StatusResponseTypeNo {
			return source.Mailbox{}, fmt.Errorf("%w: %s", source.ErrLabelNotFound, label)
		}
		return source.Mailbox{}, &source.ProtocolError{Op: "select", Label: label, Err: err}
	}

	c.selected = label
	return source.Mailbox{
		Name:        label,
		UIDValidity: data.UIDValidity,
		Messages:    data.NumMessages,
	}, nil
}

// Search returns the UIDs of messages dated on or after since.
func (c *IMAPClient) Search(_ context.Context, since time.Time) ([]uint32, error) {
	criteria := &imap.SearchCriteria{Since: since}

	searchData, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &source.ProtocolError{Op: "search", Label: c.selected, Err: err}
	}

	all := searchData.AllUIDs()
	uids := make([]uint32, 0, len(all))
	for _, uid := range all {
		uids = append(uids, uint32(uid))
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// Fetch retrieves the full RFC 5322 content of uids without setting
// \Seen.
func (c *IMAPClient) Fetch(_ context.Context, uids []uint32) ([]source.RawMessage, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	set := make([]imap.UID, 0, len(uids))
	for _, uid := range uids {
		set = append(set, imap.UID(uid))
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := c.client.Fetch(imap.UIDSetNum(set...), fetchOpts)

	var msgs []source.RawMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			c.log.Warn("skipping unreadable message",
				"account", c.account, "label", c.selected, "err", err)
			continue
		}

		msgs = append(msgs, source.RawMessage{
			UID: uint32(buf.UID),
			Raw: buf.FindBodySection(bodySection),
		})
	}

	if err := fetchCmd.Close(); err != nil {
		return msgs, &source.ProtocolError{Op: "fetch", Label: c.selected, Err: err}
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].UID < msgs[j].UID })
	return msgs, nil
}

// Folders lists every mailbox on the account.
func (c *IMAPClient) Folders(_ context.Context) ([]string, error) {
	list, err := c.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, &source.ProtocolError{Op: "list", Err: err}
	}

	names := make([]string, 0, len(list))
	for _, mbox := range list {
		names = append(names, mbox.Mailbox)
	}
	sort.Strings(names)
	return names, nil
}

// Close logs out and closes the connection.
func (c *IMAPClient) Close() error {
	if err := c.client.Logout().Wait(); err != nil {
		_ = c.client.Close()
		return fmt.Errorf("logging out: %w", err)
	}
	return c.client.Close()
}
