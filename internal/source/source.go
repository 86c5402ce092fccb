package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLabelNotFound is returned by Select when the label does not exist
// on the server.
var ErrLabelNotFound = errors.New("label not found")

// AuthError indicates that authentication has failed for an account.
type AuthError struct {
	Account string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Account, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ProtocolError wraps a failed mail-source operation.
type ProtocolError struct {
	// Op is the operation that failed ("connect", "select", "search",
	// "fetch", "list").
	Op    string
	Label string
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Label, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err (or any error in its chain) is a
// ProtocolError.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// Mailbox describes a selected label.
type Mailbox struct {
	Name        string
	UIDValidity uint32
	Messages    uint32
}

// RawMessage is an unparsed RFC 5322 message and its UID.
type RawMessage struct {
	UID uint32
	Raw []byte
}

// MailSource is a read-only view of one account's mailboxes. Calls
// after Select operate on the selected label.
type MailSource interface {
	// Select opens the label read-only. It returns ErrLabelNotFound
	// (possibly wrapped) when the label does not exist.
	Select(ctx context.Context, label string) (Mailbox, error)

	// Search returns the UIDs of messages in the selected label dated on
	// or after since, in ascending order.
	Search(ctx context.Context, since time.Time) ([]uint32, error)

	// Fetch returns the full raw messages for uids, in ascending UID
	// order.
	Fetch(ctx context.Context, uids []uint32) ([]RawMessage, error)

	// Folders lists all mailbox names on the account.
	Folders(ctx context.Context) ([]string, error)

	// Close logs out and releases the connection.
	Close() error
}
