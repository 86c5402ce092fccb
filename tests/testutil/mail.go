package testutil

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/btakita/correspondence-kit/internal/source"
)

// RawMessage builds a minimal single-part RFC 5322 message.
func RawMessage(from, subject, date, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", date)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// FakeMessage is a message stored in a FakeSource label.
type FakeMessage struct {
	UID  uint32
	Date time.Time
	Raw  []byte
}

// FakeLabel is one label of a FakeSource.
type FakeLabel struct {
	UIDValidity uint32
	Messages    []FakeMessage
}

// FakeSource is an in-memory source.MailSource. It records the UIDs of
// every Fetch call.
type FakeSource struct {
	mu sync.Mutex

	Labels map[string]*FakeLabel

	// SelectErr, SearchErr and FetchErr, when set, are returned by the
	// corresponding calls.
	SelectErr error
	SearchErr error
	FetchErr  error

	selected string
	fetches  [][]uint32
	closed   bool
}

// NewFakeSource creates an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{Labels: make(map[string]*FakeLabel)}
}

// AddMessage appends a message to label, creating the label with
// uidvalidity 1 when it does not exist.
func (f *FakeSource) AddMessage(label string, uid uint32, date time.Time, raw []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.Labels[label]
	if !ok {
		l = &FakeLabel{UIDValidity: 1}
		f.Labels[label] = l
	}
	l.Messages = append(l.Messages, FakeMessage{UID: uid, Date: date, Raw: raw})
}

// Fetches returns the UID lists passed to Fetch, in call order.
func (f *FakeSource) Fetches() [][]uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.fetches)
}

// Closed reports whether Close was called.
func (f *FakeSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeSource) Select(_ context.Context, label string) (source.Mailbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SelectErr != nil {
		return source.Mailbox{}, f.SelectErr
	}
	l, ok := f.Labels[label]
	if !ok {
		return source.Mailbox{}, fmt.Errorf("select %q: %w", label, source.ErrLabelNotFound)
	}
	f.selected = label
	return source.Mailbox{
		Name:        label,
		UIDValidity: l.UIDValidity,
		Messages:    uint32(len(l.Messages)),
	}, nil
}

func (f *FakeSource) Search(_ context.Context, since time.Time) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	l, ok := f.Labels[f.selected]
	if !ok {
		return nil, fmt.Errorf("search: no label selected")
	}

	var uids []uint32
	for _, m := range l.Messages {
		if !m.Date.Before(since) {
			uids = append(uids, m.UID)
		}
	}
	slices.Sort(uids)
	return uids, nil
}

func (f *FakeSource) Fetch(_ context.Context, uids []uint32) ([]source.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches = append(f.fetches, slices.Clone(uids))
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	l, ok := f.Labels[f.selected]
	if !ok {
		return nil, fmt.Errorf("fetch: no label selected")
	}

	var out []source.RawMessage
	for _, m := range l.Messages {
		if slices.Contains(uids, m.UID) {
			out = append(out, source.RawMessage{UID: m.UID, Raw: m.Raw})
		}
	}
	slices.SortFunc(out, func(a, b source.RawMessage) int { return int(a.UID) - int(b.UID) })
	return out, nil
}

func (f *FakeSource) Folders(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.Labels))
	for name := range f.Labels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var _ source.MailSource = (*FakeSource)(nil)
