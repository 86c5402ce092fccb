// Package thread groups fetched messages into threads by normalized
// subject.
package thread

import (
	"regexp"
	"strings"

	"github.com/btakita/correspondence-kit/internal/model"
)

// replyPrefix matches one leading reply or forward marker.
var replyPrefix = regexp.MustCompile(`^(re|fwd?):\s*`)

// Key normalizes a subject into a thread key: lower-cased, trimmed, with
// one leading "re:", "fw:" or "fwd:" marker removed.
func Key(subject string) string {
	key := strings.ToLower(strings.TrimSpace(subject))
	return replyPrefix.ReplaceAllString(key, "")
}

// Set is an ordered collection of threads keyed by thread key.
type Set struct {
	order   []string
	threads map[string]*model.Thread
}

// Assemble groups msgs, given in arrival order, into threads for label.
// Threads keep first-seen order, messages keep append order, and each
// thread's LastDate is the date of its last appended message.
func Assemble(label string, msgs []model.Message) *Set {
	set := &Set{threads: make(map[string]*model.Thread)}
	for _, msg := range msgs {
		set.Add(label, msg)
	}
	return set
}

// Add appends msg to its thread, creating the thread if needed.
func (s *Set) Add(label string, msg model.Message) {
	msg.ThreadKey = Key(msg.Subject)

	t, ok := s.threads[msg.ThreadKey]
	if !ok {
		t = &model.Thread{
			ID:      msg.ThreadKey,
			Label:   label,
			Subject: msg.Subject,
		}
		s.threads[msg.ThreadKey] = t
		s.order = append(s.order, msg.ThreadKey)
	}

	t.Messages = append(t.Messages, msg)
	t.LastDate = msg.Date
}

// Threads returns the threads in discovery order.
func (s *Set) Threads() []*model.Thread {
	out := make([]*model.Thread, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.threads[key])
	}
	return out
}

// Get returns the thread for key.
func (s *Set) Get(key string) (*model.Thread, bool) {
	t, ok := s.threads[key]
	return t, ok
}

// Len returns the number of threads.
func (s *Set) Len() int {
	return len(s.order)
}
