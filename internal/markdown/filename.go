package markdown

import (
	"crypto/sha1"
	"encoding/hex"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/btakita/correspondence-kit/internal/model"
)

const (
	maxSlugLen = 60

	// datePrefixLayout matches the leading "Mon, 02 Jan 2006" of an
	// RFC 5322 Date header.
	datePrefixLayout = "Mon, _2 Jan 2006"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s, folds accented letters to their base letter,
// collapses every run of other characters into a single hyphen, trims
// hyphens from both ends and truncates to 60 characters.
func Slugify(s string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))),
		strings.ToLower(s),
	)
	if err != nil {
		folded = strings.ToLower(s)
	}

	slug := strings.Trim(nonAlnum.ReplaceAllString(folded, "-"), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// threadDate returns the calendar date of the thread's last message,
// or now when the Date header cannot be parsed.
func threadDate(lastDate string, now time.Time) string {
	prefix := lastDate
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	if t, err := time.Parse(datePrefixLayout, strings.TrimSpace(prefix)); err == nil {
		return t.Format(time.DateOnly)
	}
	if t, err := mail.ParseDate(lastDate); err == nil {
		return t.Format(time.DateOnly)
	}
	return now.UTC().Format(time.DateOnly)
}

// Filename returns "{YYYY-MM-DD}-{slug}.md" for t. now is used when the
// thread date cannot be parsed.
func Filename(t *model.Thread, now time.Time) string {
	slug := Slugify(t.Subject)
	if slug == "" {
		slug = "untitled"
	}
	return threadDate(t.LastDate, now) + "-" + slug + ".md"
}

// Filenames returns a file name for each thread. When two threads in the
// batch would share a name, later ones get a suffix derived from their
// thread ID.
func Filenames(threads []*model.Thread, now time.Time) []string {
	names := make([]string, len(threads))
	used := make(map[string]bool, len(threads))

	for i, t := range threads {
		name := Filename(t, now)
		if used[name] {
			name = strings.TrimSuffix(name, ".md") + "-" + shortHash(t.ID) + ".md"
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
