package email

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/btakita/correspondence-kit/internal/model"
	"github.com/btakita/correspondence-kit/internal/source"
)

const noSubject = "(no subject)"

// ParseMessage decodes a raw RFC 5322 message into a model.Message.
// ThreadKey is left empty for the thread assembler to fill in. Parsing
// never fails: headers that cannot be decoded are kept raw and a body
// that cannot be decoded is left empty.
func ParseMessage(raw source.RawMessage) model.Message {
	msg := model.Message{
		ID:      strconv.FormatUint(uint64(raw.UID), 10),
		Subject: noSubject,
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw.Raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return msg
	}
	defer mr.Close()

	if subject := headerText(mr.Header, "Subject"); subject != "" {
		msg.Subject = subject
	}
	msg.From = headerText(mr.Header, "From")
	msg.Date = strings.TrimSpace(mr.Header.Get("Date"))
	msg.Body = extractBody(mr)

	return msg
}

// headerText returns the decoded header value, falling back to the raw
// value when an encoded word cannot be decoded.
func headerText(h mail.Header, key string) string {
	v, err := h.Text(key)
	if err != nil {
		v = h.Get(key)
	}
	return strings.TrimSpace(v)
}

// extractBody returns the first text/plain inline part. When the message
// has only HTML, the stripped HTML is returned instead.
func extractBody(mr *mail.Reader) string {
	var htmlBody string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		if contentType == "" {
			contentType = "text/plain"
		}

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			return string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	return stripHTML(htmlBody)
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
