// Package mail composes MIME messages and hands them to an outbound mail API.
package mail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"regexp"
	"strings"
)

// Boundary separates the plain text and HTML alternatives of every composed message.
const Boundary = "meet-tracker-alternative"

var (
	// ErrNoRecipients is returned when a message has nobody to deliver to.
	ErrNoRecipients = errors.New("mail: no recipients")
	// ErrNoContent is returned when a message has neither text nor HTML.
	ErrNoContent = errors.New("mail: empty message")
)

// Message is an outbound email before encoding.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Compose renders msg as a raw RFC 5322 multipart/alternative message.
// When Text is empty the plain part falls back to the tag-stripped HTML.
func Compose(msg Message) ([]byte, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) == "" {
		return nil, ErrNoContent
	}

	to := make([]string, 0, len(msg.To))
	for _, raw := range msg.To {
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("mail: invalid recipient %q: %w", raw, err)
		}
		to = append(to, addr.String())
	}

	text := msg.Text
	if strings.TrimSpace(text) == "" {
		text = StripTags(msg.HTML)
	}

	body := new(bytes.Buffer)
	if msg.From != "" {
		fmt.Fprintf(body, "From: %s\r\n", msg.From)
	}
	fmt.Fprintf(body, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(body, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%q\r\n", Boundary)
	fmt.Fprint(body, "\r\n")

	altW := multipart.NewWriter(body)
	if err := altW.SetBoundary(Boundary); err != nil {
		return nil, fmt.Errorf("mail: set boundary: %w", err)
	}

	if err := writePart(altW, "text/plain; charset=UTF-8", text); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.HTML) != "" {
		if err := writePart(altW, "text/html; charset=UTF-8", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := altW.Close(); err != nil {
		return nil, fmt.Errorf("mail: close multipart: %w", err)
	}
	return body.Bytes(), nil
}

func writePart(w *multipart.Writer, contentType, content string) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return fmt.Errorf("mail: create %s part: %w", contentType, err)
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("mail: write %s part: %w", contentType, err)
	}
	return qp.Close()
}

// EncodeRaw encodes a composed message with the URL-safe base64 alphabet expected by the mail API.
func EncodeRaw(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}

var (
	blockTags = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/tr|/h[1-6])\s*/?>`)
	anyTag    = regexp.MustCompile(`<[^>]*>`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// StripTags turns an HTML fragment into readable plain text.
func StripTags(fragment string) string {
	text := blockTags.ReplaceAllString(fragment, "\n")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
