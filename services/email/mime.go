package emailsvc

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coffeeduty/core"
)

var (
	// errors
	ErrNotConfigured = errors.New("email backend is not configured")
	ErrNoRecipients  = errors.New("email has no recipients")
	ErrNoContent     = errors.New("email has no content")
)

// prepare renders msg and checks it can be sent.
func prepare(msg *core.EmailMessage, site core.SiteInfo) error {
	if err := msg.Render(site); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() {
		return ErrNoRecipients
	}
	if !msg.HasContent() {
		return ErrNoContent
	}
	return nil
}

// buildMIME writes msg as an RFC 5322 message with a multipart/alternative body.
func buildMIME(from mail.Address, subject string, msg *core.EmailMessage, date time.Time) (string, error) {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", from.String())
	_, _ = fmt.Fprintf(body, "To: %s\r\n", core.JoinAddresses(msg.To))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", date.Format(time.RFC1123Z))
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err = altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart body")
	}
	return body.String(), nil
}

// ParseAddress parses a "Name <addr>" or bare address.
func ParseAddress(s string) (mail.Address, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return mail.Address{}, errors.Wrapf(err, "parsing address %q", s)
	}
	return *addr, nil
}
