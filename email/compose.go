package email

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"crmmail/models"
	"crmmail/utils"
)

// envelope is the parsed sender and recipient set of an outgoing message.
type envelope struct {
	from *mail.Address
	to   []*mail.Address
	cc   []*mail.Address
	bcc  []*mail.Address
}

// recipients returns every envelope recipient, Bcc included.
func (e *envelope) recipients() []string {
	all := make([]string, 0, len(e.to)+len(e.cc)+len(e.bcc))
	for _, list := range [][]*mail.Address{e.to, e.cc, e.bcc} {
		for _, a := range list {
			all = append(all, a.Address)
		}
	}
	return all
}

// composeMessage renders msg as an RFC 5322 message. Bcc never appears in
// the header.
func composeMessage(env *envelope, msg *models.OutgoingMessage, date time.Time) ([]byte, error) {
	var h gomail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*gomail.Address{env.from})
	h.SetAddressList("To", env.to)
	if len(env.cc) > 0 {
		h.SetAddressList("Cc", env.cc)
	}
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	text := msg.Text
	if text == "" && msg.HTML != "" {
		derived, err := utils.HTMLToText(msg.HTML)
		if err != nil {
			return nil, fmt.Errorf("failed to derive text part: %w", err)
		}
		text = derived
	}

	var buf bytes.Buffer

	if len(msg.Attachments) == 0 && msg.HTML == "" {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := gomail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, text); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	if err := writeInlinePart(iw, "text/plain", text); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writeInlinePart(iw, "text/html", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		var ah gomail.AttachmentHeader
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ah.Set("Content-Type", contentType)
		ah.SetFilename(a.Filename)

		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(a.Content); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeInlinePart(iw *gomail.InlineWriter, contentType, body string) error {
	var ph gomail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := iw.CreatePart(ph)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}

// parseRecipients parses each entry as an RFC 5322 address or address list.
func parseRecipients(values []string) ([]*mail.Address, error) {
	var out []*mail.Address
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		list, err := mail.ParseAddressList(v)
		if err != nil {
			return nil, &RecipientError{Value: v, Err: err}
		}
		out = append(out, list...)
	}
	return out, nil
}
