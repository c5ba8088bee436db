package email

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"crmmail/models"
	"crmmail/utils"
)

const defaultSubject = "No Subject"

var (
	errNoEnvelope = errors.New("message has no envelope")
	errNoBody     = errors.New("message has no body")
)

// Plain text for HTML-only bodies is rendered by utils.HTMLToText.
var bodyParser = enmime.NewParser(enmime.DisableTextConversion(true))

// remoteID returns the identifier a message is stored under: its Message-ID
// header, or its UID when the header is missing.
func remoteID(msg *imap.Message) string {
	if msg.Envelope != nil {
		if id := strings.TrimSpace(msg.Envelope.MessageId); id != "" {
			return id
		}
	}
	return fmt.Sprintf("%s%d", uidPrefix, msg.Uid)
}

// normalize turns a fetched message into the stored shape.
func normalize(accountID string, msg *imap.Message, section *imap.BodySectionName) (*models.EmailMessage, error) {
	if msg.Envelope == nil {
		return nil, errNoEnvelope
	}
	body := msg.GetBody(section)
	if body == nil {
		return nil, errNoBody
	}

	env, err := bodyParser.ReadEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body: %w", err)
	}

	text := env.Text
	if strings.TrimSpace(text) == "" && env.HTML != "" {
		if text, err = utils.HTMLToText(env.HTML); err != nil {
			return nil, fmt.Errorf("failed to render html body: %w", err)
		}
	}

	subject := strings.TrimSpace(env.GetHeader("Subject"))
	if subject == "" {
		subject = strings.TrimSpace(msg.Envelope.Subject)
	}
	if subject == "" {
		subject = defaultSubject
	}

	out := &models.EmailMessage{
		AccountID:   accountID,
		MessageID:   remoteID(msg),
		Subject:     subject,
		To:          convertAddresses(msg.Envelope.To),
		Text:        text,
		HTML:        utils.SanitizeHTML(env.HTML),
		Date:        msg.Envelope.Date,
		IsRead:      hasFlag(msg.Flags, imap.SeenFlag),
		IsImportant: hasFlag(msg.Flags, imap.FlaggedFlag),
	}
	if from := convertAddresses(msg.Envelope.From); len(from) > 0 {
		out.From = from[0]
	} else if list, err := env.AddressList("From"); err == nil && len(list) > 0 {
		out.From = models.Address{Address: list[0].Address, Name: list[0].Name}
	}
	if out.Date.IsZero() {
		out.Date = msg.InternalDate
	}

	return out, nil
}

func convertAddresses(addrs []*imap.Address) []models.Address {
	out := make([]models.Address, 0, len(addrs))
	for _, a := range addrs {
		if a == nil || a.MailboxName == "" {
			continue
		}
		out = append(out, models.Address{Address: a.Address(), Name: a.PersonalName})
	}
	return out
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}
