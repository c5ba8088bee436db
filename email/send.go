package email

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"crmmail/models"
)

var (
	ErrNoRecipients = errors.New("at least one recipient is required")
	ErrNoSubject    = errors.New("subject is required")
	ErrNoBody       = errors.New("text or html body is required")
)

// RecipientError reports an address that could not be parsed.
type RecipientError struct {
	Value string
	Err   error
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("invalid recipient %q: %v", e.Value, e.Err)
}

func (e *RecipientError) Unwrap() error { return e.Err }

// IsInvalidMessage reports whether err means the outgoing message itself was
// rejected before any connection was made.
func IsInvalidMessage(err error) bool {
	var re *RecipientError
	return errors.As(err, &re) || errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrNoSubject) || errors.Is(err, ErrNoBody)
}

// prepareEnvelope checks msg and parses its addresses.
func prepareEnvelope(account *models.EmailAccount, msg *models.OutgoingMessage) (*envelope, error) {
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, ErrNoSubject
	}
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) == "" {
		return nil, ErrNoBody
	}

	to, err := parseRecipients(msg.To)
	if err != nil {
		return nil, err
	}
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}
	cc, err := parseRecipients(msg.Cc)
	if err != nil {
		return nil, err
	}
	bcc, err := parseRecipients(msg.Bcc)
	if err != nil {
		return nil, err
	}

	return &envelope{
		from: &mail.Address{Name: account.Name, Address: account.Email},
		to:   to,
		cc:   cc,
		bcc:  bcc,
	}, nil
}

// Send submits msg through the account's SMTP server. Nothing is recorded
// locally and a failed submission is not retried.
func (s *Service) Send(account *models.EmailAccount, msg *models.OutgoingMessage) error {
	env, err := prepareEnvelope(account, msg)
	if err != nil {
		return err
	}

	raw, err := composeMessage(env, msg, s.now())
	if err != nil {
		return fmt.Errorf("failed to compose message: %w", err)
	}

	log := s.log.WithFields(map[string]interface{}{
		"account":    account.ID,
		"protocol":   ProtocolSMTP,
		"recipients": len(env.recipients()),
	})

	if err := s.submit(account.Settings().SMTP, env, raw); err != nil {
		ce := newConnectError(ProtocolSMTP, err)
		log.WithError(err).Warn("Send failed: %s", ce.Failure.Kind)
		return ce
	}

	log.Info("Message sent")
	return nil
}

func (s *Service) submit(e models.Endpoint, env *envelope, raw []byte) error {
	c, err := s.openSMTP(e)
	if err != nil {
		return err
	}
	defer s.closeSMTP(c)

	if err := c.Mail(env.from.Address, nil); err != nil {
		return atStage(stageEnvelope, err)
	}
	for _, rcpt := range env.recipients() {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return atStage(stageEnvelope, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return atStage(stageCommand, err)
	}
	if _, err := bytes.NewReader(raw).WriteTo(w); err != nil {
		w.Close()
		return atStage(stageCommand, err)
	}
	if err := w.Close(); err != nil {
		return atStage(stageCommand, err)
	}
	return nil
}
