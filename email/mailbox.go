package email

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"crmmail/models"
)

// uidPrefix marks identifiers synthesised for messages without a Message-ID.
const uidPrefix = "uid:"

// ErrMessageNotFound is returned when no remote message carries the id.
var ErrMessageNotFound = errors.New("message not found on server")

// MarkRead sets \Seen on the remote message.
func (s *Service) MarkRead(account *models.EmailAccount, messageID string) error {
	return s.withMessage(account, messageID, func(c *client.Client, uid uint32) error {
		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uid)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seqSet, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return fmt.Errorf("error marking message as read: %w", err)
		}
		return nil
	})
}

// DeleteMessage flags the remote message \Deleted and expunges the mailbox.
func (s *Service) DeleteMessage(account *models.EmailAccount, messageID string) error {
	return s.withMessage(account, messageID, func(c *client.Client, uid uint32) error {
		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uid)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seqSet, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			return fmt.Errorf("error flagging message as deleted: %w", err)
		}
		if err := c.Expunge(nil); err != nil {
			return fmt.Errorf("error expunging mailbox: %w", err)
		}
		return nil
	})
}

// ListFolders returns every folder visible to the account.
func (s *Service) ListFolders(account *models.EmailAccount) ([]models.Folder, error) {
	c, err := s.openIMAP(account.Settings().IMAP)
	if err != nil {
		return nil, newConnectError(ProtocolIMAP, err)
	}
	defer s.closeIMAP(c)

	folders, err := listFolders(c)
	if err != nil {
		return nil, newConnectError(ProtocolIMAP, err)
	}
	return folders, nil
}

// withMessage opens a session on the mailbox, resolves messageID to a UID
// and runs fn against it.
func (s *Service) withMessage(account *models.EmailAccount, messageID string, fn func(*client.Client, uint32) error) error {
	log := s.log.WithFields(map[string]interface{}{
		"account": account.ID,
		"message": messageID,
	})

	c, err := s.openIMAP(account.Settings().IMAP)
	if err != nil {
		return newConnectError(ProtocolIMAP, err)
	}
	defer s.closeIMAP(c)

	if _, err := c.Select(s.opts.Mailbox, false); err != nil {
		return newConnectError(ProtocolIMAP, atStage(stageCommand, fmt.Errorf("error selecting folder %s: %w", s.opts.Mailbox, err)))
	}

	uid, err := resolveUID(c, messageID)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			log.Debug("Message not found on server")
			return err
		}
		return newConnectError(ProtocolIMAP, atStage(stageCommand, err))
	}

	if err := fn(c, uid); err != nil {
		return newConnectError(ProtocolIMAP, atStage(stageCommand, err))
	}
	log.WithField("uid", uid).Debug("Remote message updated")
	return nil
}

// resolveUID maps a stored message id back to the UID it currently has.
func resolveUID(c *client.Client, messageID string) (uint32, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return 0, ErrMessageNotFound
	}

	if strings.HasPrefix(messageID, uidPrefix) {
		n, err := strconv.ParseUint(strings.TrimPrefix(messageID, uidPrefix), 10, 32)
		if err != nil || n == 0 {
			return 0, ErrMessageNotFound
		}
		criteria := imap.NewSearchCriteria()
		criteria.Uid = new(imap.SeqSet)
		criteria.Uid.AddNum(uint32(n))
		uids, err := c.UidSearch(criteria)
		if err != nil {
			return 0, fmt.Errorf("error searching messages: %w", err)
		}
		for _, uid := range uids {
			if uid == uint32(n) {
				return uid, nil
			}
		}
		return 0, ErrMessageNotFound
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-Id", messageID)
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("error searching messages: %w", err)
	}
	if len(uids) == 0 {
		return 0, ErrMessageNotFound
	}

	// HEADER search is a substring match, so confirm against the envelope.
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)
	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, ch)
	}()

	var found uint32
	for msg := range ch {
		if found == 0 && msg.Envelope != nil && strings.TrimSpace(msg.Envelope.MessageId) == messageID {
			found = msg.Uid
		}
	}
	if err := <-done; err != nil {
		return 0, fmt.Errorf("error fetching envelopes: %w", err)
	}
	if found == 0 {
		return 0, ErrMessageNotFound
	}
	return found, nil
}
