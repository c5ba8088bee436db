package email

import (
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"crmmail/models"
)

// MessageStore is the slice of the access layer a sync needs.
type MessageStore interface {
	UpsertMessage(msg *models.EmailMessage) error
	ListMessages(accountID string, limit int) ([]models.EmailMessage, error)
	TouchSync(accountID string, at time.Time) error
}

// SyncReport tells the caller how many of the selected messages made it
// into the store.
type SyncReport struct {
	Fetched int `json:"fetched"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

// Sync pulls up to limit recent inbox messages, upserts them keyed by
// (message id, account id) and returns the stored view, newest first.
// Messages that fail to parse are logged and skipped. A failure to open the
// session or fetch commits nothing.
func (s *Service) Sync(account *models.EmailAccount, limit int, store MessageStore) (*SyncReport, []models.EmailMessage, error) {
	if limit < 1 {
		limit = 1
	}
	log := s.log.WithField("account", account.ID)

	fetched, report, err := s.fetchRecent(account, limit)
	if err != nil {
		log.WithError(err).Warn("Sync failed")
		return nil, nil, err
	}

	for _, msg := range fetched {
		if err := store.UpsertMessage(msg); err != nil {
			return report, nil, fmt.Errorf("failed to store message %s: %w", msg.MessageID, err)
		}
		report.Synced++
	}
	report.Failed = report.Fetched - report.Synced

	if err := store.TouchSync(account.ID, s.now()); err != nil {
		return report, nil, fmt.Errorf("failed to record sync time: %w", err)
	}

	messages, err := store.ListMessages(account.ID, limit)
	if err != nil {
		return report, nil, fmt.Errorf("failed to list messages: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"fetched": report.Fetched,
		"synced":  report.Synced,
		"failed":  report.Failed,
	}).Info("Mailbox synced")

	return report, messages, nil
}

// fetchRecent runs the IMAP half of a sync. The session is closed before
// anything is written locally.
func (s *Service) fetchRecent(account *models.EmailAccount, limit int) ([]*models.EmailMessage, *SyncReport, error) {
	c, err := s.openIMAP(account.Settings().IMAP)
	if err != nil {
		return nil, nil, newConnectError(ProtocolIMAP, err)
	}
	defer s.closeIMAP(c)

	if _, err := c.Select(s.opts.Mailbox, false); err != nil {
		return nil, nil, newConnectError(ProtocolIMAP, atStage(stageCommand, fmt.Errorf("error selecting folder %s: %w", s.opts.Mailbox, err)))
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = s.now().Add(-s.opts.SyncWindow)
	if s.opts.UnseenOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, nil, newConnectError(ProtocolIMAP, atStage(stageCommand, fmt.Errorf("error searching messages: %w", err)))
	}
	uids = newestUIDs(uids, limit)

	report := &SyncReport{Fetched: len(uids)}
	if len(uids) == 0 {
		return nil, report, nil
	}

	messages, err := s.fetchMessages(c, account.ID, uids)
	if err != nil {
		return nil, nil, newConnectError(ProtocolIMAP, atStage(stageCommand, err))
	}
	return messages, report, nil
}

func (s *Service) fetchMessages(c *client.Client, accountID string, uids []uint32) ([]*models.EmailMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, ch)
	}()

	var out []*models.EmailMessage
	for msg := range ch {
		normalized, err := normalize(accountID, msg, section)
		if err != nil {
			s.log.WithFields(map[string]interface{}{
				"account": accountID,
				"uid":     msg.Uid,
			}).WithError(err).Warn("Skipping message that failed to parse")
			continue
		}
		out = append(out, normalized)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("error fetching messages: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// newestUIDs keeps the limit highest UIDs, which are the most recent arrivals.
func newestUIDs(uids []uint32, limit int) []uint32 {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted
}
