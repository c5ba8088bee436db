package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"crmmail/models"
)

// MessageStorage persists synchronised messages, keyed by
// (message_id, account_id).
type MessageStorage struct {
	db *sqlx.DB
}

// NewMessageStorage creates a new message storage instance
func NewMessageStorage(db *sqlx.DB) *MessageStorage {
	return &MessageStorage{db: db}
}

type messageRow struct {
	ID          string    `db:"id"`
	AccountID   string    `db:"account_id"`
	MessageID   string    `db:"message_id"`
	Subject     string    `db:"subject"`
	FromAddress string    `db:"from_address"`
	FromName    string    `db:"from_name"`
	ToJSON      string    `db:"to_json"`
	Text        string    `db:"text_body"`
	HTML        string    `db:"html_body"`
	Date        time.Time `db:"date"`
	IsRead      bool      `db:"is_read"`
	IsImportant bool      `db:"is_important"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *messageRow) model() (models.EmailMessage, error) {
	msg := models.EmailMessage{
		ID:          r.ID,
		AccountID:   r.AccountID,
		MessageID:   r.MessageID,
		Subject:     r.Subject,
		From:        models.Address{Address: r.FromAddress, Name: r.FromName},
		Text:        r.Text,
		HTML:        r.HTML,
		Date:        r.Date,
		IsRead:      r.IsRead,
		IsImportant: r.IsImportant,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.ToJSON), &msg.To); err != nil {
		return models.EmailMessage{}, fmt.Errorf("unmarshaling recipients of %s: %w", r.ID, err)
	}
	if msg.To == nil {
		msg.To = []models.Address{}
	}
	return msg, nil
}

// UpsertMessage inserts msg, or when a row with the same message and account
// already exists, refreshes only its read and important markers. The stored
// row is written back into msg.
func (s *MessageStorage) UpsertMessage(msg *models.EmailMessage) error {
	to := msg.To
	if to == nil {
		to = []models.Address{}
	}
	toJSON, err := json.Marshal(to)
	if err != nil {
		return fmt.Errorf("marshaling recipients: %w", err)
	}

	now := time.Now().UTC()
	row := messageRow{
		ID:          uuid.New().String(),
		AccountID:   msg.AccountID,
		MessageID:   msg.MessageID,
		Subject:     msg.Subject,
		FromAddress: msg.From.Address,
		FromName:    msg.From.Name,
		ToJSON:      string(toJSON),
		Text:        msg.Text,
		HTML:        msg.HTML,
		Date:        msg.Date.UTC(),
		IsRead:      msg.IsRead,
		IsImportant: msg.IsImportant,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query, args, err := s.db.BindNamed(`
		INSERT INTO email_messages (
			id, account_id, message_id, subject, from_address, from_name, to_json,
			text_body, html_body, date, is_read, is_important, created_at, updated_at
		) VALUES (
			:id, :account_id, :message_id, :subject, :from_address, :from_name, :to_json,
			:text_body, :html_body, :date, :is_read, :is_important, :created_at, :updated_at
		)
		ON CONFLICT (message_id, account_id) DO UPDATE SET
			is_read = excluded.is_read,
			is_important = excluded.is_important,
			updated_at = excluded.updated_at
		RETURNING *`, &row)
	if err != nil {
		return fmt.Errorf("binding upsert: %w", err)
	}

	var stored messageRow
	if err := s.db.Get(&stored, query, args...); err != nil {
		return fmt.Errorf("upserting message %s: %w", msg.MessageID, err)
	}

	result, err := stored.model()
	if err != nil {
		return err
	}
	*msg = result
	return nil
}

// ListMessages returns up to limit messages of the account, newest first.
func (s *MessageStorage) ListMessages(accountID string, limit int) ([]models.EmailMessage, error) {
	var rows []messageRow
	err := s.db.Select(&rows, `
		SELECT * FROM email_messages
		WHERE account_id = ?
		ORDER BY date DESC, created_at DESC
		LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}

	messages := make([]models.EmailMessage, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// GetMessage returns the stored copy of a remote message.
func (s *MessageStorage) GetMessage(accountID, messageID string) (*models.EmailMessage, error) {
	var rows []messageRow
	err := s.db.Select(&rows,
		"SELECT * FROM email_messages WHERE account_id = ? AND message_id = ?", accountID, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	msg, err := rows[0].model()
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead sets is_read on the stored copy. A message that was never synced
// is not an error.
func (s *MessageStorage) MarkRead(accountID, messageID string) error {
	_, err := s.db.Exec(`
		UPDATE email_messages SET is_read = 1, updated_at = ?
		WHERE account_id = ? AND message_id = ?`,
		time.Now().UTC(), accountID, messageID)
	if err != nil {
		return fmt.Errorf("marking message %s as read: %w", messageID, err)
	}
	return nil
}

// DeleteMessage removes the stored copy of a message, if any.
func (s *MessageStorage) DeleteMessage(accountID, messageID string) error {
	_, err := s.db.Exec(
		"DELETE FROM email_messages WHERE account_id = ? AND message_id = ?", accountID, messageID)
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", messageID, err)
	}
	return nil
}
