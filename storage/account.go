package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"crmmail/models"
)

// AccountStorage persists email accounts. Mailbox passwords are encrypted
// at rest with AES-GCM.
type AccountStorage struct {
	db  *sqlx.DB
	key []byte
}

// NewAccountStorage creates a new account storage instance
func NewAccountStorage(db *sqlx.DB, encryptionKey []byte) *AccountStorage {
	return &AccountStorage{db: db, key: encryptionKey}
}

// CreateAccount creates a new account
func (s *AccountStorage) CreateAccount(account *models.EmailAccount) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.Provider == "" {
		account.Provider = models.ProviderCustom
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored, err := s.sealed(account)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExec(`
		INSERT INTO email_accounts (
			id, user_id, name, email, provider,
			imap_host, imap_port, imap_secure, imap_user, imap_password,
			smtp_host, smtp_port, smtp_secure, smtp_user, smtp_password,
			is_active, last_sync_at, created_at, updated_at
		) VALUES (
			:id, :user_id, :name, :email, :provider,
			:imap_host, :imap_port, :imap_secure, :imap_user, :imap_password,
			:smtp_host, :smtp_port, :smtp_secure, :smtp_user, :smtp_password,
			:is_active, :last_sync_at, :created_at, :updated_at
		)`, stored)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID with its passwords decrypted
func (s *AccountStorage) GetAccount(accountID string) (*models.EmailAccount, error) {
	var account models.EmailAccount
	err := s.db.Get(&account, "SELECT * FROM email_accounts WHERE id = ?", accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := s.open(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccountForUser retrieves an account only if userID owns it.
func (s *AccountStorage) GetAccountForUser(accountID, userID string) (*models.EmailAccount, error) {
	account, err := s.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrNotFound
	}
	return account, nil
}

// GetAccountsByUser retrieves all accounts for a user, oldest first. The
// passwords are left encrypted since listings never need them.
func (s *AccountStorage) GetAccountsByUser(userID string) ([]models.EmailAccount, error) {
	accounts := []models.EmailAccount{}
	err := s.db.Select(&accounts,
		"SELECT * FROM email_accounts WHERE user_id = ? ORDER BY created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	for i := range accounts {
		accounts[i].IMAPPassword = ""
		accounts[i].SMTPPassword = ""
	}
	return accounts, nil
}

// SetActive activates or deactivates an account.
func (s *AccountStorage) SetActive(accountID string, active bool) error {
	return s.update(accountID,
		"UPDATE email_accounts SET is_active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active), time.Now().UTC(), accountID)
}

// TouchSync records the time of the last successful sync.
func (s *AccountStorage) TouchSync(accountID string, at time.Time) error {
	return s.update(accountID,
		"UPDATE email_accounts SET last_sync_at = ?, updated_at = ? WHERE id = ?",
		at.UTC(), time.Now().UTC(), accountID)
}

// DeleteAccount deletes an account and, through the foreign key, its messages
func (s *AccountStorage) DeleteAccount(accountID string) error {
	return s.update(accountID, "DELETE FROM email_accounts WHERE id = ?", accountID)
}

func (s *AccountStorage) update(accountID, query string, args ...interface{}) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", accountID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// sealed returns a copy of account with encrypted passwords.
func (s *AccountStorage) sealed(account *models.EmailAccount) (*models.EmailAccount, error) {
	stored := *account

	var err error
	if stored.IMAPPassword, err = encrypt(account.IMAPPassword, s.key); err != nil {
		return nil, fmt.Errorf("failed to encrypt password: %w", err)
	}
	if stored.SMTPPassword, err = encrypt(account.SMTPPassword, s.key); err != nil {
		return nil, fmt.Errorf("failed to encrypt password: %w", err)
	}
	return &stored, nil
}

func (s *AccountStorage) open(account *models.EmailAccount) error {
	var err error
	if account.IMAPPassword, err = decrypt(account.IMAPPassword, s.key); err != nil {
		return fmt.Errorf("failed to decrypt password: %w", err)
	}
	if account.SMTPPassword, err = decrypt(account.SMTPPassword, s.key); err != nil {
		return fmt.Errorf("failed to decrypt password: %w", err)
	}
	return nil
}
