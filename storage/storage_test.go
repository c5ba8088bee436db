package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmmail/models"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sqlx.DB) *models.User {
	t.Helper()
	user := &models.User{FirstName: "Ada", LastName: "Lovelace", Email: "Ada@Example.com"}
	require.NoError(t, NewUserStorage(db).CreateUser(user, "secret123"))
	return user
}

func createTestAccount(t *testing.T, db *sqlx.DB, userID string) *models.EmailAccount {
	t.Helper()
	account := &models.EmailAccount{
		UserID:   userID,
		Name:     "Sales",
		Email:    "sales@example.com",
		Provider: models.ProviderCustom,
		IsActive: true,
	}
	account.ApplySettings(models.EmailSettings{
		Email: "sales@example.com",
		IMAP:  models.Endpoint{Host: "imap.example.com", Port: 993, Secure: true, User: "sales", Password: "imap-pass"},
		SMTP:  models.Endpoint{Host: "smtp.example.com", Port: 587, User: "sales", Password: "smtp-pass"},
	})
	require.NoError(t, NewAccountStorage(db, testKey).CreateAccount(account))
	return account
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, runMigrations(db))

	var version int
	require.NoError(t, db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, len(migrations), version)
}

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := encrypt("hunter2", testKey)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "hunter2")

	plain, err := decrypt(sealed, testKey)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)

	_, err = decrypt(sealed, []byte("ffffffffffffffffffffffffffffffff"))
	assert.Error(t, err)

	_, err = decrypt("abcd", testKey)
	assert.Error(t, err)
}

func TestUserStorage(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db)
	user := createTestUser(t, db)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	loaded, err := users.GetUserByEmail("ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)
	assert.NoError(t, users.VerifyPassword(loaded, "secret123"))
	assert.Error(t, users.VerifyPassword(loaded, "wrong"))

	_, err = users.GetUser("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = users.CreateUser(&models.User{Email: "ada@example.com"}, "other-pass")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAccountStorage(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountStorage(db, testKey)
	user := createTestUser(t, db)
	account := createTestAccount(t, db, user.ID)

	var stored string
	require.NoError(t, db.Get(&stored, "SELECT imap_password FROM email_accounts WHERE id = ?", account.ID))
	assert.NotEqual(t, "imap-pass", stored)

	loaded, err := accounts.GetAccountForUser(account.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "imap-pass", loaded.IMAPPassword)
	assert.Equal(t, "smtp-pass", loaded.SMTPPassword)
	assert.True(t, loaded.IMAPSecure)
	assert.False(t, loaded.SMTPSecure)
	assert.True(t, loaded.IsActive)
	assert.Nil(t, loaded.LastSyncAt)

	_, err = accounts.GetAccountForUser(account.ID, "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := accounts.GetAccountsByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].IMAPPassword)

	require.NoError(t, accounts.SetActive(account.ID, false))
	syncedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, accounts.TouchSync(account.ID, syncedAt))

	loaded, err = accounts.GetAccount(account.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)
	require.NotNil(t, loaded.LastSyncAt)
	assert.True(t, syncedAt.Equal(*loaded.LastSyncAt))

	assert.ErrorIs(t, accounts.SetActive("missing", true), ErrNotFound)
}

func TestUpsertMessageKeepsDescriptiveFields(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageStorage(db)
	account := createTestAccount(t, db, createTestUser(t, db).ID)

	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := &models.EmailMessage{
		AccountID: account.ID,
		MessageID: "<a@example.com>",
		Subject:   "Quote request",
		From:      models.Address{Address: "lead@example.org", Name: "Lead"},
		To:        []models.Address{{Address: "sales@example.com"}},
		Text:      "Hello",
		Date:      date,
	}
	require.NoError(t, messages.UpsertMessage(first))
	assert.NotEmpty(t, first.ID)

	second := &models.EmailMessage{
		AccountID:   account.ID,
		MessageID:   "<a@example.com>",
		Subject:     "Changed subject",
		Date:        date.Add(time.Hour),
		IsRead:      true,
		IsImportant: true,
	}
	require.NoError(t, messages.UpsertMessage(second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Quote request", second.Subject)
	assert.True(t, second.IsRead)
	assert.True(t, second.IsImportant)

	list, err := messages.ListMessages(account.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Quote request", list[0].Subject)
	assert.Equal(t, []models.Address{{Address: "sales@example.com"}}, list[0].To)
	assert.True(t, date.Equal(list[0].Date))
}

func TestListMessagesNewestFirst(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageStorage(db)
	account := createTestAccount(t, db, createTestUser(t, db).ID)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"<1@x>", "<2@x>", "<3@x>"} {
		require.NoError(t, messages.UpsertMessage(&models.EmailMessage{
			AccountID: account.ID,
			MessageID: id,
			Subject:   id,
			Date:      base.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, err := messages.ListMessages(account.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "<3@x>", list[0].MessageID)
	assert.Equal(t, "<2@x>", list[1].MessageID)
}

func TestMarkReadAndDelete(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageStorage(db)
	account := createTestAccount(t, db, createTestUser(t, db).ID)

	require.NoError(t, messages.UpsertMessage(&models.EmailMessage{
		AccountID: account.ID, MessageID: "<m@x>", Subject: "s", Date: time.Now(),
	}))

	require.NoError(t, messages.MarkRead(account.ID, "<m@x>"))
	msg, err := messages.GetMessage(account.ID, "<m@x>")
	require.NoError(t, err)
	assert.True(t, msg.IsRead)

	require.NoError(t, messages.DeleteMessage(account.ID, "<m@x>"))
	_, err = messages.GetMessage(account.ID, "<m@x>")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAccountCascades(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountStorage(db, testKey)
	messages := NewMessageStorage(db)
	account := createTestAccount(t, db, createTestUser(t, db).ID)

	require.NoError(t, messages.UpsertMessage(&models.EmailMessage{
		AccountID: account.ID, MessageID: "<m@x>", Subject: "s", Date: time.Now(),
	}))
	require.NoError(t, accounts.DeleteAccount(account.ID))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM email_messages"))
	assert.Zero(t, count)
	assert.ErrorIs(t, accounts.DeleteAccount(account.ID), ErrNotFound)
}

func newFileTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "crmmail.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPragmasApplyToEveryConnection(t *testing.T) {
	db := newFileTestDB(t)
	ctx := context.Background()

	var conns []*sql.Conn
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	for i := 0; i < 3; i++ {
		c, err := db.Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, c)

		var foreignKeys, busyTimeout int
		var journal string
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys))
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
		assert.Equal(t, 1, foreignKeys, "connection %d", i)
		assert.Equal(t, 5000, busyTimeout, "connection %d", i)
		assert.Equal(t, "wal", journal, "connection %d", i)
	}
}

func TestDeleteAccountCascadesOnAnyConnection(t *testing.T) {
	db := newFileTestDB(t)
	accounts := NewAccountStorage(db, testKey)
	messages := NewMessageStorage(db)
	user := createTestUser(t, db)
	account := createTestAccount(t, db, user.ID)

	require.NoError(t, messages.UpsertMessage(&models.EmailMessage{
		AccountID: account.ID, MessageID: "<m@x>", Subject: "s", Date: time.Now(),
	}))

	// Hold the connection that ran the writes so the delete gets a fresh one.
	ctx := context.Background()
	held, err := db.Conn(ctx)
	require.NoError(t, err)
	defer held.Close()

	require.NoError(t, accounts.DeleteAccount(account.ID))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM email_messages WHERE account_id = ?", account.ID))
	assert.Zero(t, count)

	second := createTestAccount(t, db, user.ID)
	_, err = db.Exec("DELETE FROM users WHERE id = ?", user.ID)
	require.NoError(t, err)
	_, err = accounts.GetAccount(second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
