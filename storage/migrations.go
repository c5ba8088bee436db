package storage

type migration struct {
	version int
	sql     string
}

// migrations must be listed in version order, starting at 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS email_accounts (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name          TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL,
	provider      TEXT NOT NULL DEFAULT 'custom',
	imap_host     TEXT NOT NULL,
	imap_port     INTEGER NOT NULL,
	imap_secure   INTEGER NOT NULL DEFAULT 1,
	imap_user     TEXT NOT NULL,
	imap_password TEXT NOT NULL,
	smtp_host     TEXT NOT NULL,
	smtp_port     INTEGER NOT NULL,
	smtp_secure   INTEGER NOT NULL DEFAULT 0,
	smtp_user     TEXT NOT NULL,
	smtp_password TEXT NOT NULL,
	is_active     INTEGER NOT NULL DEFAULT 1,
	last_sync_at  DATETIME,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS email_messages (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL REFERENCES email_accounts(id) ON DELETE CASCADE,
	message_id   TEXT NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	from_address TEXT NOT NULL DEFAULT '',
	from_name    TEXT NOT NULL DEFAULT '',
	to_json      TEXT NOT NULL DEFAULT '[]',
	text_body    TEXT NOT NULL DEFAULT '',
	html_body    TEXT NOT NULL DEFAULT '',
	date         DATETIME NOT NULL,
	is_read      INTEGER NOT NULL DEFAULT 0,
	is_important INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	UNIQUE (message_id, account_id)
);

CREATE INDEX IF NOT EXISTS idx_email_accounts_user_id ON email_accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_email_messages_account_date ON email_messages(account_id, date DESC);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
