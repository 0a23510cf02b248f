package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS emails (
	uid            INTEGER PRIMARY KEY,
	mailbox        TEXT NOT NULL,
	message_id     TEXT NOT NULL DEFAULT '',
	thread_id      TEXT NOT NULL DEFAULT '',
	subject        TEXT NOT NULL DEFAULT '',
	sender         TEXT NOT NULL DEFAULT '',
	to_recipients  TEXT NOT NULL DEFAULT '',
	cc_recipients  TEXT NOT NULL DEFAULT '',
	bcc_recipients TEXT NOT NULL DEFAULT '',
	sent_at        DATETIME,
	received_at    DATETIME,
	body_text      TEXT NOT NULL DEFAULT '',
	body_html      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS attachments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	email_uid    INTEGER NOT NULL REFERENCES emails(uid) ON DELETE CASCADE,
	filename     TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_state (
	mailbox  TEXT PRIMARY KEY,
	last_uid INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS email_insights (
	email_uid      INTEGER PRIMARY KEY REFERENCES emails(uid) ON DELETE CASCADE,
	summary        TEXT NOT NULL,
	action_items   TEXT NOT NULL DEFAULT '[]',
	priority_score INTEGER NOT NULL DEFAULT 0,
	provider       TEXT NOT NULL DEFAULT '',
	generated_at   DATETIME NOT NULL,
	used_fallback  INTEGER NOT NULL DEFAULT 0 CHECK(used_fallback IN (0, 1))
);

CREATE TABLE IF NOT EXISTS email_categories (
	email_uid INTEGER NOT NULL REFERENCES emails(uid) ON DELETE CASCADE,
	key       TEXT NOT NULL,
	label     TEXT NOT NULL,
	PRIMARY KEY (email_uid, key)
);

CREATE TABLE IF NOT EXISTS follow_ups (
	id           TEXT PRIMARY KEY,
	email_uid    INTEGER NOT NULL REFERENCES emails(uid) ON DELETE CASCADE,
	action       TEXT NOT NULL,
	due_at       DATETIME,
	status       TEXT NOT NULL DEFAULT 'open' CHECK(status IN ('open', 'done')),
	created_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS drafts (
	id            TEXT PRIMARY KEY,
	email_uid     INTEGER NOT NULL REFERENCES emails(uid) ON DELETE CASCADE,
	body          TEXT NOT NULL,
	provider      TEXT NOT NULL DEFAULT '',
	generated_at  DATETIME NOT NULL,
	confidence    REAL,
	used_fallback INTEGER NOT NULL DEFAULT 0 CHECK(used_fallback IN (0, 1))
);

CREATE INDEX IF NOT EXISTS idx_emails_mailbox ON emails(mailbox);
CREATE INDEX IF NOT EXISTS idx_attachments_email_uid ON attachments(email_uid);
CREATE INDEX IF NOT EXISTS idx_insights_generated_at ON email_insights(generated_at);
CREATE INDEX IF NOT EXISTS idx_insights_priority ON email_insights(priority_score);
CREATE INDEX IF NOT EXISTS idx_follow_ups_email_uid ON follow_ups(email_uid);
CREATE INDEX IF NOT EXISTS idx_follow_ups_status ON follow_ups(status);
CREATE INDEX IF NOT EXISTS idx_drafts_email_uid ON drafts(email_uid);
CREATE INDEX IF NOT EXISTS idx_drafts_generated_at ON drafts(generated_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE emails ADD COLUMN content_hash TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_emails_content_hash ON emails(content_hash);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
