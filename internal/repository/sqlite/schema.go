package sqlite

// Amounts are stored as canonical decimal text and summed in Go.
const schema = `
CREATE TABLE IF NOT EXISTS debts (
	id           TEXT PRIMARY KEY,
	batch_key    TEXT NOT NULL,
	owner_code   TEXT NOT NULL,
	owner_id     TEXT NOT NULL,
	issue_date   TEXT NOT NULL,
	source_type  TEXT NOT NULL,
	total_amount TEXT NOT NULL,
	status       INTEGER NOT NULL CHECK (status BETWEEN 0 AND 4),
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_debts_batch_key ON debts(batch_key);
CREATE INDEX IF NOT EXISTS idx_debts_issue_date ON debts(issue_date, id);
CREATE INDEX IF NOT EXISTS idx_debts_owner ON debts(owner_id);

CREATE TABLE IF NOT EXISTS debt_lines (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	debt_id        TEXT NOT NULL REFERENCES debts(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	client         TEXT NOT NULL DEFAULT '',
	amount         TEXT NOT NULL,
	flight_segment TEXT NOT NULL DEFAULT '',
	ticket_number  TEXT NOT NULL DEFAULT '',
	remark         TEXT NOT NULL DEFAULT '',
	UNIQUE (debt_id, position)
);

CREATE TABLE IF NOT EXISTS payments (
	id          TEXT PRIMARY KEY,
	debt_id     TEXT NOT NULL REFERENCES debts(id) ON DELETE RESTRICT,
	payer_name  TEXT NOT NULL,
	amount      TEXT NOT NULL,
	pay_date    TEXT NOT NULL,
	remark      TEXT NOT NULL DEFAULT '',
	recorded_by TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payments_debt ON payments(debt_id);
`
