package postgres

const schema = `
CREATE TABLE IF NOT EXISTS debts (
	id           VARCHAR(12)   PRIMARY KEY,
	batch_key    VARCHAR(10)   NOT NULL,
	owner_code   CHAR(3)       NOT NULL,
	owner_id     TEXT          NOT NULL,
	issue_date   CHAR(6)       NOT NULL,
	source_type  CHAR(1)       NOT NULL,
	total_amount NUMERIC(14,2) NOT NULL,
	status       SMALLINT      NOT NULL CHECK (status BETWEEN 0 AND 4),
	created_at   TIMESTAMPTZ   NOT NULL,
	updated_at   TIMESTAMPTZ   NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_debts_batch_key ON debts(batch_key);
CREATE INDEX IF NOT EXISTS idx_debts_issue_date_id ON debts(issue_date, id);
CREATE INDEX IF NOT EXISTS idx_debts_owner_id ON debts(owner_id);

CREATE TABLE IF NOT EXISTS debt_lines (
	id             BIGSERIAL     PRIMARY KEY,
	debt_id        VARCHAR(12)   NOT NULL REFERENCES debts(id) ON DELETE CASCADE,
	position       INTEGER       NOT NULL,
	client         TEXT          NOT NULL DEFAULT '',
	amount         NUMERIC(14,2) NOT NULL,
	flight_segment TEXT          NOT NULL DEFAULT '',
	ticket_number  TEXT          NOT NULL DEFAULT '',
	remark         TEXT          NOT NULL DEFAULT '',
	UNIQUE (debt_id, position)
);

CREATE TABLE IF NOT EXISTS payments (
	id          UUID          PRIMARY KEY,
	debt_id     VARCHAR(12)   NOT NULL REFERENCES debts(id) ON DELETE RESTRICT,
	payer_name  TEXT          NOT NULL,
	amount      NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	pay_date    CHAR(6)       NOT NULL,
	remark      TEXT          NOT NULL DEFAULT '',
	recorded_by TEXT          NOT NULL,
	created_at  TIMESTAMPTZ   NOT NULL,
	updated_at  TIMESTAMPTZ   NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payments_debt_id ON payments(debt_id);
`
