package store

// schemaVersionV1 is the current schema generation.
const schemaVersionV1 = 1

// schemaV1 creates the aggregate tables. Timestamps are ISO 8601 TEXT;
// the purchase date keeps full RFC3339 precision for window math.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL UNIQUE,
	customer_id TEXT NOT NULL DEFAULT '',
	product_name TEXT NOT NULL,
	category TEXT NOT NULL,
	purchase_date TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'delivered',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_order_id ON orders(order_id);

CREATE TABLE IF NOT EXISTS returns (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	damage_type TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL,
	customer_email TEXT,
	customer_phone TEXT,
	decision TEXT,
	confidence REAL,
	reason TEXT,
	probable_cause TEXT,
	escalation_reason TEXT,
	message_title TEXT,
	message_body TEXT,
	evidence_json TEXT,
	policy_json TEXT,
	media_json TEXT,
	admin_decision TEXT,
	admin_note TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	FOREIGN KEY (order_id) REFERENCES orders(order_id)
);
CREATE INDEX IF NOT EXISTS idx_returns_order_id ON returns(order_id);
CREATE INDEX IF NOT EXISTS idx_returns_status ON returns(status);
`
