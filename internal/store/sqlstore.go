package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullFloat converts a sql.NullFloat64 to a plain float64 (0 if null).
func nullFloat(nf sql.NullFloat64) float64 {
	if nf.Valid {
		return nf.Float64
	}
	return 0
}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

var _ Store = (*SqlStore)(nil)

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .redress) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version < schemaVersionV1 {
		_, err = s.db.Exec(
			"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			schemaVersionV1, nowUTC(),
		)
		if err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SqlStore) Close() error { return s.db.Close() }

// --- Orders ---

func (s *SqlStore) CreateOrder(o *Order) (int64, error) {
	if o.CreatedAt == "" {
		o.CreatedAt = nowUTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO orders (order_id, customer_id, product_name, category, purchase_date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.CustomerID, o.ProductName, o.Category,
		o.PurchaseDate.UTC().Format(time.RFC3339), o.Status, o.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order insert id: %w", err)
	}
	o.ID = id
	return id, nil
}

func (s *SqlStore) GetOrderByRef(orderID string) (*Order, error) {
	row := s.db.QueryRow(
		`SELECT id, order_id, customer_id, product_name, category, purchase_date, status, created_at
		 FROM orders WHERE order_id = ?`, orderID,
	)
	return scanOrder(row)
}

func (s *SqlStore) ListOrders() ([]*Order, error) {
	rows, err := s.db.Query(
		`SELECT id, order_id, customer_id, product_name, category, purchase_date, status, created_at
		 FROM orders ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var purchase string
	err := row.Scan(&o.ID, &o.OrderID, &o.CustomerID, &o.ProductName,
		&o.Category, &purchase, &o.Status, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.PurchaseDate, err = time.Parse(time.RFC3339, purchase)
	if err != nil {
		return nil, fmt.Errorf("parse purchase date %q: %w", purchase, err)
	}
	return &o, nil
}

// --- Returns ---

func (s *SqlStore) CreateReturn(r *Return) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = nowUTC()
	}
	r.UpdatedAt = r.CreatedAt
	_, err := s.db.Exec(
		`INSERT INTO returns (id, order_id, damage_type, description, status,
			customer_email, customer_phone,
			decision, confidence, reason, probable_cause, escalation_reason,
			message_title, message_body, evidence_json, policy_json, media_json,
			admin_decision, admin_note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrderID, r.DamageType, r.Description, r.Status,
		r.CustomerEmail, r.CustomerPhone,
		r.Decision, r.Confidence, r.Reason, r.ProbableCause, r.EscalationReason,
		r.MessageTitle, r.MessageBody, r.EvidenceJSON, r.PolicyJSON, r.MediaJSON,
		r.AdminDecision, r.AdminNote, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert return: %w", err)
	}
	return nil
}

const returnCols = `id, order_id, damage_type, description, status,
	customer_email, customer_phone,
	decision, confidence, reason, probable_cause, escalation_reason,
	message_title, message_body, evidence_json, policy_json, media_json,
	admin_decision, admin_note, created_at, updated_at`

func (s *SqlStore) GetReturn(id string) (*Return, error) {
	row := s.db.QueryRow("SELECT "+returnCols+" FROM returns WHERE id = ?", id)
	return scanReturn(row)
}

func (s *SqlStore) GetReturnByOrder(orderID string) (*Return, error) {
	row := s.db.QueryRow(
		"SELECT "+returnCols+" FROM returns WHERE order_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		orderID,
	)
	return scanReturn(row)
}

func (s *SqlStore) ListReturnsByStatus(status string) ([]*Return, error) {
	rows, err := s.db.Query(
		"SELECT "+returnCols+" FROM returns WHERE status = ? ORDER BY created_at DESC, rowid DESC",
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	defer rows.Close()

	var returns []*Return
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		returns = append(returns, r)
	}
	return returns, rows.Err()
}

func (s *SqlStore) SubmitAdminDecision(id, decision, note, messageTitle, messageBody string) error {
	status := StatusRejectedManual
	if decision == "APPROVED" {
		status = StatusApprovedManual
	}
	res, err := s.db.Exec(
		`UPDATE returns SET admin_decision = ?, admin_note = ?, status = ?,
			message_title = ?, message_body = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		decision, note, status, messageTitle, messageBody, nowUTC(),
		id, StatusManualReview,
	)
	if err != nil {
		return fmt.Errorf("submit admin decision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("admin decision rows: %w", err)
	}
	if n == 0 {
		return ErrNotReviewable
	}
	return nil
}

func scanReturn(row rowScanner) (*Return, error) {
	var r Return
	var email, phone, decision, reason, cause, escalation sql.NullString
	var title, body, evidence, policy, media, adminDec, adminNote sql.NullString
	var confidence sql.NullFloat64
	err := row.Scan(&r.ID, &r.OrderID, &r.DamageType, &r.Description, &r.Status,
		&email, &phone,
		&decision, &confidence, &reason, &cause, &escalation,
		&title, &body, &evidence, &policy, &media,
		&adminDec, &adminNote, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan return: %w", err)
	}
	r.CustomerEmail = nullStr(email)
	r.CustomerPhone = nullStr(phone)
	r.Decision = nullStr(decision)
	r.Confidence = nullFloat(confidence)
	r.Reason = nullStr(reason)
	r.ProbableCause = nullStr(cause)
	r.EscalationReason = nullStr(escalation)
	r.MessageTitle = nullStr(title)
	r.MessageBody = nullStr(body)
	r.EvidenceJSON = nullStr(evidence)
	r.PolicyJSON = nullStr(policy)
	r.MediaJSON = nullStr(media)
	r.AdminDecision = nullStr(adminDec)
	r.AdminNote = nullStr(adminNote)
	return &r, nil
}
