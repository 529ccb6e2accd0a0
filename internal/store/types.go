package store

import "time"

// Return statuses. MANUAL_REVIEW_PENDING is the only status from which
// the admin write path may transition an aggregate.
const (
	StatusManualReview   = "MANUAL_REVIEW_PENDING"
	StatusApproved       = "RETURN_APPROVED"
	StatusRejected       = "RETURN_REJECTED"
	StatusApprovedManual = "RETURN_APPROVED_MANUAL"
	StatusRejectedManual = "RETURN_REJECTED_MANUAL"
)

// Order is the read-only order collaborator row: the facts the pipeline
// needs about a purchase (date, product, category). Orders are seeded by
// the CLI; this module never mutates them after creation.
type Order struct {
	ID           int64
	OrderID      string // external order reference, unique
	CustomerID   string
	ProductName  string
	Category     string
	PurchaseDate time.Time
	Status       string // e.g. "delivered"
	CreatedAt    string // ISO 8601
}

// Return is the persisted adjudication aggregate: the request, whichever
// assessments were produced, the terminal decision, and an optional later
// admin decision. Manual-review rows carry no assessment fields at all.
type Return struct {
	ID          string // UUID
	OrderID     string
	DamageType  string
	Description string
	Status      string

	CustomerEmail string
	CustomerPhone string

	// Automated decision projection; empty for manual-review rows.
	Decision         string
	Confidence       float64
	Reason           string
	ProbableCause    string
	EscalationReason string
	MessageTitle     string
	MessageBody      string

	// Serialized stage outputs kept for audit.
	EvidenceJSON string
	PolicyJSON   string
	MediaJSON    string

	// Admin write path; set at most once, never overwritten by a later
	// automated run.
	AdminDecision string
	AdminNote     string

	CreatedAt string // ISO 8601
	UpdatedAt string // ISO 8601
}

// Adjudicated reports whether the aggregate already carries an automated
// decision.
func (r *Return) Adjudicated() bool { return r.Decision != "" }
