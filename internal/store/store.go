package store

import "errors"

// DefaultDBPath is the default relative path for the SQLite DB
// (per-workspace). Open() creates the parent dir (e.g. .redress).
const DefaultDBPath = ".redress/returns.db"

// ErrNotReviewable is returned when an admin decision targets an
// aggregate that is not pending manual review. It protects both against
// double decisions and against a decision landing on an automated
// outcome.
var ErrNotReviewable = errors.New("return is not pending manual review")

// Store is the persistence facade for the return domain. Lookups return
// (nil, nil) when the row does not exist; callers decide whether that is
// an error. Service and CLI code use only this interface; the
// implementation is SQLite or in-memory.
type Store interface {
	// CreateOrder inserts an order row (seeding path).
	CreateOrder(o *Order) (int64, error)
	// GetOrderByRef returns the order with the given external reference.
	GetOrderByRef(orderID string) (*Order, error)
	// ListOrders returns all orders, newest first.
	ListOrders() ([]*Order, error)

	// CreateReturn persists a terminal aggregate. Assigns the ID (UUID)
	// and timestamps when unset. This is the only automated write path.
	CreateReturn(r *Return) error
	// GetReturn returns the aggregate by its ID.
	GetReturn(id string) (*Return, error)
	// GetReturnByOrder returns the most recent aggregate for the order.
	GetReturnByOrder(orderID string) (*Return, error)
	// ListReturnsByStatus returns aggregates in the status, newest first.
	ListReturnsByStatus(status string) ([]*Return, error)

	// SubmitAdminDecision records a human decision on a pending review.
	// Only a MANUAL_REVIEW_PENDING aggregate may transition; anything
	// else returns ErrNotReviewable.
	SubmitAdminDecision(id, decision, note, messageTitle, messageBody string) error

	Close() error
}
