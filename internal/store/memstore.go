package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and dry runs. Behavior
// mirrors SqlStore, including (nil, nil) for missing rows and the
// manual-review guard on admin decisions.
type MemStore struct {
	mu      sync.RWMutex
	nextID  int64
	orders  []*Order
	returns []*Return
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func (m *MemStore) CreateOrder(o *Order) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.orders {
		if ex.OrderID == o.OrderID {
			return 0, fmt.Errorf("order %s already exists", o.OrderID)
		}
	}
	if o.CreatedAt == "" {
		o.CreatedAt = nowUTC()
	}
	o.ID = m.nextID
	m.nextID++
	cp := *o
	m.orders = append(m.orders, &cp)
	return o.ID, nil
}

func (m *MemStore) GetOrderByRef(orderID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.OrderID == orderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemStore) ListOrders() ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Order, 0, len(m.orders))
	for i := len(m.orders) - 1; i >= 0; i-- {
		cp := *m.orders[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) CreateReturn(r *Return) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = nowUTC()
	}
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.returns = append(m.returns, &cp)
	return nil
}

func (m *MemStore) GetReturn(id string) (*Return, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.returns {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemStore) GetReturnByOrder(orderID string) (*Return, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Insertion order is creation order; the last match is the newest.
	for i := len(m.returns) - 1; i >= 0; i-- {
		if m.returns[i].OrderID == orderID {
			cp := *m.returns[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemStore) ListReturnsByStatus(status string) ([]*Return, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Return
	for i := len(m.returns) - 1; i >= 0; i-- {
		if m.returns[i].Status == status {
			cp := *m.returns[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemStore) SubmitAdminDecision(id, decision, note, messageTitle, messageBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.returns {
		if r.ID != id {
			continue
		}
		if r.Status != StatusManualReview {
			return ErrNotReviewable
		}
		if decision == "APPROVED" {
			r.Status = StatusApprovedManual
		} else {
			r.Status = StatusRejectedManual
		}
		r.AdminDecision = decision
		r.AdminNote = note
		r.MessageTitle = messageTitle
		r.MessageBody = messageBody
		r.UpdatedAt = nowUTC()
		return nil
	}
	return ErrNotReviewable
}

func (m *MemStore) Close() error { return nil }
