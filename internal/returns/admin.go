package returns

import (
	"fmt"

	"redress/internal/communicate"
	"redress/internal/store"
)

// Admin is the manual-review write path. It is separate from the
// automated pipeline; its decisions are guarded by the store so a
// pending review can be decided exactly once.
type Admin struct {
	store    store.Store
	composer *communicate.Composer
}

// NewAdmin builds the admin review service.
func NewAdmin(st store.Store, composer *communicate.Composer) *Admin {
	return &Admin{store: st, composer: composer}
}

// PendingReviews lists aggregates waiting for a human decision, newest
// first.
func (a *Admin) PendingReviews() ([]*store.Return, error) {
	return a.store.ListReturnsByStatus(store.StatusManualReview)
}

// Decide records a human decision on a pending review and composes the
// customer message for it. decision must be APPROVED or REJECTED.
// Returns store.ErrNotReviewable when the aggregate is not pending
// manual review.
func (a *Admin) Decide(id, decision, note string) (*store.Return, error) {
	if decision != "APPROVED" && decision != "REJECTED" {
		return nil, fmt.Errorf("admin decision must be APPROVED or REJECTED, got %q", decision)
	}
	msg := a.composer.ComposeAdmin(decision, note)
	if err := a.store.SubmitAdminDecision(id, decision, note, msg.Title, msg.Body); err != nil {
		return nil, err
	}
	return a.store.GetReturn(id)
}
