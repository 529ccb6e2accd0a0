package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// runStoreTests exercises the shared Store contract against an
// implementation. Both backends must behave identically.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Helper()

	t.Run("order round trip", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		purchase := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		o := &Order{
			OrderID:      "ORD-1001",
			CustomerID:   "cust-1",
			ProductName:  "Wireless Headphones",
			Category:     "Electronics",
			PurchaseDate: purchase,
			Status:       "delivered",
		}
		id, err := s.CreateOrder(o)
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		if id == 0 {
			t.Error("CreateOrder returned id 0")
		}

		got, err := s.GetOrderByRef("ORD-1001")
		if err != nil {
			t.Fatalf("GetOrderByRef: %v", err)
		}
		if got == nil {
			t.Fatal("GetOrderByRef returned nil for existing order")
		}
		if diff := cmp.Diff(o, got, cmpopts.IgnoreFields(Order{}, "CreatedAt")); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		if got.CreatedAt == "" {
			t.Error("CreatedAt not assigned")
		}
	})

	t.Run("missing order is nil nil", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		got, err := s.GetOrderByRef("ORD-NOPE")
		if err != nil {
			t.Fatalf("GetOrderByRef: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing order, got %+v", got)
		}
	})

	t.Run("duplicate order ref rejected", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		o := &Order{OrderID: "ORD-DUP", ProductName: "Kettle", Category: "Home", PurchaseDate: time.Now().UTC()}
		if _, err := s.CreateOrder(o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		dup := &Order{OrderID: "ORD-DUP", ProductName: "Kettle", Category: "Home", PurchaseDate: time.Now().UTC()}
		if _, err := s.CreateOrder(dup); err == nil {
			t.Error("expected error for duplicate order_id")
		}
	})

	t.Run("return round trip assigns id and timestamps", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		r := &Return{
			OrderID:     "ORD-1001",
			DamageType:  "CRACKED",
			Description: "screen cracked on arrival",
			Status:      StatusApproved,
			Decision:    "APPROVED",
			Confidence:  0.85,
			Reason:      "policy and time factors favor approval",
		}
		if err := s.CreateReturn(r); err != nil {
			t.Fatalf("CreateReturn: %v", err)
		}
		if r.ID == "" {
			t.Fatal("CreateReturn did not assign an ID")
		}
		if r.CreatedAt == "" || r.UpdatedAt == "" {
			t.Error("timestamps not assigned")
		}

		got, err := s.GetReturn(r.ID)
		if err != nil {
			t.Fatalf("GetReturn: %v", err)
		}
		if got == nil {
			t.Fatal("GetReturn returned nil for existing return")
		}
		if diff := cmp.Diff(r, got); diff != "" {
			t.Errorf("return mismatch (-want +got):\n%s", diff)
		}
		if !got.Adjudicated() {
			t.Error("Adjudicated() = false for decided return")
		}
	})

	t.Run("get return by order picks newest", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		old := &Return{
			OrderID: "ORD-2001", DamageType: "SCRATCHED", Description: "light scratches",
			Status: StatusRejected, Decision: "REJECTED",
			CreatedAt: "2026-08-01T10:00:00Z",
		}
		if err := s.CreateReturn(old); err != nil {
			t.Fatalf("CreateReturn old: %v", err)
		}
		recent := &Return{
			OrderID: "ORD-2001", DamageType: "CRACKED", Description: "now fully cracked",
			Status: StatusApproved, Decision: "APPROVED",
			CreatedAt: "2026-08-10T10:00:00Z",
		}
		if err := s.CreateReturn(recent); err != nil {
			t.Fatalf("CreateReturn recent: %v", err)
		}

		got, err := s.GetReturnByOrder("ORD-2001")
		if err != nil {
			t.Fatalf("GetReturnByOrder: %v", err)
		}
		if got == nil || got.ID != recent.ID {
			t.Errorf("GetReturnByOrder = %+v, want id %s", got, recent.ID)
		}
	})

	t.Run("list by status", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		pending := &Return{OrderID: "ORD-3001", DamageType: "FUNCTIONAL", Description: "does not power on", Status: StatusManualReview}
		approved := &Return{OrderID: "ORD-3002", DamageType: "CRACKED", Description: "cracked case", Status: StatusApproved, Decision: "APPROVED"}
		for _, r := range []*Return{pending, approved} {
			if err := s.CreateReturn(r); err != nil {
				t.Fatalf("CreateReturn: %v", err)
			}
		}

		got, err := s.ListReturnsByStatus(StatusManualReview)
		if err != nil {
			t.Fatalf("ListReturnsByStatus: %v", err)
		}
		if len(got) != 1 || got[0].ID != pending.ID {
			t.Errorf("ListReturnsByStatus = %d rows, want the single pending row", len(got))
		}
	})

	t.Run("admin decision transitions pending review", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		r := &Return{OrderID: "ORD-4001", DamageType: "FUNCTIONAL", Description: "intermittent failure", Status: StatusManualReview}
		if err := s.CreateReturn(r); err != nil {
			t.Fatalf("CreateReturn: %v", err)
		}

		err := s.SubmitAdminDecision(r.ID, "APPROVED", "verified defect", "Return approved", "Your return has been approved after review.")
		if err != nil {
			t.Fatalf("SubmitAdminDecision: %v", err)
		}

		got, err := s.GetReturn(r.ID)
		if err != nil {
			t.Fatalf("GetReturn: %v", err)
		}
		if got.Status != StatusApprovedManual {
			t.Errorf("Status = %s, want %s", got.Status, StatusApprovedManual)
		}
		if got.AdminDecision != "APPROVED" || got.AdminNote != "verified defect" {
			t.Errorf("admin fields = %q/%q", got.AdminDecision, got.AdminNote)
		}
		if got.MessageTitle == "" || got.MessageBody == "" {
			t.Error("admin message not persisted")
		}

		// A second decision on the same aggregate must be refused.
		err = s.SubmitAdminDecision(r.ID, "REJECTED", "changed my mind", "t", "b")
		if !errors.Is(err, ErrNotReviewable) {
			t.Errorf("second decision err = %v, want ErrNotReviewable", err)
		}
	})

	t.Run("admin decision refuses automated outcomes", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		r := &Return{OrderID: "ORD-5001", DamageType: "CRACKED", Description: "cracked lid", Status: StatusRejected, Decision: "REJECTED"}
		if err := s.CreateReturn(r); err != nil {
			t.Fatalf("CreateReturn: %v", err)
		}
		err := s.SubmitAdminDecision(r.ID, "APPROVED", "override", "t", "b")
		if !errors.Is(err, ErrNotReviewable) {
			t.Errorf("err = %v, want ErrNotReviewable", err)
		}

		err = s.SubmitAdminDecision("no-such-id", "APPROVED", "", "t", "b")
		if !errors.Is(err, ErrNotReviewable) {
			t.Errorf("missing id err = %v, want ErrNotReviewable", err)
		}
	})
}

func TestSqlStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, err := Open(filepath.Join(t.TempDir(), "returns.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return s
	})
}

func TestMemStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return NewMemStore() })
}

func TestSqlStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "returns.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	o := &Order{OrderID: "ORD-R1", ProductName: "Lamp", Category: "Home", PurchaseDate: time.Now().UTC().Truncate(time.Second)}
	if _, err := s.CreateOrder(o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen runs migrate again; data must survive.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.GetOrderByRef("ORD-R1")
	if err != nil {
		t.Fatalf("GetOrderByRef: %v", err)
	}
	if got == nil || got.ProductName != "Lamp" {
		t.Errorf("order did not survive reopen: %+v", got)
	}
}
