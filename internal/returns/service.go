// Package returns is the application service over the adjudication
// pipeline: it validates requests against the order, routes FUNCTIONAL
// damage to manual review, runs the pipeline for everything else, and
// persists the terminal aggregate atomically.
package returns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"redress/internal/communicate"
	"redress/internal/domain"
	"redress/internal/logging"
	"redress/internal/pipeline"
	"redress/internal/store"
)

// Validation sentinels. These reject request creation before the
// pipeline starts; they are not pipeline faults.
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrCategoryMismatch    = errors.New("request category does not match the order")
	ErrFunctionalCategory  = errors.New("functional damage is only available for the Electronics category")
	ErrInvalidDamageType   = errors.New("unknown damage type")
	ErrDescriptionTooShort = fmt.Errorf("description must be at least %d characters", domain.MinDescriptionLen)
)

// Runner drives one pipeline run. Satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, st *pipeline.State) error
}

// Service processes return requests.
type Service struct {
	store  store.Store
	runner Runner
	log    *slog.Logger
}

// NewService builds the returns service.
func NewService(st store.Store, runner Runner) *Service {
	return &Service{store: st, runner: runner, log: logging.New("returns")}
}

// Process validates the request, adjudicates it, and persists the
// resulting aggregate. Validation failures return an error and persist
// nothing; so do persistence failures (the run is all-or-nothing).
func (s *Service) Process(ctx context.Context, req domain.ReturnRequest) (*store.Return, error) {
	order, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	if req.DamageType == domain.DamageFunctional {
		return s.createManualReview(req)
	}
	return s.adjudicate(ctx, req, order)
}

func (s *Service) validate(req domain.ReturnRequest) (*store.Order, error) {
	if !req.DamageType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDamageType, req.DamageType)
	}
	if len(req.Description) < domain.MinDescriptionLen {
		return nil, ErrDescriptionTooShort
	}
	order, err := s.store.GetOrderByRef(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("look up order %s: %w", req.OrderID, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, req.OrderID)
	}
	if order.Category != req.Category {
		return nil, fmt.Errorf("%w: order category is %s, request category is %s",
			ErrCategoryMismatch, order.Category, req.Category)
	}
	if req.DamageType == domain.DamageFunctional && req.Category != domain.CategoryElectronics {
		return nil, ErrFunctionalCategory
	}
	return order, nil
}

// createManualReview parks a FUNCTIONAL claim for a human. The
// aggregate carries no assessment fields; the customer sees the fixed
// under-review message.
func (s *Service) createManualReview(req domain.ReturnRequest) (*store.Return, error) {
	msg := communicate.PendingReview()
	r := &store.Return{
		OrderID:       req.OrderID,
		DamageType:    string(req.DamageType),
		Description:   req.Description,
		Status:        store.StatusManualReview,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		MessageTitle:  msg.Title,
		MessageBody:   msg.Body,
		MediaJSON:     mediaJSON(req.Media),
	}
	if err := s.store.CreateReturn(r); err != nil {
		return nil, fmt.Errorf("persist manual review return: %w", err)
	}
	s.log.Info("return parked for manual review",
		"return_id", r.ID, "order_id", req.OrderID, "damage_type", req.DamageType)
	return r, nil
}

func (s *Service) adjudicate(ctx context.Context, req domain.ReturnRequest, order *store.Order) (*store.Return, error) {
	st := &pipeline.State{
		Request:      req,
		ProductName:  order.ProductName,
		Category:     order.Category,
		PurchaseDate: order.PurchaseDate,
	}
	if err := s.runner.Run(ctx, st); err != nil {
		return nil, fmt.Errorf("adjudicate order %s: %w", req.OrderID, err)
	}
	if st.Resolution == nil || st.Message == nil {
		return nil, fmt.Errorf("adjudicate order %s: pipeline finished without a terminal outcome", req.OrderID)
	}

	r := &store.Return{
		OrderID:          req.OrderID,
		DamageType:       string(req.DamageType),
		Description:      req.Description,
		Status:           statusFor(st.Resolution.Decision),
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		Decision:         string(st.Resolution.Decision),
		Confidence:       st.Resolution.Confidence,
		Reason:           st.Resolution.Reason,
		EscalationReason: st.Resolution.EscalationReason,
		MessageTitle:     st.Message.Title,
		MessageBody:      st.Message.Body,
		MediaJSON:        mediaJSON(req.Media),
	}
	if st.Evidence != nil {
		r.ProbableCause = string(st.Evidence.ProbableCause)
		r.EvidenceJSON = marshalJSON(st.Evidence)
	}
	if st.Policy != nil {
		r.PolicyJSON = marshalJSON(st.Policy)
	}

	if err := s.store.CreateReturn(r); err != nil {
		return nil, fmt.Errorf("persist return for order %s: %w", req.OrderID, err)
	}
	s.log.Info("return adjudicated",
		"return_id", r.ID, "order_id", req.OrderID,
		"decision", r.Decision, "confidence", r.Confidence, "status", r.Status)
	return r, nil
}

// statusFor maps the terminal decision onto the aggregate status.
func statusFor(d domain.Decision) string {
	switch d {
	case domain.DecisionApproved:
		return store.StatusApproved
	case domain.DecisionEscalate:
		return store.StatusManualReview
	default:
		return store.StatusRejected
	}
}

// GetByOrder returns the most recent aggregate for an order, or nil.
func (s *Service) GetByOrder(orderID string) (*store.Return, error) {
	return s.store.GetReturnByOrder(orderID)
}

// Get returns the aggregate by ID, or nil.
func (s *Service) Get(id string) (*store.Return, error) {
	return s.store.GetReturn(id)
}

func mediaJSON(media []domain.MediaItem) string {
	if len(media) == 0 {
		return ""
	}
	// Payload bytes stay out of the aggregate; keep the inventory.
	type mediaMeta struct {
		MimeType string `json:"mime_type"`
		Filename string `json:"filename,omitempty"`
		Size     int    `json:"size"`
	}
	metas := make([]mediaMeta, len(media))
	for i, m := range media {
		metas[i] = mediaMeta{MimeType: m.MimeType, Filename: m.Filename, Size: len(m.Data)}
	}
	return marshalJSON(metas)
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
