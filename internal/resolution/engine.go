// Package resolution turns the upstream assessments into the terminal
// decision. The decision comes from an ordered rule table; the
// confidence for that decision is a separately computed weighted blend
// of whichever factors are available.
package resolution

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"redress/internal/domain"
	"redress/internal/evidence"
	"redress/internal/logging"
	"redress/internal/policy"
)

// Thresholds holds the tunable decision constants. The agreement boost
// and the asymmetric rejected-side time factor are empirically chosen
// values, configurable rather than invariants.
type Thresholds struct {
	WindowDays            int     // return eligibility window, boundary day inclusive (default 30)
	ApproveThreshold      float64 // policy confidence needed for auto-approval (default 0.60)
	LowConfidenceFloor    float64 // below this, escalate (default 0.30)
	ManufacturingDiscount float64 // approval threshold discount for manufacturing causes (default 0.10)
	AgreementBoost        float64 // policy factor boost when decision agrees with policy (default 0.15)
	ConsistencyFloor      float64 // consistency scores below this count as 0 (default 0.50)
}

// DefaultThresholds returns the default decision constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WindowDays:            30,
		ApproveThreshold:      0.60,
		LowConfidenceFloor:    0.30,
		ManufacturingDiscount: 0.10,
		AgreementBoost:        0.15,
		ConsistencyFloor:      0.50,
	}
}

// escalateConfidenceCap bounds the confidence of any escalation.
const escalateConfidenceCap = 0.3

// Confidence blend weights. When a factor is unavailable its weight is
// dropped and the rest re-normalize proportionally.
const (
	policyWeight      = 0.4
	timeWeight        = 0.2
	consistencyWeight = 0.2
	visionWeight      = 0.2
	causeWeight       = 0.1
)

// Input carries everything the engine needs for one adjudication.
// Consistency and VisionConfidence are nil when the producing stage had
// no signal; nil is never treated as zero.
type Input struct {
	Policy           policy.Assessment
	Evidence         evidence.Assessment
	DamageType       domain.DamageType
	PurchaseDate     time.Time
	VisionConfidence *float64
	Consistency      *float64
}

// Outcome is the terminal resolution verdict.
type Outcome struct {
	Decision         domain.Decision `json:"decision"`
	Confidence       float64         `json:"confidence"`
	Reason           string          `json:"reason"`
	EscalationReason string          `json:"escalation_reason,omitempty"`
}

// Engine applies the decision rules.
type Engine struct {
	th  Thresholds
	now func() time.Time
	log *slog.Logger
}

// New builds an engine with the given thresholds.
func New(th Thresholds) *Engine {
	return &Engine{th: th, now: time.Now, log: logging.New("resolution")}
}

// NewAt builds an engine with an injected clock.
func NewAt(th Thresholds, now func() time.Time) *Engine {
	e := New(th)
	e.now = now
	return e
}

// rule is one ordered decision rule; the first rule returning a
// non-nil outcome wins. The returned outcome carries no confidence yet.
type rule struct {
	name  string
	apply func(in Input, days int, within bool) *Outcome
}

func (e *Engine) rules() []rule {
	th := e.th
	return []rule{
		{"functional-guard", func(in Input, days int, within bool) *Outcome {
			if in.DamageType != domain.DamageFunctional {
				return nil
			}
			return &Outcome{
				Decision: domain.DecisionEscalate,
				Reason:   "Functional damage requires manual review and is not adjudicated automatically.",
			}
		}},
		{"wrong-item-confirmed", func(in Input, days int, within bool) *Outcome {
			if in.DamageType != domain.DamageWrongItem || in.Evidence.DefectLabel != "wrong_item" || !within {
				return nil
			}
			received := in.Evidence.DefectLocation
			if received == "" {
				received = "a different product"
			}
			return &Outcome{
				Decision: domain.DecisionApproved,
				Reason: fmt.Sprintf(
					"Return approved. You received the wrong item (%s). This is a fulfillment error on our part, and we apologize for the inconvenience. Please return the item you received, and we will process your refund or send the correct item.",
					received),
			}
		}},
		{"window-expired", func(in Input, days int, within bool) *Outcome {
			if within {
				return nil
			}
			return &Outcome{
				Decision: domain.DecisionRejected,
				Reason:   rejectionReason(in.Policy, days, within, th),
			}
		}},
		{"user-damage-reject", func(in Input, days int, within bool) *Outcome {
			if in.Evidence.ProbableCause != domain.CauseUserDamage || in.Policy.Decision != domain.PolicyReject {
				return nil
			}
			return &Outcome{
				Decision: domain.DecisionRejected,
				Reason:   rejectionReason(in.Policy, days, within, th),
			}
		}},
		{"policy-reject", func(in Input, days int, within bool) *Outcome {
			if in.Policy.Decision != domain.PolicyReject {
				return nil
			}
			return &Outcome{
				Decision: domain.DecisionRejected,
				Reason:   rejectionReason(in.Policy, days, within, th),
			}
		}},
		{"policy-approve", func(in Input, days int, within bool) *Outcome {
			if in.Policy.Decision != domain.PolicyApprove || in.Policy.Confidence < th.ApproveThreshold {
				return nil
			}
			return &Outcome{
				Decision: domain.DecisionApproved,
				Reason:   approvalReason(in.Policy, days, th),
			}
		}},
		{"manufacturing-approve", func(in Input, days int, within bool) *Outcome {
			if in.Evidence.ProbableCause != domain.CauseManufacturing ||
				in.Policy.Decision != domain.PolicyApprove ||
				in.Policy.Confidence < th.ApproveThreshold-th.ManufacturingDiscount {
				return nil
			}
			return &Outcome{
				Decision: domain.DecisionApproved,
				Reason:   approvalReason(in.Policy, days, th),
			}
		}},
		{"low-confidence-escalate", func(in Input, days int, within bool) *Outcome {
			if in.Policy.Confidence >= th.LowConfidenceFloor {
				return nil
			}
			return &Outcome{
				Decision: domain.DecisionEscalate,
				Reason:   escalationReason(in, th),
			}
		}},
		{"uncertain-cause-escalate", func(in Input, days int, within bool) *Outcome {
			if in.Evidence.ProbableCause != domain.CauseUncertain || in.Policy.Confidence >= th.ApproveThreshold {
				return nil
			}
			return &Outcome{
				Decision: domain.DecisionEscalate,
				Reason:   escalationReason(in, th),
			}
		}},
		{"default-escalate", func(in Input, days int, within bool) *Outcome {
			return &Outcome{
				Decision: domain.DecisionEscalate,
				Reason:   escalationReason(in, th),
			}
		}},
	}
}

// Resolve applies the rules in order and attaches the confidence for
// the chosen decision.
func (e *Engine) Resolve(in Input) Outcome {
	days := e.daysSincePurchase(in.PurchaseDate)
	within := days <= e.th.WindowDays

	var out Outcome
	var matched string
	for _, r := range e.rules() {
		if o := r.apply(in, days, within); o != nil {
			out, matched = *o, r.name
			break
		}
	}

	switch matched {
	case "functional-guard":
		// Guard against misrouted requests; no certainty to claim.
		out.Confidence = 0
	case "wrong-item-confirmed":
		// A confirmed fulfillment error has no policy ambiguity.
		out.Confidence = 1.0
	default:
		out.Confidence = e.confidence(out.Decision, in, within)
	}
	if out.Decision == domain.DecisionEscalate {
		out.EscalationReason = out.Reason
	}
	e.log.Info("resolved",
		"rule", matched, "decision", out.Decision,
		"confidence", out.Confidence, "days_since_purchase", days)
	return out
}

func (e *Engine) daysSincePurchase(purchase time.Time) int {
	d := int(e.now().UTC().Sub(purchase.UTC()).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d
}

// confidence blends the available factors with their weights,
// re-normalizing proportionally over whatever is present. Escalations
// are capped instead of blended.
func (e *Engine) confidence(decision domain.Decision, in Input, within bool) float64 {
	if decision == domain.DecisionEscalate {
		c := in.Policy.Confidence * 0.5
		if c > escalateConfidenceCap {
			c = escalateConfidenceCap
		}
		if c < 0 {
			c = 0
		}
		return c
	}

	type factor struct {
		value  float64
		weight float64
	}
	var factors []factor

	policyFactor := in.Policy.Confidence
	if decision == domain.DecisionApproved && in.Policy.Decision == domain.PolicyApprove {
		policyFactor += e.th.AgreementBoost
		if policyFactor > 1 {
			policyFactor = 1
		}
	}
	factors = append(factors, factor{policyFactor, policyWeight})

	var timeFactor float64
	if decision == domain.DecisionApproved {
		if within {
			timeFactor = 1.0
		}
	} else {
		// Being out of window itself supports rejection.
		timeFactor = 1.0
		if within {
			timeFactor = 0.8
		}
	}
	factors = append(factors, factor{timeFactor, timeWeight})

	if in.Consistency != nil {
		v := *in.Consistency
		if v < e.th.ConsistencyFloor {
			v = 0
		}
		factors = append(factors, factor{v, consistencyWeight})
	}
	if in.VisionConfidence != nil {
		factors = append(factors, factor{*in.VisionConfidence, visionWeight})
	}
	if in.Evidence.ProbableCause != "" {
		factors = append(factors, factor{causeAlignment(decision, in), causeWeight})
	}

	var weighted, total float64
	for _, f := range factors {
		weighted += f.value * f.weight
		total += f.weight
	}
	if total == 0 {
		return 0
	}
	c := weighted / total
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// causeAlignment scores how well the inferred cause supports the
// decision.
func causeAlignment(decision domain.Decision, in Input) float64 {
	cause := in.Evidence.ProbableCause
	if decision == domain.DecisionApproved {
		switch {
		case cause == domain.CauseManufacturing && in.Policy.Decision == domain.PolicyApprove:
			return 1.0
		case cause == domain.CauseUncertain:
			return 0.6
		default:
			return 0.7
		}
	}
	switch {
	case cause == domain.CauseUserDamage && in.Policy.Decision == domain.PolicyReject:
		return 1.0
	case cause == domain.CauseUncertain:
		return 0.5
	default:
		return 0.7
	}
}

func approvalReason(p policy.Assessment, days int, th Thresholds) string {
	return fmt.Sprintf(
		"Return approved. Your request was submitted %d days after purchase, which is within our %d-day return window. \n\n%s",
		days, th.WindowDays, p.Interpretation)
}

func rejectionReason(p policy.Assessment, days int, within bool, th Thresholds) string {
	var reasons []string
	if p.Decision == domain.PolicyReject {
		reasons = append(reasons, "the return policy does not cover this type of damage")
	}
	if !within {
		over := days - th.WindowDays
		reasons = append(reasons, fmt.Sprintf(
			"the return window has expired (request submitted %d days after purchase, which exceeds our %d-day return window by %d day(s))",
			days, th.WindowDays, over))
	}
	if p.Confidence < th.ApproveThreshold && p.Decision == domain.PolicyApprove {
		reasons = append(reasons, "there is insufficient confidence in the assessment to automatically approve this return")
	}

	var text string
	if len(reasons) == 0 {
		text = "Return rejected. The request does not meet our automatic approval criteria. "
	} else {
		text = fmt.Sprintf("Return rejected because %s. ", strings.Join(reasons, " and "))
	}
	text += "\n\n" + p.Interpretation

	switch {
	case !within:
		text += "\n\nIf you believe there are extenuating circumstances, please contact our support team for manual review."
	case p.Decision == domain.PolicyReject:
		text += "\n\nIf you have additional information or believe this decision is incorrect, please contact our support team."
	default:
		text += "\n\nIf you have questions, please contact our support team for assistance."
	}
	return text
}

func escalationReason(in Input, th Thresholds) string {
	var reasons []string
	if in.Evidence.ProbableCause == domain.CauseUncertain {
		reasons = append(reasons, "the cause of the damage could not be determined with sufficient certainty")
	}
	if in.Policy.Confidence < th.LowConfidenceFloor {
		reasons = append(reasons, "there is insufficient confidence in the assessment")
	}
	if in.Evidence.Severity == domain.SeveritySevere {
		reasons = append(reasons, "the severity of the defect requires human review")
	}

	text := "This return request requires manual review by our support team. "
	if len(reasons) > 0 {
		text += fmt.Sprintf("Reason: %s. ", strings.Join(reasons, ", "))
	}
	text += "\n\nOur team will examine your case and get back to you within 1-2 business days. "
	text += "You will receive an email notification once the review is complete."
	return text
}
