package resolution

import (
	"math"
	"strings"
	"testing"
	"time"

	"redress/internal/domain"
	"redress/internal/evidence"
	"redress/internal/policy"
)

var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func engine() *Engine {
	return NewAt(DefaultThresholds(), func() time.Time { return testNow })
}

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func ptr(f float64) *float64 { return &f }

func input(mut func(*Input)) Input {
	in := Input{
		Policy: policy.Assessment{
			Decision:       domain.PolicyApprove,
			Confidence:     0.65,
			Applicability:  0.7,
			Interpretation: "Cracked screens are covered.",
		},
		Evidence: evidence.Assessment{
			DefectLabel:   "cracked_screen",
			Severity:      domain.SeverityModerate,
			ProbableCause: domain.CauseManufacturing,
		},
		DamageType:   domain.DamagePhysical,
		PurchaseDate: daysAgo(10),
	}
	if mut != nil {
		mut(&in)
	}
	return in
}

func TestResolve_FunctionalGuardEscalatesWithZeroConfidence(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) {
		in.DamageType = domain.DamageFunctional
	}))
	if got.Decision != domain.DecisionEscalate {
		t.Errorf("Decision = %s, want ESCALATE_TO_HUMAN", got.Decision)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", got.Confidence)
	}
	if got.EscalationReason == "" {
		t.Error("EscalationReason empty")
	}
}

func TestResolve_ConfirmedWrongItemApprovesWithFullConfidence(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) {
		in.DamageType = domain.DamageWrongItem
		in.Evidence.DefectLabel = "wrong_item"
		in.Policy.Decision = domain.PolicyReject
		in.Policy.Confidence = 0.1
	}))
	if got.Decision != domain.DecisionApproved {
		t.Errorf("Decision = %s, want APPROVED", got.Decision)
	}
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", got.Confidence)
	}
}

func TestResolve_WrongItemOutsideWindowRejected(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) {
		in.DamageType = domain.DamageWrongItem
		in.Evidence.DefectLabel = "wrong_item"
		in.PurchaseDate = daysAgo(45)
	}))
	if got.Decision != domain.DecisionRejected {
		t.Errorf("Decision = %s, want REJECTED", got.Decision)
	}
}

func TestResolve_WindowBoundary(t *testing.T) {
	// Day 30 is the last day inside the window; day 31 is out.
	got := engine().Resolve(input(func(in *Input) { in.PurchaseDate = daysAgo(30) }))
	if got.Decision != domain.DecisionApproved {
		t.Errorf("day 30: Decision = %s, want APPROVED", got.Decision)
	}
	got = engine().Resolve(input(func(in *Input) { in.PurchaseDate = daysAgo(31) }))
	if got.Decision != domain.DecisionRejected {
		t.Errorf("day 31: Decision = %s, want REJECTED", got.Decision)
	}
}

func TestResolve_WindowRuleFiresBeforePolicyRules(t *testing.T) {
	// Strong approval signals cannot save an expired request.
	got := engine().Resolve(input(func(in *Input) {
		in.PurchaseDate = daysAgo(45)
		in.Policy.Confidence = 0.95
	}))
	if got.Decision != domain.DecisionRejected {
		t.Errorf("Decision = %s, want REJECTED", got.Decision)
	}
}

func TestResolve_UserDamageWithPolicyReject(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) {
		in.Evidence.ProbableCause = domain.CauseUserDamage
		in.Policy.Decision = domain.PolicyReject
	}))
	if got.Decision != domain.DecisionRejected {
		t.Errorf("Decision = %s, want REJECTED", got.Decision)
	}
}

func TestResolve_PolicyRejectAlone(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) {
		in.Policy.Decision = domain.PolicyReject
	}))
	if got.Decision != domain.DecisionRejected {
		t.Errorf("Decision = %s, want REJECTED", got.Decision)
	}
}

func TestResolve_ApproveAboveThreshold(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) {
		in.Policy.Confidence = 0.65
	}))
	if got.Decision != domain.DecisionApproved {
		t.Errorf("Decision = %s, want APPROVED", got.Decision)
	}
}

func TestResolve_ManufacturingDiscount(t *testing.T) {
	// 0.55 is below the 0.60 threshold but within the manufacturing
	// discount.
	got := engine().Resolve(input(func(in *Input) {
		in.Policy.Confidence = 0.55
		in.Evidence.ProbableCause = domain.CauseManufacturing
	}))
	if got.Decision != domain.DecisionApproved {
		t.Errorf("Decision = %s, want APPROVED", got.Decision)
	}

	// The discount does not apply to other causes.
	got = engine().Resolve(input(func(in *Input) {
		in.Policy.Confidence = 0.55
		in.Evidence.ProbableCause = domain.CauseUserDamage
	}))
	if got.Decision == domain.DecisionApproved {
		t.Errorf("Decision = APPROVED for user_damage at 0.55")
	}
}

func TestResolve_LowConfidenceEscalates(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) {
		in.Policy.Confidence = 0.2
		in.Evidence.ProbableCause = domain.CauseUserDamage
	}))
	if got.Decision != domain.DecisionEscalate {
		t.Errorf("Decision = %s, want ESCALATE_TO_HUMAN", got.Decision)
	}
	// Escalation confidence is min(0.3, policy confidence x 0.5).
	if got.Confidence != 0.1 {
		t.Errorf("Confidence = %v, want 0.1", got.Confidence)
	}
}

func TestResolve_UncertainCauseBelowThresholdEscalates(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) {
		in.Policy.Confidence = 0.5
		in.Evidence.ProbableCause = domain.CauseUncertain
	}))
	if got.Decision != domain.DecisionEscalate {
		t.Errorf("Decision = %s, want ESCALATE_TO_HUMAN", got.Decision)
	}
	if got.Confidence != 0.25 {
		t.Errorf("Confidence = %v, want 0.25", got.Confidence)
	}
}

func TestResolve_EscalationConfidenceCapped(t *testing.T) {
	// Default rule: APPROVE below threshold with a non-manufacturing,
	// non-uncertain cause.
	got := engine().Resolve(input(func(in *Input) {
		in.Policy.Confidence = 0.45
		in.Evidence.ProbableCause = domain.CauseUserDamage
	}))
	if got.Decision != domain.DecisionEscalate {
		t.Fatalf("Decision = %s, want ESCALATE_TO_HUMAN", got.Decision)
	}
	// 0.45 x 0.5 = 0.225, still under the cap.
	if math.Abs(got.Confidence-0.225) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.225", got.Confidence)
	}
	if got.Confidence > escalateConfidenceCap {
		t.Errorf("Confidence = %v exceeds cap %v", got.Confidence, escalateConfidenceCap)
	}
}

func TestConfidence_AllFactorsFormula(t *testing.T) {
	in := input(func(in *Input) {
		in.Policy.Confidence = 0.7
		in.VisionConfidence = ptr(0.9)
		in.Consistency = ptr(0.8)
	})
	got := engine().Resolve(in)
	if got.Decision != domain.DecisionApproved {
		t.Fatalf("Decision = %s, want APPROVED", got.Decision)
	}

	// policy: 0.7 boosted by 0.15 = 0.85, weight 0.4
	// time: within window for APPROVED = 1.0, weight 0.2
	// consistency: 0.8 (above floor), weight 0.2
	// vision: 0.9, weight 0.2
	// cause: manufacturing + APPROVE = 1.0, weight 0.1
	want := (0.85*0.4 + 1.0*0.2 + 0.8*0.2 + 0.9*0.2 + 1.0*0.1) / 1.1
	if math.Abs(got.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", got.Confidence, want)
	}
}

func TestConfidence_MissingFactorsRenormalize(t *testing.T) {
	// No vision, no consistency: only policy, time, and cause remain.
	in := input(func(in *Input) {
		in.Policy.Confidence = 0.7
	})
	got := engine().Resolve(in)
	if got.Decision != domain.DecisionApproved {
		t.Fatalf("Decision = %s, want APPROVED", got.Decision)
	}
	want := (0.85*0.4 + 1.0*0.2 + 1.0*0.1) / 0.7
	if math.Abs(got.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", got.Confidence, want)
	}
}

func TestConfidence_ConsistencyBelowFloorCountsAsZero(t *testing.T) {
	in := input(func(in *Input) {
		in.Policy.Confidence = 0.7
		in.Consistency = ptr(0.4)
	})
	got := engine().Resolve(in)
	want := (0.85*0.4 + 1.0*0.2 + 0.0*0.2 + 1.0*0.1) / 0.9
	if math.Abs(got.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", got.Confidence, want)
	}
}

func TestConfidence_NoBoostWhenDecisionDisagrees(t *testing.T) {
	// REJECTED outcome with an APPROVE policy recommendation gets the
	// raw policy confidence, and the asymmetric time factor.
	in := input(func(in *Input) {
		in.PurchaseDate = daysAgo(40)
		in.Policy.Confidence = 0.7
	})
	got := engine().Resolve(in)
	if got.Decision != domain.DecisionRejected {
		t.Fatalf("Decision = %s, want REJECTED", got.Decision)
	}
	// policy: 0.7 unboosted, weight 0.4
	// time: out of window for REJECTED = 1.0, weight 0.2
	// cause: manufacturing but policy=APPROVE, rejected path = 0.7, weight 0.1
	want := (0.7*0.4 + 1.0*0.2 + 0.7*0.1) / 0.7
	if math.Abs(got.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", got.Confidence, want)
	}
}

func TestConfidence_RejectedWithinWindowTimeFactor(t *testing.T) {
	in := input(func(in *Input) {
		in.Policy.Decision = domain.PolicyReject
		in.Policy.Confidence = 0.7
		in.Evidence.ProbableCause = domain.CauseUserDamage
	})
	got := engine().Resolve(in)
	if got.Decision != domain.DecisionRejected {
		t.Fatalf("Decision = %s, want REJECTED", got.Decision)
	}
	// time factor 0.8 within window; cause user_damage + REJECT = 1.0.
	want := (0.7*0.4 + 0.8*0.2 + 1.0*0.1) / 0.7
	if math.Abs(got.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", got.Confidence, want)
	}
}

func TestResolve_ReasonCitesDaysSincePurchase(t *testing.T) {
	got := engine().Resolve(input(func(in *Input) { in.PurchaseDate = daysAgo(45) }))
	if got.Decision != domain.DecisionRejected {
		t.Fatalf("Decision = %s", got.Decision)
	}
	for _, want := range []string{"45 days", "30-day", "15 day(s)"} {
		if !strings.Contains(got.Reason, want) {
			t.Errorf("Reason missing %q: %q", want, got.Reason)
		}
	}
}
