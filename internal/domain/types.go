// Package domain holds the request and verdict types shared by every
// pipeline stage. Stages communicate only through these values and the
// per-run pipeline state; none of them reach into another stage's output.
package domain

// DamageType classifies why an item is being returned.
type DamageType string

const (
	DamagePhysical     DamageType = "PHYSICAL"
	DamageFunctional   DamageType = "FUNCTIONAL"
	DamageCosmetic     DamageType = "COSMETIC"
	DamagePackaging    DamageType = "PACKAGING"
	DamageMissingParts DamageType = "MISSING_PARTS"
	DamageWrongItem    DamageType = "WRONG_ITEM"
	DamageSizeIssue    DamageType = "SIZE_ISSUE"
	DamageColorIssue   DamageType = "COLOR_ISSUE"
	DamageQualityIssue DamageType = "QUALITY_ISSUE"
	DamageOther        DamageType = "OTHER"
)

// Valid reports whether t is one of the known damage types.
func (t DamageType) Valid() bool {
	switch t {
	case DamagePhysical, DamageFunctional, DamageCosmetic, DamagePackaging,
		DamageMissingParts, DamageWrongItem, DamageSizeIssue,
		DamageColorIssue, DamageQualityIssue, DamageOther:
		return true
	}
	return false
}

// CategoryElectronics is the only category for which FUNCTIONAL damage
// claims are accepted; they always route to manual review.
const CategoryElectronics = "Electronics"

// Decision is the terminal adjudication verdict.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
	DecisionEscalate Decision = "ESCALATE_TO_HUMAN"
)

// PolicyDecision is the provisional recommendation synthesized from
// retrieved policy clauses. It feeds the resolution rules; it is not a
// final verdict.
type PolicyDecision string

const (
	PolicyApprove PolicyDecision = "APPROVE"
	PolicyReject  PolicyDecision = "REJECT"
)

// Severity grades how bad an assessed defect is.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Cause is the inferred origin of a defect.
type Cause string

const (
	CauseManufacturing Cause = "manufacturing"
	CauseUserDamage    Cause = "user_damage"
	CauseUncertain     Cause = "uncertain"
)

// MediaItem is one piece of photographic evidence. Only the first item
// of a request is analyzed; the rest are stored but ignored.
type MediaItem struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
}

// IsImage reports whether the item carries an image payload.
func (m MediaItem) IsImage() bool {
	return len(m.MimeType) >= 6 && m.MimeType[:6] == "image/"
}

// ReturnRequest is a customer's request to send back a purchased item.
type ReturnRequest struct {
	OrderID       string      `json:"order_id"`
	ProductName   string      `json:"product_name,omitempty"`
	Category      string      `json:"category"`
	DamageType    DamageType  `json:"damage_type"`
	Description   string      `json:"description"`
	Media         []MediaItem `json:"media,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
}

// MinDescriptionLen is the shortest description accepted at request
// creation.
const MinDescriptionLen = 10
