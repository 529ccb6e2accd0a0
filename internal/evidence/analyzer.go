// Package evidence classifies the reported defect from the description
// and an optional media item. With media it consults a vision
// capability; without one, or when the capability fails, it falls back
// to a keyword heuristic over the description.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"redress/internal/domain"
	"redress/internal/logging"
)

// HeuristicConfidence is the fixed confidence of the keyword path.
const HeuristicConfidence = 0.3

// Assessment is the evidence stage output. Produced once per run; the
// rest of the pipeline treats it as immutable.
type Assessment struct {
	DefectLabel        string          `json:"defect_label"`
	Severity           domain.Severity `json:"estimated_severity"`
	DamageType         string          `json:"damage_type"`
	Depiction          string          `json:"image_description,omitempty"`
	Confidence         float64         `json:"vision_confidence"`
	ProbableCause      domain.Cause    `json:"probable_cause"`
	DefectLocation     string          `json:"defect_location,omitempty"`
	PatternAnalysis    string          `json:"damage_pattern_analysis,omitempty"`
	MatchesDescription bool            `json:"matches_description"`
	MatchesProduct     bool            `json:"matches_product"`
	ValidationIssue    string          `json:"validation_issue,omitempty"`
	FromVision         bool            `json:"from_vision"`
}

// VisionCapability is the slice of the capability client the analyzer
// needs.
type VisionCapability interface {
	Available() bool
	VisionJSON(ctx context.Context, prompt string, image []byte, mimeType string, out any) error
}

// Analyzer runs the evidence stage.
type Analyzer struct {
	vision VisionCapability
	log    *slog.Logger
}

// New builds an analyzer. A nil vision capability keeps the analyzer on
// the heuristic path.
func New(vision VisionCapability) *Analyzer {
	return &Analyzer{vision: vision, log: logging.New("evidence")}
}

// Analyze classifies the defect. Only the first image of the request's
// media list is used; later items are ignored. Analyze never fails: any
// capability error degrades to the keyword heuristic.
func (a *Analyzer) Analyze(ctx context.Context, req domain.ReturnRequest) Assessment {
	img := firstImage(req.Media)
	if img == nil || a.vision == nil || !a.vision.Available() {
		return a.heuristic(req)
	}
	if len(req.Media) > 1 {
		a.log.Info("using first image only", "provided", len(req.Media))
	}

	var reply visionReply
	prompt := visionPrompt(req)
	if err := a.vision.VisionJSON(ctx, prompt, img.Data, img.MimeType, &reply); err != nil {
		a.log.Warn("vision analysis failed, falling back to description heuristic", "error", err)
		return a.heuristic(req)
	}
	return reply.toAssessment(req)
}

func firstImage(media []domain.MediaItem) *domain.MediaItem {
	for i := range media {
		if media[i].IsImage() {
			return &media[i]
		}
	}
	return nil
}

// visionReply mirrors the JSON object the vision prompt demands.
type visionReply struct {
	MatchesDescription *bool   `json:"image_matches_description"`
	MatchesProduct     *bool   `json:"image_matches_product"`
	ValidationIssue    string  `json:"validation_issue"`
	IdentifiedProduct  string  `json:"identified_product"`
	ImageDescription   string  `json:"image_description"`
	DefectLabel        string  `json:"defect_label"`
	EstimatedSeverity  string  `json:"estimated_severity"`
	DamageType         string  `json:"damage_type"`
	VisionConfidence   float64 `json:"vision_confidence"`
	ProbableCause      string  `json:"probable_cause"`
	DefectLocation     string  `json:"defect_location"`
	PatternAnalysis    string  `json:"damage_pattern_analysis"`
}

func (r visionReply) toAssessment(req domain.ReturnRequest) Assessment {
	matchesDesc := r.MatchesDescription == nil || *r.MatchesDescription
	matchesProduct := r.MatchesProduct == nil || *r.MatchesProduct

	if !matchesDesc {
		issue := r.ValidationIssue
		if issue == "" {
			shown := r.IdentifiedProduct
			if shown == "" {
				shown = "unknown product"
			}
			issue = fmt.Sprintf("image shows %s, which does not match the description", shown)
		}
		depiction := r.ImageDescription
		if depiction == "" && r.IdentifiedProduct != "" {
			depiction = "Image shows: " + r.IdentifiedProduct
		}
		// Confidence 1.0 expresses certainty of the mismatch.
		return Assessment{
			DefectLabel:        "image_mismatch",
			Severity:           domain.SeveritySevere,
			DamageType:         string(req.DamageType),
			Depiction:          depiction,
			Confidence:         1.0,
			ProbableCause:      domain.CauseUncertain,
			DefectLocation:     r.ValidationIssue,
			PatternAnalysis:    "validation failed: " + issue,
			MatchesDescription: false,
			MatchesProduct:     matchesProduct,
			ValidationIssue:    issue,
			FromVision:         true,
		}
	}

	label := r.DefectLabel
	if label == "" {
		label = "general_damage"
	}
	severity := domain.Severity(r.EstimatedSeverity)
	if severity != domain.SeverityMinor && severity != domain.SeverityModerate && severity != domain.SeveritySevere {
		severity = domain.SeverityMinor
	}
	cause := domain.Cause(r.ProbableCause)
	if cause != domain.CauseManufacturing && cause != domain.CauseUserDamage {
		cause = domain.CauseUncertain
	}
	conf := r.VisionConfidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return Assessment{
		DefectLabel:        label,
		Severity:           severity,
		DamageType:         string(req.DamageType),
		Depiction:          r.ImageDescription,
		Confidence:         conf,
		ProbableCause:      cause,
		DefectLocation:     r.DefectLocation,
		PatternAnalysis:    r.PatternAnalysis,
		MatchesDescription: true,
		MatchesProduct:     matchesProduct,
		FromVision:         true,
	}
}

// heuristic classifies from the description alone. No depiction text is
// produced, so the consistency stage is skipped downstream.
func (a *Analyzer) heuristic(req domain.ReturnRequest) Assessment {
	desc := strings.ToLower(req.Description)
	return Assessment{
		DefectLabel:        defectLabel(desc, req.Category),
		Severity:           estimateSeverity(desc),
		DamageType:         string(req.DamageType),
		Confidence:         HeuristicConfidence,
		ProbableCause:      estimateCause(desc),
		MatchesDescription: true,
		MatchesProduct:     true,
	}
}

// defectRule maps description keywords to a defect label. Rules are
// evaluated in order; the first match wins.
type defectRule struct {
	label string
	match func(desc, category string) bool
}

var defectRules = []defectRule{
	{"cracked_screen", func(d, c string) bool {
		return (strings.Contains(d, "crack") || strings.Contains(d, "broken")) &&
			(strings.Contains(d, "screen") || c == domain.CategoryElectronics)
	}},
	{"broken_handle", func(d, c string) bool {
		return (strings.Contains(d, "crack") || strings.Contains(d, "broken")) && strings.Contains(d, "handle")
	}},
	{"cracked_item", func(d, c string) bool {
		return strings.Contains(d, "crack") || strings.Contains(d, "broken")
	}},
	{"scratched_surface", func(d, c string) bool {
		return strings.Contains(d, "scratch")
	}},
	{"torn_fabric", func(d, c string) bool {
		return strings.Contains(d, "tear") || strings.Contains(d, "ripped")
	}},
	{"stained_item", func(d, c string) bool {
		return strings.Contains(d, "stain")
	}},
	{"power_failure", func(d, c string) bool {
		return strings.Contains(d, "power") || strings.Contains(d, "won't turn on") || strings.Contains(d, "not working")
	}},
	{"button_malfunction", func(d, c string) bool {
		return strings.Contains(d, "button") && (strings.Contains(d, "not") || strings.Contains(d, "broken"))
	}},
	{"display_failure", func(d, c string) bool {
		return strings.Contains(d, "display") && (strings.Contains(d, "not") || strings.Contains(d, "blank"))
	}},
}

func defectLabel(desc, category string) string {
	for _, r := range defectRules {
		if r.match(desc, category) {
			return r.label
		}
	}
	return "general_damage"
}

var (
	severeKeywords   = []string{"completely", "totally", "unusable", "destroyed", "shattered", "severe"}
	moderateKeywords = []string{"significant", "noticeable", "major", "considerable"}
)

func estimateSeverity(desc string) domain.Severity {
	for _, kw := range severeKeywords {
		if strings.Contains(desc, kw) {
			return domain.SeveritySevere
		}
	}
	for _, kw := range moderateKeywords {
		if strings.Contains(desc, kw) {
			return domain.SeverityModerate
		}
	}
	return domain.SeverityMinor
}

var (
	manufacturingKeywords = []string{
		"defect", "flaw", "imperfection", "manufacturing", "factory", "production",
		"seam", "stitching", "uneven", "warped", "misaligned", "missing part",
		"wrong color", "wrong size", "defective", "faulty from", "came broken",
		"arrived damaged", "out of box",
	}
	userDamageKeywords = []string{
		"dropped", "fell", "accident", "hit", "impact", "scratched from use",
		"worn", "used", "after using", "while using", "my fault", "i dropped",
		"i broke", "i damaged", "spilled", "knocked over",
	}
)

func estimateCause(desc string) domain.Cause {
	var manufacturing, userDamage int
	for _, kw := range manufacturingKeywords {
		if strings.Contains(desc, kw) {
			manufacturing++
		}
	}
	for _, kw := range userDamageKeywords {
		if strings.Contains(desc, kw) {
			userDamage++
		}
	}
	switch {
	case manufacturing > userDamage:
		return domain.CauseManufacturing
	case userDamage > manufacturing:
		return domain.CauseUserDamage
	default:
		return domain.CauseUncertain
	}
}

func visionPrompt(req domain.ReturnRequest) string {
	var b strings.Builder
	if req.ProductName != "" {
		fmt.Fprintf(&b, "Ordered Product Name: %s\n", req.ProductName)
	}
	fmt.Fprintf(&b, "Product Category: %s\n", req.Category)
	fmt.Fprintf(&b, "Reported Damage Type: %s\n", req.DamageType)
	fmt.Fprintf(&b, "User's Description: %s\n\n", req.Description)
	b.WriteString(
		"VALIDATION PRIORITY:\n" +
			"The PRIMARY validation is whether the image matches what the user is describing. " +
			"The image should show the issue, defect, or situation the user is reporting.\n\n" +
			"STEP 1 - DESCRIPTION VALIDATION (PRIMARY - MOST IMPORTANT):\n" +
			"Compare what you see in the image to the user's description. " +
			"Does the image show what the user is describing?\n" +
			"Set 'image_matches_description' to TRUE only if the image clearly shows what the user described. " +
			"A wrong-item claim with an image of the wrong item still matches the description.\n\n" +
			"STEP 2 - PRODUCT VALIDATION (SECONDARY - INFORMATIONAL):\n" +
			"Identify what product is actually shown and compare it to the ordered product name above (if provided). " +
			"Set 'image_matches_product' accordingly. For WRONG_ITEM cases this will be FALSE, which is expected and valid.\n\n" +
			"STEP 3 - DEFECT ANALYSIS:\n" +
			"If image_matches_description is TRUE, analyze the defect or issue shown.\n\n" +
			"Respond with a JSON object containing exactly these fields:\n" +
			"- image_matches_description: true or false (PRIMARY VALIDATION)\n" +
			"- image_matches_product: true or false (SECONDARY, informational only)\n" +
			"- validation_issue: explanation ONLY if image_matches_description is false, otherwise empty\n" +
			"- identified_product: what product you actually see in the image\n" +
			"- image_description: a clear, natural description of what you see, in everyday language\n" +
			"- defect_label: a snake_case defect identifier (e.g. 'cracked_screen', 'wrong_item'); use 'image_mismatch' when image_matches_description is false\n" +
			"- estimated_severity: one of 'minor', 'moderate', 'severe'\n")
	fmt.Fprintf(&b, "- damage_type: '%s' (must match the reported type)\n", req.DamageType)
	b.WriteString(
		"- vision_confidence: a float in [0.0, 1.0] for how confident you are in this analysis\n" +
			"- probable_cause: one of 'manufacturing', 'user_damage', 'uncertain'; for WRONG_ITEM use 'manufacturing' (fulfillment error)\n" +
			"- defect_location: where the issue is located\n" +
			"- damage_pattern_analysis: a brief analysis of what you observe\n\n" +
			"CRITICAL RULE: only image_matches_description = false indicates rejection. " +
			"If it is true, proceed with analysis regardless of image_matches_product.")
	return b.String()
}
