// Package policy retrieves the policy clauses closest to a return
// request and synthesizes a provisional decision from them. Retrieval
// similarity and decision confidence are distinct: similarity ranks
// clauses, confidence expresses how certain the synthesized decision is.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"redress/internal/corpus"
	"redress/internal/domain"
	"redress/internal/evidence"
	"redress/internal/logging"
)

// Weights of the confidence blend: applicability dominates, retrieval
// relevance tempers it.
const (
	applicabilityWeight = 0.7
	similarityWeight    = 0.3
)

// synthesisClauses caps how many retrieved clauses feed the synthesis
// prompt.
const synthesisClauses = 5

// Assessment is the policy stage output.
type Assessment struct {
	MatchedPolicyIDs []string              `json:"matched_policy_ids"`
	PolicyTexts      []string              `json:"top_policy_texts"`
	Similarities     []float64             `json:"raw_cosine_scores"`
	Confidence       float64               `json:"confidence"`
	Interpretation   string                `json:"policy_interpretation"`
	Decision         domain.PolicyDecision `json:"policy_decision"`
	Applicability    float64               `json:"policy_applicability"`
}

// Capability is the slice of the capability client the matcher needs.
type Capability interface {
	Available() bool
	ChatJSON(ctx context.Context, system, user string, out any) error
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Matcher runs the policy stage.
type Matcher struct {
	clauses corpus.Store
	client  Capability
	topN    int
	log     *slog.Logger
}

// New builds a matcher over the clause store. topN <= 0 falls back
// to 10.
func New(clauses corpus.Store, client Capability, topN int) *Matcher {
	if topN <= 0 {
		topN = 10
	}
	return &Matcher{clauses: clauses, client: client, topN: topN, log: logging.New("policy")}
}

// noPoliciesAssessment is the terminal answer when nothing can be
// retrieved: conservative REJECT with zero confidence.
func noPoliciesAssessment() Assessment {
	return Assessment{
		MatchedPolicyIDs: []string{},
		PolicyTexts:      []string{},
		Similarities:     []float64{},
		Confidence:       0,
		Interpretation:   "No relevant policies found for this product category and damage type.",
		Decision:         domain.PolicyReject,
		Applicability:    0,
	}
}

// Match retrieves the closest clauses for the request and synthesizes a
// provisional decision. An empty corpus, or an unavailable embedding
// capability, yields the conservative no-policies answer.
func (m *Matcher) Match(ctx context.Context, description string, ev evidence.Assessment, category string) Assessment {
	query := fmt.Sprintf("%s %s %s %s %s",
		description, ev.DefectLabel, ev.Severity, ev.ProbableCause, category)

	if m.client == nil || !m.client.Available() {
		m.log.Warn("embedding capability unavailable, no policy retrieval possible")
		return noPoliciesAssessment()
	}
	vecs, err := m.client.Embed(ctx, []string{query})
	if err != nil || len(vecs) != 1 {
		m.log.Warn("query embedding failed", "error", err)
		return noPoliciesAssessment()
	}
	matches, err := m.clauses.Search(vecs[0], category, m.topN)
	if err != nil {
		m.log.Warn("clause search failed", "error", err)
		return noPoliciesAssessment()
	}
	if len(matches) == 0 {
		m.log.Warn("no policy clauses for category", "category", category)
		return noPoliciesAssessment()
	}

	ids := make([]string, len(matches))
	texts := make([]string, len(matches))
	sims := make([]float64, len(matches))
	for i, match := range matches {
		ids[i] = match.Clause.ID
		texts[i] = match.Clause.Text
		sims[i] = match.Similarity
	}
	maxSim := sims[0]

	interpretation, decision, applicability := m.synthesize(ctx, ids, texts, description, ev, category)

	confidence := applicability*applicabilityWeight + maxSim*similarityWeight
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	m.log.Info("policy decision",
		"decision", decision, "applicability", applicability, "confidence", confidence)

	return Assessment{
		MatchedPolicyIDs: ids,
		PolicyTexts:      texts,
		Similarities:     sims,
		Confidence:       confidence,
		Interpretation:   interpretation,
		Decision:         decision,
		Applicability:    applicability,
	}
}

// synthesisReply mirrors the JSON the synthesis prompt demands.
type synthesisReply struct {
	Decision      string            `json:"decision"`
	Applicability float64           `json:"applicability"`
	Reasoning     string            `json:"reasoning"`
	Answers       map[string]string `json:"answers"`
}

// answerOrder keeps the four fixed questions in a stable output order.
var answerOrder = []string{
	"defect_covered",
	"damage_type_allowed",
	"time_window_compliant",
	"category_eligible",
}

func (m *Matcher) synthesize(ctx context.Context, ids, texts []string, description string, ev evidence.Assessment, category string) (string, domain.PolicyDecision, float64) {
	var reply synthesisReply
	err := m.client.ChatJSON(ctx, synthesisSystemPrompt, synthesisPrompt(ids, texts, description, ev, category), &reply)
	if err != nil {
		m.log.Warn("policy synthesis failed, using keyword interpretation", "error", err)
		return keywordInterpretation(texts[0], ev)
	}

	decision := domain.PolicyDecision(strings.ToUpper(reply.Decision))
	if decision != domain.PolicyApprove && decision != domain.PolicyReject {
		decision = domain.PolicyReject
	}
	applicability := reply.Applicability
	if applicability < 0 {
		applicability = 0
	}
	if applicability > 1 {
		applicability = 1
	}
	reasoning := reply.Reasoning
	if reasoning == "" {
		reasoning = "Policy interpretation completed."
	}
	if len(reply.Answers) > 0 {
		var b strings.Builder
		b.WriteString(reasoning)
		b.WriteString("\n\nSpecific Policy Answers:\n")
		for _, key := range answerOrder {
			if answer, ok := reply.Answers[key]; ok {
				fmt.Fprintf(&b, "- %s: %s\n", titleCase(key), answer)
			}
		}
		reasoning = b.String()
	}
	return reasoning, decision, applicability
}

func titleCase(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var (
	rejectKeywords  = []string{"not covered", "not eligible", "excluded", "not returnable", "no refund", "cannot be returned"}
	approveKeywords = []string{"covered", "eligible", "returnable", "refund", "return accepted"}
)

// Applicability of the keyword path: a clear keyword majority scores
// 0.6, a tie stays at 0.3 with the conservative REJECT.
const (
	keywordClearApplicability = 0.6
	keywordTieApplicability   = 0.3
)

// keywordInterpretation reads the top clause for approval and rejection
// phrases. Note "covered" also matches inside "not covered"; the reject
// list wins those clauses on count.
func keywordInterpretation(policyText string, ev evidence.Assessment) (string, domain.PolicyDecision, float64) {
	lower := strings.ToLower(policyText)
	var rejects, approves int
	for _, kw := range rejectKeywords {
		if strings.Contains(lower, kw) {
			rejects++
		}
	}
	for _, kw := range approveKeywords {
		if strings.Contains(lower, kw) {
			approves++
		}
	}

	var decision domain.PolicyDecision
	var applicability float64
	switch {
	case rejects > approves:
		decision, applicability = domain.PolicyReject, keywordClearApplicability
	case approves > rejects:
		decision, applicability = domain.PolicyApprove, keywordClearApplicability
	default:
		decision, applicability = domain.PolicyReject, keywordTieApplicability
	}

	excerpt := policyText
	if len(excerpt) > 150 {
		excerpt = excerpt[:150]
	}
	interpretation := fmt.Sprintf(
		"Based on the %s %s reported, the policy states: '%s...' This appears to %s the return request.",
		ev.Severity, strings.ReplaceAll(ev.DefectLabel, "_", " "),
		excerpt, strings.ToLower(string(decision)))
	return interpretation, decision, applicability
}

const synthesisSystemPrompt = "You are a policy interpretation expert. " +
	"Analyze and synthesize multiple return policies to determine if they support or reject return requests. " +
	"Provide detailed reasoning with policy citations."

func synthesisPrompt(ids, texts []string, description string, ev evidence.Assessment, category string) string {
	n := len(texts)
	if n > synthesisClauses {
		n = synthesisClauses
	}
	var ctxB strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&ctxB, "Policy %d (ID: %s):\n%s\n\n", i+1, ids[i], texts[i])
	}

	cause := ev.ProbableCause
	if cause == "" {
		cause = domain.CauseUncertain
	}

	var b strings.Builder
	b.WriteString("You are an expert return policy analyst. Analyze multiple return policies to determine if they support or reject a return request.\n\n")
	fmt.Fprintf(&b, "Product Category: %s\n", category)
	fmt.Fprintf(&b, "User's Description: %s\n", description)
	fmt.Fprintf(&b, "Detected Defect: %s\n", strings.ReplaceAll(ev.DefectLabel, "_", " "))
	fmt.Fprintf(&b, "Severity: %s\n", ev.Severity)
	fmt.Fprintf(&b, "Probable Cause: %s\n\n", cause)
	b.WriteString("IMPORTANT: refer to the ACTUAL product category and the specific defect the user described. Do not confuse the product with other items.\n\n")
	b.WriteString("Relevant Policies:\n")
	b.WriteString(ctxB.String())
	b.WriteString("Answer these specific questions:\n")
	b.WriteString("1. Is this type of defect covered by the policies?\n")
	fmt.Fprintf(&b, "2. Is %s damage allowed or excluded?\n", cause)
	b.WriteString("3. What is the return time window, and is this request within it?\n")
	b.WriteString("4. Is this product category eligible for return/exchange?\n\n")
	b.WriteString("Synthesize the policies. If policies conflict, prioritize the most specific or restrictive policy.\n\n")
	b.WriteString(`Respond ONLY with a JSON object in this exact format:
{
    "decision": "APPROVE or REJECT",
    "applicability": 0.0 to 1.0,
    "reasoning": "Detailed explanation citing specific policies by ID.",
    "answers": {
        "defect_covered": "yes/no/uncertain - with brief explanation",
        "damage_type_allowed": "yes/no/uncertain - with brief explanation",
        "time_window_compliant": "yes/no/uncertain - with brief explanation",
        "category_eligible": "yes/no/uncertain - with brief explanation"
    }
}

Be precise: if policies say the damage is NOT covered, the decision is REJECT. If they say it IS covered, the decision is APPROVE.`)
	return b.String()
}
