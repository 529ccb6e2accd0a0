// Package communicate turns a decision into the customer-facing
// message: a short title and a 3-5 sentence body. The primary path is a
// generative capability; a deterministic template set with randomized
// phrasing covers unavailability and failure. Messages never expose
// internal confidence or similarity numbers.
package communicate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"redress/internal/domain"
	"redress/internal/logging"
)

// MaxTitleLen is the hard cap on message titles.
const MaxTitleLen = 50

// Message is the composed customer notification.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Input describes the decision to explain.
type Input struct {
	Decision    domain.Decision
	Reason      string
	ProductName string
	Category    string
	Description string
}

// Generator is the slice of the capability client the composer needs.
type Generator interface {
	Available() bool
	ChatJSON(ctx context.Context, system, user string, out any) error
}

// Composer writes customer messages.
type Composer struct {
	client Generator
	pick   func(n int) int
	log    *slog.Logger
}

// New builds a composer. A nil generator keeps it on templates.
func New(client Generator) *Composer {
	return &Composer{client: client, pick: rand.Intn, log: logging.New("communicate")}
}

// NewWithPicker builds a composer with a fixed variant picker, for
// deterministic output.
func NewWithPicker(client Generator, pick func(n int) int) *Composer {
	c := New(client)
	c.pick = pick
	return c
}

// Compose writes the message for an automated decision. Any capability
// failure falls back to the decision's template variants.
func (c *Composer) Compose(ctx context.Context, in Input) Message {
	if c.client == nil || !c.client.Available() {
		return c.template(in)
	}
	var msg Message
	if err := c.client.ChatJSON(ctx, composerSystemPrompt, composerPrompt(in), &msg); err != nil {
		c.log.Warn("message generation failed, using template", "error", err)
		return c.template(in)
	}
	if msg.Title == "" {
		msg.Title = "Return Request Update"
	}
	if msg.Body == "" {
		return c.template(in)
	}
	msg.Title = clipTitle(msg.Title)
	return msg
}

// ComposeAdmin writes the message for a human admin decision. This path
// is deterministic; the admin's own note carries the specifics.
func (c *Composer) ComposeAdmin(decision, note string) Message {
	if decision == "APPROVED" {
		if note == "" {
			note = "You can proceed with returning the item."
		}
		return Message{
			Title: "Return Approved",
			Body: fmt.Sprintf(
				"Great news! Your return request has been approved. %s Please follow the return instructions sent to your email.",
				note),
		}
	}
	if note == "" {
		note = "Unfortunately, your request does not meet our return policy criteria at this time."
	}
	return Message{
		Title: "Return Request Review",
		Body: fmt.Sprintf(
			"We've reviewed your return request. %s If you have questions, please contact our support team.",
			note),
	}
}

// PendingReview is the fixed message for requests parked for manual
// review before adjudication.
func PendingReview() Message {
	return Message{
		Title: "Under Review",
		Body: "Your return request has been received and is currently under manual review. " +
			"Our team will examine your case and get back to you soon. " +
			"You will receive an update once the review is complete.",
	}
}

func clipTitle(title string) string {
	if len(title) <= MaxTitleLen {
		return title
	}
	return title[:MaxTitleLen-3] + "..."
}

// templateVariants holds the phrasing variants per decision.
type templateVariants struct {
	titles []string
	bodies []string // fmt verbs: %s = reason
}

var approvedVariants = templateVariants{
	titles: []string{
		"Return Approved",
		"Your Return Has Been Approved",
		"Great News - Return Approved",
		"Return Request Approved",
	},
	bodies: []string{
		"Excellent news! We've approved your return request. %s You'll receive detailed return shipping instructions via email within 24 hours. Please package the item securely with all original accessories and use the prepaid return label we'll provide. Your refund will be processed within 5-7 business days after we receive and verify the returned item.",
		"We're happy to let you know that your return has been approved. %s Return instructions with a prepaid shipping label will be sent to your email shortly. Make sure to include all original packaging and accessories when returning the item. Once we receive it, we'll process your refund within one week.",
		"Good news! Your return request is approved. %s Check your email for return shipping instructions and a prepaid label within the next 24 hours. Package everything securely, including the original box and all accessories. Refunds typically process in 5-7 business days after we receive the return.",
	},
}

var rejectedVariants = templateVariants{
	titles: []string{
		"Return Request Review",
		"Return Request Decision",
		"About Your Return Request",
	},
	bodies: []string{
		"We've carefully reviewed your return request, but unfortunately we're unable to approve it at this time. %s We understand this may be disappointing. If you have additional information, believe there's been an error, or would like to discuss your case further, please reach out to our support team. We're here to help find a solution.",
		"After reviewing your return request, we cannot approve it based on our current return policy. %s We know this isn't the outcome you were hoping for. If you'd like to provide more details or have questions about this decision, our support team is available to assist you. Contact us and we'll do our best to help.",
		"Thank you for your return request. Unfortunately, we're unable to approve it at this time. %s We understand this may be frustrating. If you have more information to share or would like to appeal this decision, please contact our customer support team. We're committed to finding a resolution that works for you.",
	},
}

var escalatedVariants = templateVariants{
	titles: []string{
		"Under Review",
		"Manual Review Required",
		"Your Return Is Being Reviewed",
	},
	bodies: []string{
		"%s To ensure we make the best decision for your situation, your return request requires additional review by our team. We'll carefully examine all the details and get back to you with a decision. You'll receive an email notification once the review is complete, typically within 1-2 business days.",
		"%s Your return request needs a closer look from our review team to ensure we handle it correctly. We're taking the time to carefully evaluate your case. Expect an email update with our decision within 1-2 business days. We appreciate your patience.",
		"%s We want to make sure we get this right, so your return is being reviewed by our team. This allows us to give your case the attention it deserves. We'll send you an email as soon as the review is finished, usually within 1-2 business days. Thank you for your understanding.",
	},
}

func (c *Composer) template(in Input) Message {
	var v templateVariants
	switch in.Decision {
	case domain.DecisionApproved:
		v = approvedVariants
	case domain.DecisionRejected:
		v = rejectedVariants
	case domain.DecisionEscalate:
		v = escalatedVariants
	default:
		return Message{
			Title: "Return Request Update",
			Body:  fmt.Sprintf("%s If you have questions, please contact our support team.", in.Reason),
		}
	}
	return Message{
		Title: v.titles[c.pick(len(v.titles))],
		Body:  fmt.Sprintf(v.bodies[c.pick(len(v.bodies))], in.Reason),
	}
}

const composerSystemPrompt = "You are a professional customer service representative writing a personalized message to a customer " +
	"about their return request decision. CRITICAL: Use ONLY the product name and details provided in the user prompt. " +
	"Do NOT mention incorrect product names, parts, or features that don't match the actual product. " +
	"IMPORTANT: Vary your writing style and tone. Your message should be:\n" +
	"- Empathetic and understanding\n" +
	"- Clear and easy to understand\n" +
	"- Professional yet warm\n" +
	"- Actionable (tell them what to do next if approved, or how to get help if rejected)\n" +
	"- Specific about the decision reason, referencing only the correct product and defect\n" +
	"- NEVER mention technical percentages, similarity scores, confidence scores, or other technical metrics\n" +
	"- Written in plain, everyday language\n\n" +
	"Respond ONLY with a JSON object containing 'title' and 'body' fields. " +
	"The title must be concise (max 50 characters). " +
	"The body must be 3-5 sentences."

func decisionGuidance(d domain.Decision) string {
	switch d {
	case domain.DecisionApproved:
		return "Be positive and congratulatory. Provide clear next steps: " +
			"1) Return shipping instructions, 2) Timeline for refund, 3) What to include in the return package."
	case domain.DecisionRejected:
		return "Be empathetic and understanding. Explain the specific reason(s) clearly. " +
			"Offer support options: 1) How to contact support, 2) What additional information might help, " +
			"3) Appeal process if applicable."
	case domain.DecisionEscalate:
		return "Be reassuring and professional. Explain that the case needs human review for accuracy. " +
			"Provide: 1) Timeline for review (1-2 business days), 2) What will happen next, " +
			"3) How they will be notified."
	}
	return "Explain the decision clearly and provide next steps."
}

func composerPrompt(in Input) string {
	var b strings.Builder
	if in.ProductName != "" {
		fmt.Fprintf(&b, "**Product:** %s", in.ProductName)
		if in.Category != "" {
			fmt.Fprintf(&b, " (Category: %s)", in.Category)
		}
		b.WriteString("\n")
	}
	if in.Description != "" {
		fmt.Fprintf(&b, "**Customer's Description:** %s\n", in.Description)
	}
	fmt.Fprintf(&b, "**Return Decision:** %s\n", in.Decision)
	fmt.Fprintf(&b, "**Detailed Decision Reason:** %s\n\n", in.Reason)
	b.WriteString("Generate a customer-friendly message explaining this decision. ")
	b.WriteString("CRITICAL: Use the EXACT product name and details provided above. ")
	b.WriteString("Include the specific details from the decision reason, explained in plain language. ")
	b.WriteString("DO NOT mention any percentages, scores, or technical metrics. ")
	b.WriteString(decisionGuidance(in.Decision))
	return b.String()
}
