package communicate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"redress/internal/domain"
)

type fakeGenerator struct {
	available bool
	reply     string
	err       error
	calls     int
}

func (f *fakeGenerator) Available() bool { return f.available }

func (f *fakeGenerator) ChatJSON(ctx context.Context, system, user string, out any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.reply), out)
}

func first(n int) int { return 0 }

func TestCompose_GeneratedMessage(t *testing.T) {
	fg := &fakeGenerator{available: true, reply: `{
		"title": "Your Headphones Return Is Approved",
		"body": "Good news about your wireless headphones. We approved the return. A label is on its way. Refund follows receipt."
	}`}
	c := NewWithPicker(fg, first)

	got := c.Compose(context.Background(), Input{
		Decision:    domain.DecisionApproved,
		Reason:      "within window",
		ProductName: "Wireless Headphones",
	})
	if got.Title != "Your Headphones Return Is Approved" {
		t.Errorf("Title = %q", got.Title)
	}
	if fg.calls != 1 {
		t.Errorf("generator calls = %d, want 1", fg.calls)
	}
}

func TestCompose_TitleClipped(t *testing.T) {
	long := strings.Repeat("Approved ", 10)
	fg := &fakeGenerator{available: true, reply: fmt.Sprintf(`{"title": %q, "body": "Body text here."}`, long)}
	c := NewWithPicker(fg, first)

	got := c.Compose(context.Background(), Input{Decision: domain.DecisionApproved, Reason: "r"})
	if len(got.Title) > MaxTitleLen {
		t.Errorf("Title length = %d, want <= %d", len(got.Title), MaxTitleLen)
	}
	if !strings.HasSuffix(got.Title, "...") {
		t.Errorf("clipped title = %q, want ... suffix", got.Title)
	}
}

func TestCompose_FallsBackOnFailure(t *testing.T) {
	fg := &fakeGenerator{available: true, err: fmt.Errorf("model down")}
	c := NewWithPicker(fg, first)

	got := c.Compose(context.Background(), Input{
		Decision: domain.DecisionRejected,
		Reason:   "Return rejected because the window expired.",
	})
	if got.Title != rejectedVariants.titles[0] {
		t.Errorf("Title = %q, want first rejected variant", got.Title)
	}
	if !strings.Contains(got.Body, "the window expired") {
		t.Errorf("Body missing reason: %q", got.Body)
	}
}

func TestCompose_UnavailableUsesTemplates(t *testing.T) {
	fg := &fakeGenerator{available: false}
	c := NewWithPicker(fg, first)

	tests := []struct {
		decision domain.Decision
		title    string
	}{
		{domain.DecisionApproved, approvedVariants.titles[0]},
		{domain.DecisionRejected, rejectedVariants.titles[0]},
		{domain.DecisionEscalate, escalatedVariants.titles[0]},
	}
	for _, tt := range tests {
		got := c.Compose(context.Background(), Input{Decision: tt.decision, Reason: "Reason text."})
		if got.Title != tt.title {
			t.Errorf("%s: Title = %q, want %q", tt.decision, got.Title, tt.title)
		}
		if !strings.Contains(got.Body, "Reason text.") {
			t.Errorf("%s: Body missing reason", tt.decision)
		}
	}
	if fg.calls != 0 {
		t.Errorf("generator called %d times while unavailable", fg.calls)
	}
}

func TestCompose_TemplateVariantsSelectable(t *testing.T) {
	fg := &fakeGenerator{available: false}
	last := func(n int) int { return n - 1 }
	c := NewWithPicker(fg, last)

	got := c.Compose(context.Background(), Input{Decision: domain.DecisionApproved, Reason: "r"})
	if got.Title != approvedVariants.titles[len(approvedVariants.titles)-1] {
		t.Errorf("Title = %q, want last approved variant", got.Title)
	}
}

func TestCompose_TemplateTitlesWithinLimit(t *testing.T) {
	for _, v := range []templateVariants{approvedVariants, rejectedVariants, escalatedVariants} {
		for _, title := range v.titles {
			if len(title) > MaxTitleLen {
				t.Errorf("template title %q exceeds %d chars", title, MaxTitleLen)
			}
		}
	}
}

func TestComposeAdmin(t *testing.T) {
	c := New(nil)

	got := c.ComposeAdmin("APPROVED", "Defect verified by our team.")
	if got.Title != "Return Approved" {
		t.Errorf("Title = %q", got.Title)
	}
	if !strings.Contains(got.Body, "Defect verified by our team.") {
		t.Errorf("Body missing admin note: %q", got.Body)
	}

	got = c.ComposeAdmin("REJECTED", "")
	if got.Title != "Return Request Review" {
		t.Errorf("Title = %q", got.Title)
	}
	if !strings.Contains(got.Body, "does not meet our return policy") {
		t.Errorf("Body missing default note: %q", got.Body)
	}
}

func TestPendingReview(t *testing.T) {
	got := PendingReview()
	if got.Title != "Under Review" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Body == "" || len(got.Title) > MaxTitleLen {
		t.Errorf("unexpected message: %+v", got)
	}
}
