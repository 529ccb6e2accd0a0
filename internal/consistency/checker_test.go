package consistency

import (
	"context"
	"fmt"
	"math"
	"testing"
)

type fakeEmbedder struct {
	available bool
	vectors   [][]float64
	err       error
	calls     int
}

func (f *fakeEmbedder) Available() bool { return f.available }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func TestScore_SimilarTexts(t *testing.T) {
	fe := &fakeEmbedder{available: true, vectors: [][]float64{{1, 0, 1}, {1, 0, 1}}}
	c := New(fe)

	got := c.Score(context.Background(), "a cracked phone screen", "my screen is cracked")
	if got == nil {
		t.Fatal("Score = nil, want a value")
	}
	if math.Abs(*got-1) > 1e-9 {
		t.Errorf("Score = %v, want 1", *got)
	}
}

func TestScore_NoDepictionSkips(t *testing.T) {
	fe := &fakeEmbedder{available: true}
	c := New(fe)

	if got := c.Score(context.Background(), "", "my screen is cracked"); got != nil {
		t.Errorf("Score = %v, want nil for empty depiction", *got)
	}
	if fe.calls != 0 {
		t.Errorf("embedder called %d times for empty depiction", fe.calls)
	}
}

func TestScore_EmbedderFailureYieldsNil(t *testing.T) {
	fe := &fakeEmbedder{available: true, err: fmt.Errorf("service down")}
	c := New(fe)

	if got := c.Score(context.Background(), "depiction", "description"); got != nil {
		t.Errorf("Score = %v, want nil on embedder failure", *got)
	}
}

func TestScore_UnavailableEmbedderYieldsNil(t *testing.T) {
	fe := &fakeEmbedder{available: false}
	c := New(fe)

	if got := c.Score(context.Background(), "depiction", "description"); got != nil {
		t.Errorf("Score = %v, want nil when embedder unavailable", *got)
	}
	if fe.calls != 0 {
		t.Errorf("embedder called %d times while unavailable", fe.calls)
	}
}

func TestScore_ClampedToUnitRange(t *testing.T) {
	// Opposed vectors would score negative raw cosine; the score clamps.
	fe := &fakeEmbedder{available: true, vectors: [][]float64{{1, 0}, {-1, 0}}}
	c := New(fe)

	got := c.Score(context.Background(), "depiction", "description")
	if got == nil {
		t.Fatal("Score = nil")
	}
	if *got != 0 {
		t.Errorf("Score = %v, want clamp to 0", *got)
	}
}
