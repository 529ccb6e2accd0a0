// Package consistency scores how well the vision depiction of the
// evidence agrees with the customer's own description. The score is a
// cosine similarity over embeddings of both texts. No depiction or a
// capability failure yields no score at all; downstream treats a
// missing score as no signal, never as zero.
package consistency

import (
	"context"
	"log/slog"

	"redress/internal/corpus"
	"redress/internal/logging"
)

// Embedder is the slice of the capability client the checker needs.
type Embedder interface {
	Available() bool
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Checker runs the consistency stage.
type Checker struct {
	embedder Embedder
	log      *slog.Logger
}

// New builds a checker. A nil embedder always skips the stage.
func New(embedder Embedder) *Checker {
	return &Checker{embedder: embedder, log: logging.New("consistency")}
}

// Score embeds both texts and returns their cosine similarity in
// [0, 1]. Returns nil when there is no depiction (no-media path), when
// the embedder is unavailable, or when the call fails.
func (c *Checker) Score(ctx context.Context, depiction, description string) *float64 {
	if depiction == "" || description == "" {
		return nil
	}
	if c.embedder == nil || !c.embedder.Available() {
		return nil
	}
	vecs, err := c.embedder.Embed(ctx, []string{depiction, description})
	if err != nil {
		c.log.Warn("embedding failed, skipping consistency score", "error", err)
		return nil
	}
	if len(vecs) != 2 {
		c.log.Warn("unexpected embedding count, skipping consistency score", "count", len(vecs))
		return nil
	}
	sim := corpus.Cosine(vecs[0], vecs[1])
	return &sim
}
