package corpus

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Embedder turns texts into vectors. Satisfied by capability.Client.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// SeedClause is one clause definition before embedding.
type SeedClause struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Title    string `yaml:"title"`
	Text     string `yaml:"text"`
}

// seedWorkers bounds concurrent embedding calls during seeding.
const seedWorkers = 4

// Seed embeds every clause and stores it. Embedding calls run
// concurrently; the first failure cancels the rest.
func Seed(ctx context.Context, store Store, embedder Embedder, clauses []SeedClause) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedWorkers)
	for _, sc := range clauses {
		sc := sc
		g.Go(func() error {
			if sc.ID == "" || sc.Text == "" {
				return fmt.Errorf("clause %q: id and text are required", sc.ID)
			}
			vecs, err := embedder.Embed(ctx, []string{sc.Text})
			if err != nil {
				return fmt.Errorf("embed clause %s: %w", sc.ID, err)
			}
			if len(vecs) != 1 {
				return fmt.Errorf("embed clause %s: got %d vectors", sc.ID, len(vecs))
			}
			return store.Add(Clause{
				ID:        sc.ID,
				Category:  sc.Category,
				Title:     sc.Title,
				Text:      sc.Text,
				Embedding: vecs[0],
			})
		})
	}
	return g.Wait()
}
