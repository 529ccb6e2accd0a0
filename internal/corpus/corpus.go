// Package corpus stores policy clauses with their embedding vectors and
// answers nearest-clause queries by cosine similarity. The corpus is
// seeded once by the operator CLI and read by the policy matcher.
package corpus

import "math"

// Clause is one policy fragment with its embedding.
type Clause struct {
	ID        string
	Category  string
	Title     string
	Text      string
	Embedding []float64
}

// Match pairs a clause with its similarity to the query, in [0, 1].
type Match struct {
	Clause     Clause
	Similarity float64
}

// Store is the clause persistence and retrieval facade.
type Store interface {
	// Add inserts or replaces a clause by ID.
	Add(c Clause) error
	// Search returns up to topN clauses most similar to the query
	// vector, ordered by similarity descending, ties broken by clause
	// ID ascending. A category filter of "" matches all clauses.
	Search(query []float64, category string, topN int) ([]Match, error)
	// Count returns the number of stored clauses.
	Count() (int, error)
	Close() error
}

// Cosine returns the cosine similarity of two vectors clamped to
// [0, 1]. Mismatched lengths and zero vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
