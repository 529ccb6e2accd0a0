package corpus

import "sync"

// MemStore is an in-memory clause store for tests.
type MemStore struct {
	mu      sync.RWMutex
	clauses map[string]Clause
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory corpus.
func NewMemStore() *MemStore {
	return &MemStore{clauses: make(map[string]Clause)}
}

func (m *MemStore) Add(c Clause) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clauses[c.ID] = c
	return nil
}

func (m *MemStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clauses), nil
}

func (m *MemStore) Search(query []float64, category string, topN int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []Match
	for _, c := range m.clauses {
		if category != "" && c.Category != category {
			continue
		}
		matches = append(matches, Match{Clause: c, Similarity: Cosine(query, c.Embedding)})
	}
	return rankMatches(matches, topN), nil
}

func (m *MemStore) Close() error { return nil }
