package corpus

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

const clauseSchema = `
CREATE TABLE IF NOT EXISTS clauses (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	embedding TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clauses_category ON clauses(category);
`

// SqlStore keeps clauses in SQLite with JSON-encoded vectors. The corpus
// is small (tens to hundreds of clauses) so Search scores in memory.
type SqlStore struct {
	db *sql.DB
}

var _ Store = (*SqlStore)(nil)

// Open opens or creates the clause DB at path.
func Open(path string) (*SqlStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create corpus dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	if _, err := db.Exec(clauseSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply corpus schema: %w", err)
	}
	return &SqlStore{db: db}, nil
}

func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) Add(c Clause) error {
	emb, err := json.Marshal(c.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO clauses (id, category, title, text, embedding) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET category=excluded.category, title=excluded.title, text=excluded.text, embedding=excluded.embedding`,
		c.ID, c.Category, c.Title, c.Text, string(emb),
	)
	if err != nil {
		return fmt.Errorf("insert clause: %w", err)
	}
	return nil
}

func (s *SqlStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM clauses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count clauses: %w", err)
	}
	return n, nil
}

func (s *SqlStore) Search(query []float64, category string, topN int) ([]Match, error) {
	q := "SELECT id, category, title, text, embedding FROM clauses"
	var args []any
	if category != "" {
		q += " WHERE category = ?"
		args = append(args, category)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query clauses: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var c Clause
		var emb string
		if err := rows.Scan(&c.ID, &c.Category, &c.Title, &c.Text, &emb); err != nil {
			return nil, fmt.Errorf("scan clause: %w", err)
		}
		if err := json.Unmarshal([]byte(emb), &c.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding for %s: %w", c.ID, err)
		}
		matches = append(matches, Match{Clause: c, Similarity: Cosine(query, c.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankMatches(matches, topN), nil
}

// rankMatches orders by similarity descending with clause-ID ascending
// as the deterministic tie-break, then truncates to topN.
func rankMatches(matches []Match, topN int) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Clause.ID < matches[j].Clause.ID
	})
	if topN > 0 && len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}
