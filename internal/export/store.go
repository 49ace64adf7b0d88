// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export persists finished runs for downstream consumers: a
// SQLite snapshot of papers, edges, and the final selection, plus a YAML
// corpus manifest. The engine itself never reads these back during a
// run; they are the read-only handoff surface.
package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const (
	indexDir = "index"
	finalDir = "final"
	dbFile   = "corpus.db"
)

// Store manages the corpus snapshot SQLite database.
type Store struct {
	db        *sql.DB
	corpusDir string
}

// NewStore opens or creates the snapshot database at
// corpusDir/index/corpus.db, creating the schema if needed.
func NewStore(cfg types.ExportConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.CorpusDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, corpusDir: cfg.CorpusDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT,
			seeds TEXT,
			termination TEXT,
			termination_reason TEXT,
			recent_fraction REAL,
			started_at TEXT,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			run_id TEXT NOT NULL REFERENCES runs(id),
			id TEXT NOT NULL,
			title TEXT,
			year INTEGER,
			citation_count INTEGER,
			discovery_stage INTEGER,
			discovery_method TEXT,
			relevance_score REAL,
			scored INTEGER,
			in_degree INTEGER,
			out_degree INTEGER,
			accepted INTEGER,
			final_rank INTEGER,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			run_id TEXT NOT NULL REFERENCES runs(id),
			citing_id TEXT NOT NULL,
			cited_id TEXT NOT NULL,
			edge_type TEXT NOT NULL,
			PRIMARY KEY (run_id, citing_id, cited_id)
		)`,
		`CREATE TABLE IF NOT EXISTS fallbacks (
			run_id TEXT NOT NULL REFERENCES runs(id),
			id TEXT NOT NULL,
			relevance_score REAL,
			reason TEXT,
			stage INTEGER,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_final ON papers(run_id, final_rank)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_citing ON edges(run_id, citing_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun persists a completed run in one transaction.
func (s *Store) SaveRun(res *types.RunResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seeds, err := json.Marshal(res.Seeds)
	if err != nil {
		return fmt.Errorf("encoding seeds: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO runs (id, topic, seeds, termination, termination_reason, recent_fraction, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Topic, string(seeds), string(res.Termination), res.TerminationReason,
		res.RecentFraction, res.StartedAt.UTC().Format("2006-01-02T15:04:05Z"), res.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	accepted := make(map[string]bool, len(res.AcceptedIDs))
	for _, id := range res.AcceptedIDs {
		accepted[id] = true
	}
	finalRank := make(map[string]int, len(res.FinalCorpusIDs))
	for i, id := range res.FinalCorpusIDs {
		finalRank[id] = i + 1
	}

	for _, p := range res.Papers {
		var rank any
		if r, ok := finalRank[p.ID]; ok {
			rank = r
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO papers
			 (run_id, id, title, year, citation_count, discovery_stage, discovery_method,
			  relevance_score, scored, in_degree, out_degree, accepted, final_rank)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, p.ID, p.Title, p.Year, p.CitationCount, p.DiscoveryStage, string(p.DiscoveryMethod),
			p.RelevanceScore, p.Scored, p.InDegree, p.OutDegree, accepted[p.ID], rank,
		); err != nil {
			return fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
	}

	for _, e := range res.Edges {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO edges (run_id, citing_id, cited_id, edge_type) VALUES (?, ?, ?, ?)`,
			res.RunID, e.CitingID, e.CitedID, string(e.Type),
		); err != nil {
			return fmt.Errorf("inserting edge %s->%s: %w", e.CitingID, e.CitedID, err)
		}
	}

	for _, fb := range res.Fallbacks {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO fallbacks (run_id, id, relevance_score, reason, stage) VALUES (?, ?, ?, ?, ?)`,
			res.RunID, fb.ID, fb.RelevanceScore, fb.Reason, fb.Stage,
		); err != nil {
			return fmt.Errorf("inserting fallback %s: %w", fb.ID, err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	RunID             string
	Topic             string
	Termination       string
	TerminationReason string
	FinalSize         int
	FinishedAt        string
}

// Runs lists saved runs, most recent first.
func (s *Store) Runs() ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.topic, r.termination, r.termination_reason, r.finished_at,
		        (SELECT count(*) FROM papers p WHERE p.run_id = r.id AND p.final_rank IS NOT NULL)
		 FROM runs r ORDER BY r.finished_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.RunID, &rs.Topic, &rs.Termination, &rs.TerminationReason, &rs.FinishedAt, &rs.FinalSize); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// FinalCorpus returns the final selection of a run in rank order.
func (s *Store) FinalCorpus(runID string) ([]types.PaperNode, error) {
	rows, err := s.db.Query(
		`SELECT id, title, year, citation_count, discovery_stage, discovery_method,
		        relevance_score, scored, in_degree, out_degree
		 FROM papers WHERE run_id = ? AND final_rank IS NOT NULL ORDER BY final_rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying final corpus: %w", err)
	}
	defer rows.Close()

	var out []types.PaperNode
	for rows.Next() {
		var p types.PaperNode
		var method string
		if err := rows.Scan(&p.ID, &p.Title, &p.Year, &p.CitationCount, &p.DiscoveryStage, &method,
			&p.RelevanceScore, &p.Scored, &p.InDegree, &p.OutDegree); err != nil {
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}
		p.DiscoveryMethod = types.DiscoveryMethod(method)
		out = append(out, p)
	}
	return out, rows.Err()
}

// EdgesFor returns every edge touching the given paper in a run.
func (s *Store) EdgesFor(runID, paperID string) ([]types.CitationEdge, error) {
	rows, err := s.db.Query(
		`SELECT citing_id, cited_id, edge_type FROM edges
		 WHERE run_id = ? AND (citing_id = ? OR cited_id = ?)
		 ORDER BY citing_id, cited_id`, runID, paperID, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var out []types.CitationEdge
	for rows.Next() {
		var e types.CitationEdge
		var t string
		if err := rows.Scan(&e.CitingID, &e.CitedID, &t); err != nil {
			return nil, fmt.Errorf("scanning edge row: %w", err)
		}
		e.Type = types.EdgeType(t)
		out = append(out, e)
	}
	return out, rows.Err()
}
