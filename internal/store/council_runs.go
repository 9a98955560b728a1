package store

// CouncilRunRow is the persisted history row for one council run, used by
// `govctl audit` to list past runs without re-parsing every Markdown
// artifact.
type CouncilRunRow struct {
	ID                string
	StoryID           string
	BaseRef, HeadRef  string
	Engine            string
	AggregateVerdict  string
	CitationRate      float64
	HallucinationRate float64
	StartedAt         int64
	FinishedAt        int64
	AuditPath         string
}

// InsertCouncilRun records one completed run.
func (s *Store) InsertCouncilRun(r CouncilRunRow) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO council_runs
		(id, story_id, base_ref, head_ref, engine, aggregate_verdict, citation_rate, hallucination_rate, started_at, finished_at, audit_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StoryID, r.BaseRef, r.HeadRef, r.Engine, r.AggregateVerdict, r.CitationRate, r.HallucinationRate, r.StartedAt, r.FinishedAt, r.AuditPath)
	return err
}

// ListCouncilRuns returns the most recent runs, newest first.
func (s *Store) ListCouncilRuns(limit int) ([]CouncilRunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, story_id, base_ref, head_ref, engine, aggregate_verdict, citation_rate, hallucination_rate, started_at, finished_at, audit_path
		FROM council_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CouncilRunRow
	for rows.Next() {
		var r CouncilRunRow
		if err := rows.Scan(&r.ID, &r.StoryID, &r.BaseRef, &r.HeadRef, &r.Engine, &r.AggregateVerdict, &r.CitationRate, &r.HallucinationRate, &r.StartedAt, &r.FinishedAt, &r.AuditPath); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
