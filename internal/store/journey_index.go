package store

// JourneyIndexRow is one (pattern, journey_id) entry.
type JourneyIndexRow struct {
	Pattern   string
	JourneyID string
}

// ReplaceJourneyPatterns atomically replaces all index rows for one
// journey id, used on rebuild.
func (s *Store) ReplaceJourneyPatterns(journeyID string, patterns []string, mtime int64) error {
	return s.WithWriteLock(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM journey_index WHERE journey_id = ?`, journeyID); err != nil {
			return err
		}
		for _, p := range patterns {
			if _, err := tx.Exec(`INSERT OR REPLACE INTO journey_index (pattern, journey_id, updated_at) VALUES (?, ?, ?)`, p, journeyID, mtime); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO journey_sources (journey_id, mtime) VALUES (?, ?)`, journeyID, mtime); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// AllPatterns returns every (pattern, journey_id) pair currently indexed.
func (s *Store) AllPatterns() ([]JourneyIndexRow, error) {
	rows, err := s.db.Query(`SELECT pattern, journey_id FROM journey_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JourneyIndexRow
	for rows.Next() {
		var r JourneyIndexRow
		if err := rows.Scan(&r.Pattern, &r.JourneyID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SourceMTime returns the stored mtime for a journey id, or (0, false) if
// it has never been indexed.
func (s *Store) SourceMTime(journeyID string) (int64, bool) {
	var mtime int64
	err := s.db.QueryRow(`SELECT mtime FROM journey_sources WHERE journey_id = ?`, journeyID).Scan(&mtime)
	if err != nil {
		return 0, false
	}
	return mtime, true
}
