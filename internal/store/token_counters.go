package store

// DayUsed returns the persisted token counter for the given day stamp
// (YYYY-MM-DD), or 0 if no row exists yet.
func (s *Store) DayUsed(dayStamp string) int64 {
	var used int64
	err := s.db.QueryRow(`SELECT used FROM token_day_counters WHERE day_stamp = ?`, dayStamp).Scan(&used)
	if err != nil {
		return 0
	}
	return used
}

// SetDayUsed persists the day counter for dayStamp. No command in
// cmd/govctl calls it, so no day count is carried across CLI invocations.
func (s *Store) SetDayUsed(dayStamp string, used int64) error {
	_, err := s.db.Exec(`INSERT INTO token_day_counters (day_stamp, used) VALUES (?, ?)
		ON CONFLICT(day_stamp) DO UPDATE SET used = excluded.used`, dayStamp, used)
	return err
}
