package database

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		dest  *int
		query string
	}{
		{&s.Narratives, "SELECT COUNT(*) FROM narratives"},
		{&s.ScoredNarratives, "SELECT COUNT(*) FROM narratives WHERE status = 'complete'"},
		{&s.CriticalNarratives, "SELECT COUNT(*) FROM narratives WHERE risk_score >= 8"},
		{&s.Posts, "SELECT COUNT(*) FROM posts"},
		{&s.TaskforceItems, "SELECT COUNT(*) FROM taskforce_items"},
		{&s.HistoryEntries, "SELECT COUNT(*) FROM analysis_history"},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
