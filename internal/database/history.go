package database

import (
	"encoding/json"
	"fmt"
)

// InsertHistory appends an analysis run to the history log and trims the
// log to the configured cap (oldest entries dropped). Returns the new
// entry's ID, which doubles as the run ID for collected posts.
func (db *DB) InsertHistory(inputs AnalysisInput, maxEntries int) (int64, error) {
	sources, err := json.Marshal(inputs.Sources)
	if err != nil {
		return 0, fmt.Errorf("encoding sources: %w", err)
	}

	res, err := db.conn.Exec(
		`INSERT INTO analysis_history (country, start_date, end_date, sources)
		VALUES (?, ?, ?, ?)`,
		inputs.Country, inputs.TimeFrame.Start, inputs.TimeFrame.End, string(sources),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if maxEntries > 0 {
		_, err = db.conn.Exec(
			`DELETE FROM analysis_history WHERE id NOT IN
			(SELECT id FROM analysis_history ORDER BY id DESC LIMIT ?)`, maxEntries,
		)
		if err != nil {
			return id, err
		}
	}
	return id, nil
}

// GetHistory returns the run log, newest first.
func (db *DB) GetHistory() ([]AnalysisHistoryItem, error) {
	rows, err := db.conn.Query(
		`SELECT id, timestamp, country, start_date, end_date, sources
		FROM analysis_history ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AnalysisHistoryItem
	for rows.Next() {
		var item AnalysisHistoryItem
		var sources string
		if err := rows.Scan(&item.ID, &item.Timestamp, &item.Inputs.Country,
			&item.Inputs.TimeFrame.Start, &item.Inputs.TimeFrame.End, &sources); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sources), &item.Inputs.Sources); err != nil {
			return nil, fmt.Errorf("decoding sources for history %d: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ClearHistory removes all history entries.
func (db *DB) ClearHistory() error {
	_, err := db.conn.Exec("DELETE FROM analysis_history")
	return err
}
