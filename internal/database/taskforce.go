package database

// InsertTaskforceItem stores an assignment. Items are never mutated
// afterwards; re-assigning the same narrative is a no-op.
func (db *DB) InsertTaskforceItem(item *TaskforceItem) (bool, error) {
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO taskforce_items (id, narrative_id, narrative_title, assignment_brief)
		VALUES (?, ?, ?, ?)`,
		item.ID, item.NarrativeID, item.NarrativeTitle, item.AssignmentBrief,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetTaskforceItems returns the assignment queue, newest first, with each
// item's narrative posts attached.
func (db *DB) GetTaskforceItems() ([]TaskforceItem, error) {
	rows, err := db.conn.Query(
		`SELECT id, narrative_id, narrative_title, assignment_brief, created_at
		FROM taskforce_items ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TaskforceItem
	for rows.Next() {
		var item TaskforceItem
		if err := rows.Scan(&item.ID, &item.NarrativeID, &item.NarrativeTitle,
			&item.AssignmentBrief, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		posts, err := db.GetPostsForNarrative(items[i].NarrativeID)
		if err != nil {
			return nil, err
		}
		items[i].Posts = posts
	}
	return items, nil
}

// GetTaskforceItem returns one assignment, or nil if absent.
func (db *DB) GetTaskforceItem(id string) (*TaskforceItem, error) {
	items, err := db.GetTaskforceItems()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, nil
}

// HasTaskforceItemForNarrative reports whether a narrative is already assigned.
func (db *DB) HasTaskforceItemForNarrative(narrativeID string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM taskforce_items WHERE narrative_id = ?", narrativeID,
	).Scan(&count)
	return count > 0, err
}
