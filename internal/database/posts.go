package database

import "database/sql"

// InsertPost stores a post. Returns false if the ID already exists
// (posts are immutable once fetched, duplicates are skipped).
func (db *DB) InsertPost(p *Post) (bool, error) {
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO posts (id, narrative_id, run_id, source, author, content, timestamp, link, image_url, video_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.NarrativeID, p.RunID, p.Source, p.Author, p.Content, p.Timestamp, p.Link, p.ImageURL, p.VideoURL,
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

// GetPostsForNarrative returns the posts attached to a narrative.
func (db *DB) GetPostsForNarrative(narrativeID string) ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT id, narrative_id, run_id, source, author, content, timestamp, link, image_url, video_url
		FROM posts WHERE narrative_id = ? ORDER BY timestamp DESC, id`, narrativeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// GetPostsForRun returns posts collected in a given analysis run that are
// not yet attached to a narrative.
func (db *DB) GetPostsForRun(runID int64) ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT id, narrative_id, run_id, source, author, content, timestamp, link, image_url, video_url
		FROM posts WHERE run_id = ? AND narrative_id IS NULL ORDER BY timestamp DESC, id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// AttachPostToNarrative links a collected post to a scored narrative.
// Appending a post to a narrative does not modify the post's content.
func (db *DB) AttachPostToNarrative(postID, narrativeID string) error {
	_, err := db.conn.Exec(
		"UPDATE posts SET narrative_id = ? WHERE id = ?", narrativeID, postID,
	)
	return err
}

// GetPostsNeedingContent returns news posts with short content that have
// not had a full-text fetch attempt.
func (db *DB) GetPostsNeedingContent(runID int64, minLength int) ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT id, narrative_id, run_id, source, author, content, timestamp, link, image_url, video_url
		FROM posts WHERE run_id = ? AND source = 'News' AND content_fetched = 0 AND length(content) < ?`,
		runID, minLength,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// UpdatePostContent replaces a post's content after full-text extraction.
func (db *DB) UpdatePostContent(postID, content string) error {
	_, err := db.conn.Exec(
		"UPDATE posts SET content = ?, content_fetched = 1 WHERE id = ?", content, postID,
	)
	return err
}

// MarkPostFetchAttempted records that a full-text fetch was tried.
func (db *DB) MarkPostFetchAttempted(postID string) error {
	_, err := db.conn.Exec(
		"UPDATE posts SET content_fetched = 1 WHERE id = ?", postID,
	)
	return err
}

// InsertSearchSource stores a provenance record for a run.
func (db *DB) InsertSearchSource(runID int64, s SearchSource) error {
	_, err := db.conn.Exec(
		"INSERT INTO search_sources (run_id, uri, title) VALUES (?, ?, ?)",
		runID, s.URI, s.Title,
	)
	return err
}

// GetSearchSourcesForRun returns the provenance records of a run in
// insertion order.
func (db *DB) GetSearchSourcesForRun(runID int64) ([]SearchSource, error) {
	rows, err := db.conn.Query(
		"SELECT uri, title FROM search_sources WHERE run_id = ? ORDER BY id", runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []SearchSource
	for rows.Next() {
		var s SearchSource
		if err := rows.Scan(&s.URI, &s.Title); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.NarrativeID, &p.RunID, &p.Source, &p.Author,
			&p.Content, &p.Timestamp, &p.Link, &p.ImageURL, &p.VideoURL); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
