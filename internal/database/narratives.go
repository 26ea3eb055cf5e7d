package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertNarrative stores a narrative. Structured sub-records are stored as
// JSON text columns; nil sub-records stay NULL.
func (db *DB) InsertNarrative(n *Narrative) error {
	dmmi, err := marshalOrNil(n.DMMIReport)
	if err != nil {
		return fmt.Errorf("encoding dmmi report: %w", err)
	}
	disarm, err := marshalOrNil(n.DisarmAnalysis)
	if err != nil {
		return fmt.Errorf("encoding disarm analysis: %w", err)
	}
	var trend, counters *string
	if len(n.TrendData) > 0 {
		trend, err = marshalOrNil(n.TrendData)
		if err != nil {
			return fmt.Errorf("encoding trend data: %w", err)
		}
	}
	if len(n.CounterOpportunities) > 0 {
		counters, err = marshalOrNil(n.CounterOpportunities)
		if err != nil {
			return fmt.Errorf("encoding counter opportunities: %w", err)
		}
	}

	_, err = db.conn.Exec(
		`INSERT INTO narratives (id, title, summary, risk_score, status, campaign,
			dmmi_report, disarm_analysis, trend_data, counter_opportunities, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Summary, n.RiskScore, n.Status, n.Campaign,
		dmmi, disarm, trend, counters, n.RunID,
	)
	return err
}

// GetNarratives returns all narratives, newest first, with posts attached.
func (db *DB) GetNarratives() ([]Narrative, error) {
	rows, err := db.conn.Query(
		`SELECT id, title, summary, risk_score, status, campaign,
			dmmi_report, disarm_analysis, trend_data, counter_opportunities, run_id, created_at
		FROM narratives ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	narratives, err := scanNarratives(rows)
	if err != nil {
		return nil, err
	}
	for i := range narratives {
		posts, err := db.GetPostsForNarrative(narratives[i].ID)
		if err != nil {
			return nil, err
		}
		narratives[i].Posts = posts
	}
	return narratives, nil
}

// GetNarrative returns a single narrative with posts, or nil if absent.
func (db *DB) GetNarrative(id string) (*Narrative, error) {
	row := db.conn.QueryRow(
		`SELECT id, title, summary, risk_score, status, campaign,
			dmmi_report, disarm_analysis, trend_data, counter_opportunities, run_id, created_at
		FROM narratives WHERE id = ?`, id,
	)
	n, err := scanNarrativeRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	posts, err := db.GetPostsForNarrative(n.ID)
	if err != nil {
		return nil, err
	}
	n.Posts = posts
	return n, nil
}

// SetCampaign assigns a campaign tag. The only narrative mutation this
// layer performs.
func (db *DB) SetCampaign(narrativeID, campaign string) error {
	res, err := db.conn.Exec(
		"UPDATE narratives SET campaign = ? WHERE id = ?", campaign, narrativeID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("narrative %s not found", narrativeID)
	}
	return nil
}

func scanNarratives(rows *sql.Rows) ([]Narrative, error) {
	var narratives []Narrative
	for rows.Next() {
		var n Narrative
		var dmmi, disarm, trend, counters *string
		if err := rows.Scan(&n.ID, &n.Title, &n.Summary, &n.RiskScore, &n.Status,
			&n.Campaign, &dmmi, &disarm, &trend, &counters, &n.RunID, &n.CreatedAt); err != nil {
			return nil, err
		}
		if err := decodeNarrativeJSON(&n, dmmi, disarm, trend, counters); err != nil {
			return nil, err
		}
		narratives = append(narratives, n)
	}
	return narratives, rows.Err()
}

func scanNarrativeRow(row *sql.Row) (*Narrative, error) {
	var n Narrative
	var dmmi, disarm, trend, counters *string
	if err := row.Scan(&n.ID, &n.Title, &n.Summary, &n.RiskScore, &n.Status,
		&n.Campaign, &dmmi, &disarm, &trend, &counters, &n.RunID, &n.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeNarrativeJSON(&n, dmmi, disarm, trend, counters); err != nil {
		return nil, err
	}
	return &n, nil
}

func decodeNarrativeJSON(n *Narrative, dmmi, disarm, trend, counters *string) error {
	if dmmi != nil {
		n.DMMIReport = &DMMIReport{}
		if err := json.Unmarshal([]byte(*dmmi), n.DMMIReport); err != nil {
			return fmt.Errorf("decoding dmmi report for %s: %w", n.ID, err)
		}
	}
	if disarm != nil {
		n.DisarmAnalysis = &DisarmAnalysis{}
		if err := json.Unmarshal([]byte(*disarm), n.DisarmAnalysis); err != nil {
			return fmt.Errorf("decoding disarm analysis for %s: %w", n.ID, err)
		}
	}
	if trend != nil {
		if err := json.Unmarshal([]byte(*trend), &n.TrendData); err != nil {
			return fmt.Errorf("decoding trend data for %s: %w", n.ID, err)
		}
	}
	if counters != nil {
		if err := json.Unmarshal([]byte(*counters), &n.CounterOpportunities); err != nil {
			return fmt.Errorf("decoding counter opportunities for %s: %w", n.ID, err)
		}
	}
	return nil
}

func marshalOrNil(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case *DMMIReport:
		if t == nil {
			return nil, nil
		}
	case *DisarmAnalysis:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
