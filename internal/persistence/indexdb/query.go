package indexdb

import (
	"context"
)

// TaskSummary aggregates the finished episodes of one task.
type TaskSummary struct {
	Task     string `json:"task"`
	Episodes int    `json:"episodes"`
	Rewarded int    `json:"rewarded"`
	Timeouts int    `json:"timeouts"`
	Faulted  int    `json:"faulted"`
	Aborted  int    `json:"aborted"`
	Reward   int    `json:"reward_total"`
}

// TaskSummaries reads what the writer loop has committed so far.
func (s *SQLiteIndex) TaskSummaries(ctx context.Context) ([]TaskSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task, COUNT(*),
			SUM(CASE WHEN cause='reward' THEN 1 ELSE 0 END),
			SUM(CASE WHEN cause='timeout' THEN 1 ELSE 0 END),
			SUM(CASE WHEN cause='fault' THEN 1 ELSE 0 END),
			SUM(CASE WHEN cause='aborted' THEN 1 ELSE 0 END),
			COALESCE(SUM(reward),0)
		FROM episodes WHERE cause IS NOT NULL GROUP BY task ORDER BY task`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TaskSummary
	for rows.Next() {
		var t TaskSummary
		if err := rows.Scan(&t.Task, &t.Episodes, &t.Rewarded, &t.Timeouts, &t.Faulted, &t.Aborted, &t.Reward); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Problem is one recorded fault or contract violation.
type Problem struct {
	EpisodeID string `json:"episode_id"`
	Task      string `json:"task"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

func (s *SQLiteIndex) Problems(ctx context.Context, limit int) ([]Problem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT p.episode_id, COALESCE(e.task,''), p.kind, p.message
		FROM problems p LEFT JOIN episodes e ON e.episode_id = p.episode_id
		ORDER BY p.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Problem
	for rows.Next() {
		var p Problem
		if err := rows.Scan(&p.EpisodeID, &p.Task, &p.Kind, &p.Message); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
