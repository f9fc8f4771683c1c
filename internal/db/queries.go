package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

const timeLayout = time.RFC3339

// SaveRun stores a report run and the per-user daily usage behind it.
func (db *DB) SaveRun(ctx context.Context, run models.RunRecord, summaries []models.UserSummary) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO report_runs (
			id, group_name, team_id, range_start, range_end, generated_at,
			members, active_users, lines, chats, completions, output_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Group,
		run.TeamID,
		run.RangeStart.String(),
		run.RangeEnd.String(),
		run.GeneratedAt.UTC().Format(timeLayout),
		run.Members,
		run.ActiveUsers,
		run.Lines,
		run.Chats,
		run.Completions,
		nullString(run.OutputPath),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO user_daily_usage (run_id, email, day, lines, chats, completions)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare daily usage insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range summaries {
		for _, p := range s.Daily {
			if p.Lines == 0 && p.Chats == 0 && p.Completions == 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, run.ID, s.Email, p.Date.String(), p.Lines, p.Chats, p.Completions); err != nil {
				return fmt.Errorf("failed to insert daily usage for %s: %w", s.Email, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report run: %w", err)
	}
	return nil
}

// Trend returns the most recent runs of group, oldest first.
func (db *DB) Trend(ctx context.Context, group string, limit int) (*models.HistoryTrend, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, group_name, team_id, range_start, range_end, generated_at,
			   members, active_users, lines, chats, completions, output_path
		FROM report_runs
		WHERE group_name = ?
		ORDER BY generated_at DESC, id DESC
		LIMIT ?
	`, group, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query report runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	trend := &models.HistoryTrend{Group: group}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		trend.Runs = append(trend.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report runs: %w", err)
	}

	for i, j := 0, len(trend.Runs)-1; i < j; i, j = i+1, j-1 {
		trend.Runs[i], trend.Runs[j] = trend.Runs[j], trend.Runs[i]
	}
	return trend, nil
}

// RunUsage returns the stored daily usage of a run, ordered by email and day.
func (db *DB) RunUsage(ctx context.Context, runID string) ([]models.UsageRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT email, day, lines, chats, completions
		FROM user_daily_usage
		WHERE run_id = ?
		ORDER BY email, day
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		var day string
		if err := rows.Scan(&r.Email, &day, &r.LinesOfAgentCode, &r.ChatInteractions, &r.TabCompletions); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		if r.Date, err = models.ParseDay(day); err != nil {
			return nil, fmt.Errorf("invalid stored day %q: %w", day, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteRunsBefore removes runs generated before cutoff and returns how many
// were deleted.
func (db *DB) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ts := cutoff.UTC().Format(timeLayout)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// foreign_keys is a per-connection pragma, so cascade by hand.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM user_daily_usage
		WHERE run_id IN (SELECT id FROM report_runs WHERE generated_at < ?)
	`, ts); err != nil {
		return 0, fmt.Errorf("failed to delete old daily usage: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM report_runs WHERE generated_at < ?", ts)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deletion: %w", err)
	}
	return n, nil
}

func scanRun(rows *sql.Rows) (models.RunRecord, error) {
	var run models.RunRecord
	var start, end, generated string
	var output sql.NullString
	err := rows.Scan(
		&run.ID,
		&run.Group,
		&run.TeamID,
		&start,
		&end,
		&generated,
		&run.Members,
		&run.ActiveUsers,
		&run.Lines,
		&run.Chats,
		&run.Completions,
		&output,
	)
	if err != nil {
		return run, fmt.Errorf("failed to scan report run: %w", err)
	}

	if run.RangeStart, err = models.ParseDay(start); err != nil {
		return run, fmt.Errorf("invalid range start %q: %w", start, err)
	}
	if run.RangeEnd, err = models.ParseDay(end); err != nil {
		return run, fmt.Errorf("invalid range end %q: %w", end, err)
	}
	if run.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
		return run, fmt.Errorf("invalid generation time %q: %w", generated, err)
	}
	run.OutputPath = output.String
	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
