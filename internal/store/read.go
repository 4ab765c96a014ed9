package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cyberquest/internal/ledger"
)

// ReadPoints returns the stored points total for a user, or 0 if the user
// has no row yet.
func (s *Store) ReadPoints(ctx context.Context, userID string) (int, error) {
	var points int
	err := s.db.QueryRowContext(ctx, `
		SELECT points FROM user_progress WHERE user_id = ?
	`, userID).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read points: %w", err)
	}
	return points, nil
}

// GrantedAchievements returns the achievement ids already awarded to a user,
// ordered by id.
//
// Returns an empty slice (not nil) if nothing has been awarded.
func (s *Store) GrantedAchievements(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT achievement_id FROM achievement_awards
		WHERE user_id = ?
		ORDER BY achievement_id COLLATE BINARY ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query awards: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate awards: %w", err)
	}
	return ids, nil
}

// Awards returns the full award rows for a user ordered by earned_at, id.
func (s *Store) Awards(ctx context.Context, userID string) ([]ledger.Award, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, achievement_id, earned_at FROM achievement_awards
		WHERE user_id = ?
		ORDER BY earned_at ASC, id COLLATE BINARY ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query awards: %w", err)
	}
	defer rows.Close()

	awards := []ledger.Award{}
	for rows.Next() {
		var a ledger.Award
		var earnedAt string
		if err := rows.Scan(&a.ID, &a.UserID, &a.AchievementID, &earnedAt); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		if a.EarnedAt, err = parseTime(earnedAt); err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate awards: %w", err)
	}
	return awards, nil
}

// LabCompletions returns every lab completion for a user ordered by
// completed_at, id.
//
// Returns an empty slice (not nil) if the user has none.
func (s *Store) LabCompletions(ctx context.Context, userID string) ([]ledger.LabCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, lab_id, lab_type, points_earned, completed_at
		FROM lab_completions
		WHERE user_id = ?
		ORDER BY completed_at ASC, id COLLATE BINARY ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query lab completions: %w", err)
	}
	defer rows.Close()

	records := []ledger.LabCompletion{}
	for rows.Next() {
		var r ledger.LabCompletion
		var completedAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.LabID, &r.LabType, &r.PointsEarned, &completedAt); err != nil {
			return nil, fmt.Errorf("scan lab completion: %w", err)
		}
		if r.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lab completions: %w", err)
	}
	return records, nil
}
