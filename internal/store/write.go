package store

import (
	"context"
	"fmt"

	"github.com/roach88/cyberquest/internal/ledger"
)

// WritePoints sets the points total for a user.
// There is no version check: concurrent writers race and the last one wins.
func (s *Store) WritePoints(ctx context.Context, userID string, points int) error {
	if points < 0 {
		return fmt.Errorf("write points: negative total %d", points)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_progress (user_id, points, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			points = excluded.points,
			updated_at = excluded.updated_at
	`, userID, points, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	return nil
}

// InsertAward records an achievement grant.
// Returns inserted=false with a nil error when the (user, achievement) pair
// already exists. A missing ID or EarnedAt is filled in by the store.
func (s *Store) InsertAward(ctx context.Context, award ledger.Award) (bool, error) {
	if award.ID == "" {
		award.ID = s.newID()
	}
	if award.EarnedAt.IsZero() {
		award.EarnedAt = s.now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO achievement_awards (id, user_id, achievement_id, earned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, award.ID, award.UserID, award.AchievementID, formatTime(award.EarnedAt))
	if err != nil {
		return false, fmt.Errorf("insert award: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert award: rows affected: %w", err)
	}
	return n > 0, nil
}

// InsertLabCompletion records a finished lab.
// Returns inserted=false with a nil error when the (user, lab, type) triple
// already exists. Subscribers for the user are notified after a new row
// commits.
func (s *Store) InsertLabCompletion(ctx context.Context, rec ledger.LabCompletion) (bool, error) {
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = s.now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO lab_completions (id, user_id, lab_id, lab_type, points_earned, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, rec.ID, rec.UserID, rec.LabID, rec.LabType, rec.PointsEarned, formatTime(rec.CompletedAt))
	if err != nil {
		return false, fmt.Errorf("insert lab completion: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert lab completion: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	s.broker.publish(rec.UserID)
	return true, nil
}

// DeleteLabCompletions removes every lab completion for a user and notifies
// subscribers. Used by operators to reset a user's lab history.
func (s *Store) DeleteLabCompletions(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM lab_completions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete lab completions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete lab completions: rows affected: %w", err)
	}
	if n > 0 {
		s.broker.publish(userID)
	}
	return n, nil
}
