package ledger

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Award records that an achievement was granted to a user.
type Award struct {
	ID            string    `json:"id" firestore:"id"`
	UserID        string    `json:"user_id" firestore:"user_id"`
	AchievementID string    `json:"achievement_id" firestore:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at" firestore:"earned_at"`
}

// LabCompletion records a finished lab or mission.
type LabCompletion struct {
	ID           string    `json:"id" firestore:"id"`
	UserID       string    `json:"user_id" firestore:"user_id"`
	LabID        string    `json:"lab_id" firestore:"lab_id"`
	LabType      string    `json:"lab_type" firestore:"lab_type"`
	PointsEarned int       `json:"points_earned" firestore:"points_earned"`
	CompletedAt  time.Time `json:"completed_at" firestore:"completed_at"`
}

// LabKey identifies a lab completion independent of when it happened.
type LabKey struct {
	LabID   string
	LabType string
}

// Key returns the uniqueness key of the record.
func (r LabCompletion) Key() LabKey {
	return LabKey{LabID: r.LabID, LabType: r.LabType}
}

func (k LabKey) String() string {
	return fmt.Sprintf("%s/%s", k.LabType, k.LabID)
}

// NormalizeID trims and NFC-normalizes an externally supplied identifier so
// visually identical ids collapse to one ledger key.
func NormalizeID(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
