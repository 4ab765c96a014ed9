package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/cyberquest/internal/ledger"
)

// CompleteLab records a lab completion in the remote ledger.
//
// Returns inserted=true only when this call created the record. A record
// already in the local cache, or one that loses the insert race, returns
// (false, nil): the lab is done and its points were already paid. Any other
// store failure is returned so the caller can tell the user.
//
// CompleteLab does not award points. Use ClaimLab for the combined step.
func (e *Engine) CompleteLab(ctx context.Context, labID, labType string, points int) (bool, error) {
	labID = ledger.NormalizeID(labID)
	labType = ledger.NormalizeID(labType)
	if labID == "" || labType == "" || points < 0 {
		return false, &RuntimeError{
			Code:    ErrCodeInvalidLab,
			Message: "lab id and type are required and points must not be negative",
		}
	}
	key := ledger.LabKey{LabID: labID, LabType: labType}

	e.mu.Lock()
	s := e.session
	if !s.signedIn() {
		e.mu.Unlock()
		return false, errNotSignedIn()
	}
	if _, done := e.labs[key]; done {
		e.mu.Unlock()
		slog.Debug("lab already complete", "user_id", s.userID, "lab", key)
		return false, nil
	}
	e.mu.Unlock()

	rec := ledger.LabCompletion{
		UserID:       s.userID,
		LabID:        labID,
		LabType:      labType,
		PointsEarned: points,
		CompletedAt:  e.now(),
	}
	inserted, err := e.remote.InsertLabCompletion(ctx, rec)
	if err != nil {
		slog.Error("lab completion failed", "user_id", s.userID, "lab", key, "error", err)
		return false, &RuntimeError{
			Code:    ErrCodeLabWriteFailed,
			Message: "could not record lab completion for " + key.String(),
			UserID:  s.userID,
			Err:     err,
		}
	}

	e.mu.Lock()
	if e.session.gen == s.gen {
		if _, cached := e.labs[key]; !cached {
			e.labs[key] = rec
		}
		e.clock.Next()
	}
	e.mu.Unlock()

	slog.Info("lab completed", "user_id", s.userID, "lab", key, "inserted", inserted)
	return inserted, nil
}

// ClaimLab completes a lab and, when the ledger row is new, adds its points.
//
// The ledger insert and the points award are two separate steps. A crash
// between them leaves a ledger row without its points; the retry sees the
// row and pays nothing.
func (e *Engine) ClaimLab(ctx context.Context, labID, labType string, points int) (bool, error) {
	inserted, err := e.CompleteLab(ctx, labID, labType, points)
	if err != nil {
		return false, err
	}
	if inserted && points > 0 {
		e.AddPoints(points)
	}
	return inserted, nil
}

// labRefreshJob refetches the user's whole lab ledger into the cache.
func (e *Engine) labRefreshJob(s session) Job {
	return Job{
		Op:     "refresh_labs",
		UserID: s.userID,
		Run: func(ctx context.Context) error {
			if !e.current(s.gen) {
				return nil
			}
			recs, err := e.remote.LabCompletions(ctx, s.userID)
			if err != nil {
				return err
			}

			e.mu.Lock()
			defer e.mu.Unlock()
			if e.session.gen != s.gen {
				return nil
			}
			e.labs = indexLabs(recs)
			e.clock.Next()
			return nil
		},
	}
}

func indexLabs(recs []ledger.LabCompletion) map[ledger.LabKey]ledger.LabCompletion {
	out := make(map[ledger.LabKey]ledger.LabCompletion, len(recs))
	for _, r := range recs {
		out[r.Key()] = r
	}
	return out
}
