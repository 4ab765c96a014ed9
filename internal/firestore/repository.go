// Package firestore implements the remote progression store on Cloud
// Firestore.
//
// Layout:
//
//	users/{user_id}                                  points, updated_at
//	users/{user_id}/achievements/{achievement_id}    award ledger
//	users/{user_id}/lab_completions/{type}~{lab_id}  lab ledger
//
// Ledger documents are keyed by their uniqueness tuple and written with
// Create, so a second insert fails with AlreadyExists and is reported as
// inserted=false.
package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/roach88/cyberquest/internal/ledger"
)

const (
	usersCollection        = "users"
	achievementsCollection = "achievements"
	labsCollection         = "lab_completions"
)

// Repository is a Firestore-backed progression store.
type Repository struct {
	client *firestore.Client
	now    func() time.Time
}

// NewRepository wraps an open Firestore client.
func NewRepository(client *firestore.Client) *Repository {
	return &Repository{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Open dials Firestore for project and database. An empty database selects
// the default database.
func Open(ctx context.Context, projectID, database string) (*Repository, error) {
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return NewRepository(client), nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) user(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID)
}

func (r *Repository) achievements(userID string) *firestore.CollectionRef {
	return r.user(userID).Collection(achievementsCollection)
}

func (r *Repository) labs(userID string) *firestore.CollectionRef {
	return r.user(userID).Collection(labsCollection)
}

// labDocID builds a document id from the lab uniqueness key. Both parts are
// path-escaped so a "/" in a lab id cannot create a nested path.
func labDocID(labType, labID string) string {
	return url.PathEscape(labType) + "~" + url.PathEscape(labID)
}

// ReadPoints returns the user's points, or 0 if the user document is absent.
func (r *Repository) ReadPoints(ctx context.Context, userID string) (int, error) {
	doc, err := r.user(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read points: %w", err)
	}

	var data struct {
		Points int64 `firestore:"points"`
	}
	if err := doc.DataTo(&data); err != nil {
		return 0, fmt.Errorf("decode points: %w", err)
	}
	if data.Points < 0 {
		return 0, nil
	}
	return int(data.Points), nil
}

// WritePoints sets the user's points. Last write wins.
func (r *Repository) WritePoints(ctx context.Context, userID string, points int) error {
	_, err := r.user(userID).Set(ctx, map[string]any{
		"points":     points,
		"updated_at": r.now(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	return nil
}

// GrantedAchievements lists the achievement ids awarded to the user, sorted.
func (r *Repository) GrantedAchievements(ctx context.Context, userID string) ([]string, error) {
	iter := r.achievements(userID).Documents(ctx)
	defer iter.Stop()

	ids := []string{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list achievements: %w", err)
		}
		ids = append(ids, doc.Ref.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// InsertAward creates the award document. AlreadyExists is inserted=false.
func (r *Repository) InsertAward(ctx context.Context, award ledger.Award) (bool, error) {
	if award.ID == "" {
		award.ID = uuid.Must(uuid.NewV7()).String()
	}
	if award.EarnedAt.IsZero() {
		award.EarnedAt = r.now()
	}

	_, err := r.achievements(award.UserID).Doc(award.AchievementID).Create(ctx, map[string]any{
		"id":             award.ID,
		"user_id":        award.UserID,
		"achievement_id": award.AchievementID,
		"earned_at":      award.EarnedAt,
	})
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert award: %w", err)
	}
	return true, nil
}

// LabCompletions lists the user's lab completions ordered by completion time.
func (r *Repository) LabCompletions(ctx context.Context, userID string) ([]ledger.LabCompletion, error) {
	iter := r.labs(userID).OrderBy("completed_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	records := []ledger.LabCompletion{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list lab completions: %w", err)
		}

		var rec ledger.LabCompletion
		if err := doc.DataTo(&rec); err != nil {
			slog.Warn("skipping malformed lab completion",
				"user_id", userID,
				"doc_id", doc.Ref.ID,
				"error", err,
			)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// InsertLabCompletion creates the lab document. AlreadyExists is
// inserted=false.
func (r *Repository) InsertLabCompletion(ctx context.Context, rec ledger.LabCompletion) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.Must(uuid.NewV7()).String()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = r.now()
	}

	_, err := r.labs(rec.UserID).Doc(labDocID(rec.LabType, rec.LabID)).Create(ctx, rec)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert lab completion: %w", err)
	}
	return true, nil
}
