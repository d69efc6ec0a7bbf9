// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryPostponement = "postponement"
	CategoryStructure    = "structure"
	CategoryPrerequisite = "prerequisite"
	CategoryImport       = "import"
)

// Postponement event types
const (
	EventYearPostponementStarted  = "year_postponement_started"
	EventYearPostponementFinished = "year_postponement_finished"
	EventYearExtended             = "year_extended"
	EventYearExtendFailed         = "year_extend_failed"
	EventContentPostponed         = "content_postponed"
	EventGroupShortened           = "group_shortened"
	EventYearDeleted              = "year_deleted"
)

// Structure and prerequisite event types
const (
	EventElementSelected   = "element_selected"
	EventElementAttached   = "element_attached"
	EventElementDetached   = "element_detached"
	EventElementMoved      = "element_moved"
	EventPrerequisiteSaved = "prerequisite_saved"
	EventImportCompleted   = "import_completed"
)

// Event is one audited catalogue operation.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// RunID groups the events emitted by one batch run.
	RunID string `bson:"run_id,omitempty"`

	// Who and what
	ActorID              string              `bson:"actor_id,omitempty"`
	EducationGroupYearID *primitive.ObjectID `bson:"education_group_year_id,omitempty"`
	AcademicYear         int                 `bson:"academic_year,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	RunID                string
	EducationGroupYearID *primitive.ObjectID
	Category             string
	EventType            string
	StartTime            *time.Time
	EndTime              *time.Time
	Limit                int64
	Offset               int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "education_group_year_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func buildQuery(filter QueryFilter) bson.M {
	query := bson.M{}
	if filter.RunID != "" {
		query["run_id"] = filter.RunID
	}
	if filter.EducationGroupYearID != nil {
		query["education_group_year_id"] = filter.EducationGroupYearID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(filter))
}

// GetByRun retrieves the events of one batch run.
func (s *Store) GetByRun(ctx context.Context, runID string, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{RunID: runID, Limit: limit})
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}

// GetFailures retrieves failed events recorded since the given time.
func (s *Store) GetFailures(ctx context.Context, since time.Time, limit int64) ([]Event, error) {
	query := bson.M{
		"success":   false,
		"timestamp": bson.M{"$gte": since},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
