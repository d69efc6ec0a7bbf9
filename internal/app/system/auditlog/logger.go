// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/catalog/internal/app/catalog/postponement"
	"github.com/dalemusser/catalog/internal/app/store/audit"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Postponement controls logging for year/content postponement and shortening.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Postponement string
	// Structure controls logging for attach/detach/move and prerequisite edits.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Structure string
}

// Logger records catalogue operations to MongoDB (via audit.Store) and to
// structured logs (via zap). It is the report sink of year postponement.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

var _ postponement.Sink = (*Logger)(nil)

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.RunID != "" {
		fields = append(fields, zap.String("run_id", event.RunID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.EducationGroupYearID != nil {
		fields = append(fields, zap.String("education_group_year_id", event.EducationGroupYearID.Hex()))
	}
	if event.AcademicYear != 0 {
		fields = append(fields, zap.Int("academic_year", event.AcademicYear))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryPostponement:
		setting = l.config.Postponement
	case audit.CategoryStructure, audit.CategoryPrerequisite:
		setting = l.config.Structure
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func egyID(egy models.EducationGroupYear) *primitive.ObjectID {
	id := egy.ID
	return &id
}

// --- Year postponement (report sink) ---

// SendBefore records the partition computed before a batch run.
func (l *Logger) SendBefore(ctx context.Context, r postponement.Result) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryPostponement,
		EventType:    audit.EventYearPostponementStarted,
		RunID:        r.RunID,
		AcademicYear: r.Target.Year,
		Success:      true,
		Details: map[string]string{
			"to_duplicate":       strconv.Itoa(len(r.ToDuplicate)),
			"already_duplicated": strconv.Itoa(len(r.AlreadyDuplicated)),
			"not_duplicated":     strconv.Itoa(len(r.NotDuplicated)),
		},
	})
}

// SendAfter records one event per element and the run summary.
func (l *Logger) SendAfter(ctx context.Context, r postponement.Result) {
	for _, egy := range r.Created {
		l.Log(ctx, audit.Event{
			Category:             audit.CategoryPostponement,
			EventType:            audit.EventYearExtended,
			RunID:                r.RunID,
			EducationGroupYearID: egyID(egy),
			AcademicYear:         egy.AcademicYear,
			Success:              true,
			Details:              map[string]string{"acronym": egy.Acronym},
		})
	}
	for _, e := range r.Errors {
		l.Log(ctx, audit.Event{
			Category:             audit.CategoryPostponement,
			EventType:            audit.EventYearExtendFailed,
			RunID:                r.RunID,
			EducationGroupYearID: egyID(e.Source),
			AcademicYear:         e.Source.AcademicYear,
			Success:              false,
			FailureReason:        e.Err.Error(),
			Details:              map[string]string{"acronym": e.Source.Acronym},
		})
	}
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryPostponement,
		EventType:    audit.EventYearPostponementFinished,
		RunID:        r.RunID,
		AcademicYear: r.Target.Year,
		Success:      len(r.Errors) == 0,
		Details: map[string]string{
			"message":            r.Message(),
			"already_duplicated": strconv.Itoa(len(r.AlreadyDuplicated)),
			"not_duplicated":     strconv.Itoa(len(r.NotDuplicated)),
		},
	})
}

// --- Content postponement and shortening ---

// ContentPostponed logs the copy of a training's content into the next year.
func (l *Logger) ContentPostponed(ctx context.Context, actorID string, root, next models.EducationGroupYear, edges int) {
	l.Log(ctx, audit.Event{
		Category:             audit.CategoryPostponement,
		EventType:            audit.EventContentPostponed,
		ActorID:              actorID,
		EducationGroupYearID: egyID(next),
		AcademicYear:         next.AcademicYear,
		Success:              true,
		Details: map[string]string{
			"source_id": root.ID.Hex(),
			"acronym":   root.Acronym,
			"edges":     strconv.Itoa(edges),
		},
	})
}

// GroupShortened logs the deletion of the years of a group past untilYear.
func (l *Logger) GroupShortened(ctx context.Context, actorID string, groupID primitive.ObjectID, untilYear int, deleted []models.EducationGroupYear) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryPostponement,
		EventType:    audit.EventGroupShortened,
		ActorID:      actorID,
		AcademicYear: untilYear,
		Success:      true,
		Details: map[string]string{
			"education_group_id": groupID.Hex(),
			"deleted":            strconv.Itoa(len(deleted)),
		},
	})
}

// YearDeleted logs the deletion of a single year-version.
func (l *Logger) YearDeleted(ctx context.Context, actorID string, egy models.EducationGroupYear, groupDeleted bool) {
	l.Log(ctx, audit.Event{
		Category:             audit.CategoryPostponement,
		EventType:            audit.EventYearDeleted,
		ActorID:              actorID,
		EducationGroupYearID: egyID(egy),
		AcademicYear:         egy.AcademicYear,
		Success:              true,
		Details: map[string]string{
			"acronym":       egy.Acronym,
			"group_deleted": strconv.FormatBool(groupDeleted),
		},
	})
}

// --- Structure ---

// ElementSelected logs a clipboard selection.
func (l *Logger) ElementSelected(ctx context.Context, actorID, kind string, id primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryStructure,
		EventType: audit.EventElementSelected,
		ActorID:   actorID,
		Success:   true,
		Details:   map[string]string{"kind": kind, "id": id.Hex()},
	})
}

func (l *Logger) edgeEvent(ctx context.Context, eventType, actorID string, gey models.GroupElementYear, extra map[string]string) {
	details := map[string]string{
		"element_id": gey.ID.Hex(),
		"child_id":   gey.ChildID().Hex(),
		"order":      strconv.Itoa(gey.Order),
	}
	for k, v := range extra {
		details[k] = v
	}
	parent := gey.ParentID
	l.Log(ctx, audit.Event{
		Category:             audit.CategoryStructure,
		EventType:            eventType,
		ActorID:              actorID,
		EducationGroupYearID: &parent,
		AcademicYear:         gey.AcademicYear,
		Success:              true,
		Details:              details,
	})
}

// ElementAttached logs a new edge.
func (l *Logger) ElementAttached(ctx context.Context, actorID string, gey models.GroupElementYear) {
	l.edgeEvent(ctx, audit.EventElementAttached, actorID, gey, nil)
}

// ElementDetached logs a removed edge.
func (l *Logger) ElementDetached(ctx context.Context, actorID string, gey models.GroupElementYear) {
	l.edgeEvent(ctx, audit.EventElementDetached, actorID, gey, nil)
}

// ElementMoved logs an order swap; direction is "up" or "down".
func (l *Logger) ElementMoved(ctx context.Context, actorID string, gey models.GroupElementYear, direction string) {
	l.edgeEvent(ctx, audit.EventElementMoved, actorID, gey, map[string]string{"direction": direction})
}

// PrerequisiteSaved logs a prerequisite expression change.
func (l *Logger) PrerequisiteSaved(ctx context.Context, actorID string, p models.Prerequisite) {
	root := p.EducationGroupYearID
	l.Log(ctx, audit.Event{
		Category:             audit.CategoryPrerequisite,
		EventType:            audit.EventPrerequisiteSaved,
		ActorID:              actorID,
		EducationGroupYearID: &root,
		Success:              true,
		Details: map[string]string{
			"learning_unit_year_id": p.LearningUnitYearID.Hex(),
			"prerequisite":          p.Expression,
		},
	})
}

// ImportCompleted logs the outcome of an operator import.
func (l *Logger) ImportCompleted(ctx context.Context, kind string, details map[string]string, err error) {
	event := audit.Event{
		Category:  audit.CategoryImport,
		EventType: audit.EventImportCompleted,
		Success:   err == nil,
		Details:   map[string]string{"kind": kind},
	}
	for k, v := range details {
		event.Details[k] = v
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	l.Log(ctx, event)
}
