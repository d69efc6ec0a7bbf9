// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/catalog/internal/app/features/apierr"
	"github.com/dalemusser/catalog/internal/app/policy/educationgrouppolicy"
	"github.com/dalemusser/catalog/internal/app/store/audit"
	"github.com/dalemusser/catalog/internal/app/system/paging"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const cacheURL = "/audit"

var filterKeys = []string{"category", "event_type", "run_id", "education_group_year_id", "start_date", "end_date"}

// applySavedFilters saves the filters of q for userID, or restores the saved
// ones when q has none. Cache failures are logged and ignored.
func (h *Handler) applySavedFilters(ctx context.Context, userID string, q url.Values) url.Values {
	sent := map[string]string{}
	for _, k := range filterKeys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			sent[k] = v
		}
	}
	if len(sent) > 0 {
		if err := h.Filters.Save(ctx, userID, cacheURL, sent); err != nil {
			h.Log.Warn("failed to save audit filters", zap.Error(err))
		}
		return q
	}
	saved, err := h.Filters.Get(ctx, userID, cacheURL)
	if err != nil {
		h.Log.Warn("failed to load audit filters", zap.Error(err))
		return q
	}
	for k, v := range saved {
		q.Set(k, v)
	}
	return q
}

// ServeClearFilters handles DELETE /audit/filters.
func (h *Handler) ServeClearFilters(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Filters.Clear(ctx, person.UserID, cacheURL); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listItem is a single audit event row.
type listItem struct {
	ID                   string            `json:"id"`
	Timestamp            time.Time         `json:"timestamp"`
	Category             string            `json:"category"`
	EventType            string            `json:"event_type"`
	RunID                string            `json:"run_id,omitempty"`
	ActorID              string            `json:"actor_id,omitempty"`
	ActorName            string            `json:"actor_name,omitempty"` // resolved from ActorID
	EducationGroupYearID string            `json:"education_group_year_id,omitempty"`
	AcademicYear         int               `json:"academic_year,omitempty"`
	Success              bool              `json:"success"`
	FailureReason        string            `json:"failure_reason,omitempty"`
	Details              map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items []listItem `json:"items"`
	paging.Info
}

// ServeList handles GET /audit. Filters: category, event_type, run_id,
// education_group_year_id, start_date and end_date (YYYY-MM-DD), page.
// The last filters a user sent are reapplied when a request carries none.
// Central managers only.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	if err := educationgrouppolicy.RequireCentralManager(person); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	q := h.applySavedFilters(ctx, person.UserID, r.URL.Query())
	page := paging.ParsePage(r)

	filter := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		RunID:     strings.TrimSpace(q.Get("run_id")),
		Limit:     paging.PageSize,
		Offset:    paging.Offset(page),
	}
	if raw := strings.TrimSpace(q.Get("education_group_year_id")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			apierr.BadRequest(w, "invalid education_group_year_id")
			return
		}
		filter.EducationGroupYearID = &id
	}
	if startDate := strings.TrimSpace(q.Get("start_date")); startDate != "" {
		if t, err := time.Parse("2006-01-02", startDate); err == nil {
			filter.StartTime = &t
		}
	}
	if endDate := strings.TrimSpace(q.Get("end_date")); endDate != "" {
		if t, err := time.Parse("2006-01-02", endDate); err == nil {
			// End of day
			endOfDay := t.Add(24*time.Hour - time.Second)
			filter.EndTime = &endOfDay
		}
	}

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		apierr.Write(w, r, h.Log, err)
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		apierr.Write(w, r, h.Log, err)
		return
	}

	// Collect unique actors for name resolution
	seen := map[string]bool{}
	var actorIDs []string
	for _, e := range events {
		if e.ActorID != "" && !seen[e.ActorID] {
			seen[e.ActorID] = true
			actorIDs = append(actorIDs, e.ActorID)
		}
	}
	names := map[string]string{}
	if persons, err := h.Persons.GetByUserIDs(ctx, actorIDs); err != nil {
		h.Log.Warn("failed to fetch actor names for audit log", zap.Error(err))
	} else {
		for id, p := range persons {
			names[id] = strings.TrimSpace(p.FirstName + " " + p.LastName)
		}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			RunID:         e.RunID,
			ActorID:       e.ActorID,
			ActorName:     names[e.ActorID],
			AcademicYear:  e.AcademicYear,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.EducationGroupYearID != nil {
			item.EducationGroupYearID = e.EducationGroupYearID.Hex()
		}
		items = append(items, item)
	}

	apierr.JSON(w, http.StatusOK, listResponse{Items: items, Info: paging.Compute(page, total)})
}
