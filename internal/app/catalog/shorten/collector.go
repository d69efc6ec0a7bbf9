// Package shorten trims the later years of an education group and guards
// every year-version deletion with a protection collector.
package shorten

import (
	"context"
	"fmt"

	enrollmentstore "github.com/dalemusser/catalog/internal/app/store/enrollments"
	geystore "github.com/dalemusser/catalog/internal/app/store/groupelementyears"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MsgContentNotEmpty is the protection reason of a year-version that still
// parents an element.
const MsgContentNotEmpty = "The content of the education group is not empty."

// EnrollmentMessage renders the protection reason for n offer enrollments.
func EnrollmentMessage(n int64) string {
	if n == 1 {
		return "1 student is enrolled in the offer."
	}
	return fmt.Sprintf("%d students are enrolled in the offer.", n)
}

// Collector gathers the references that block the deletion of year-versions.
type Collector struct {
	enrollments *enrollmentstore.Store
	geys        *geystore.Store
}

// NewCollector builds a Collector over db.
func NewCollector(db *mongo.Database) *Collector {
	return &Collector{
		enrollments: enrollmentstore.New(db),
		geys:        geystore.New(db),
	}
}

// Collect returns one reason entry per protected year-version, in the order
// of egys.
func (c *Collector) Collect(ctx context.Context, egys []models.EducationGroupYear) ([]catalogerr.ProtectedReason, error) {
	if len(egys) == 0 {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(egys))
	for _, e := range egys {
		ids = append(ids, e.ID)
	}

	counts, err := c.enrollments.CountByEGYs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	content, err := c.geys.ListByParents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	hasContent := make(map[primitive.ObjectID]bool, len(content))
	for _, g := range content {
		hasContent[g.ParentID] = true
	}

	var reasons []catalogerr.ProtectedReason
	for _, e := range egys {
		var msgs []string
		if n := counts[e.ID]; n > 0 {
			msgs = append(msgs, EnrollmentMessage(n))
		}
		if hasContent[e.ID] {
			msgs = append(msgs, MsgContentNotEmpty)
		}
		if len(msgs) == 0 {
			continue
		}
		reasons = append(reasons, catalogerr.ProtectedReason{
			EducationGroupYearID: e.ID.Hex(),
			Acronym:              e.Acronym,
			Year:                 models.AcademicYear{Year: e.AcademicYear}.String(),
			Messages:             msgs,
		})
	}
	return reasons, nil
}

// Check is Collect returning a *catalogerr.ProtectedError when any reason
// was found.
func (c *Collector) Check(ctx context.Context, egys []models.EducationGroupYear) error {
	reasons, err := c.Collect(ctx, egys)
	if err != nil {
		return err
	}
	if len(reasons) > 0 {
		return &catalogerr.ProtectedError{Reasons: reasons}
	}
	return nil
}
