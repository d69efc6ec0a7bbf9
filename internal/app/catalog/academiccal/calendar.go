// Package academiccal resolves the academic years the catalogue operations
// are relative to: the current year and the furthest year postponement may
// reach.
package academiccal

import (
	"context"
	"errors"
	"time"

	calendarstore "github.com/dalemusser/catalog/internal/app/store/academiccalendars"
	academicyearstore "github.com/dalemusser/catalog/internal/app/store/academicyears"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultMaxPostponeYears is how many years past the current one a group is
// kept postponed.
const DefaultMaxPostponeYears = 6

// ErrNoCurrentYear is returned when no academic year has started yet.
var ErrNoCurrentYear = errors.New("no current academic year")

// Calendar answers academic-year questions against the stored years.
type Calendar struct {
	years            *academicyearstore.Store
	calendars        *calendarstore.Store
	maxPostponeYears int
	now              func() time.Time
}

// New creates a Calendar. A non-positive maxPostponeYears uses the default.
func New(db *mongo.Database, maxPostponeYears int) *Calendar {
	if maxPostponeYears <= 0 {
		maxPostponeYears = DefaultMaxPostponeYears
	}
	return &Calendar{
		years:            academicyearstore.New(db),
		calendars:        calendarstore.New(db),
		maxPostponeYears: maxPostponeYears,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of c reading time from now.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	cp := *c
	cp.now = now
	return &cp
}

// MaxPostponeYears returns the configured postponement horizon.
func (c *Calendar) MaxPostponeYears() int { return c.maxPostponeYears }

// Current returns the academic year in progress.
func (c *Calendar) Current(ctx context.Context) (models.AcademicYear, error) {
	y, err := c.years.At(ctx, c.now())
	if errors.Is(err, catalogerr.ErrNotFound) {
		return models.AcademicYear{}, ErrNoCurrentYear
	}
	return y, err
}

// MaxAdjournmentYear returns current + max postpone years.
func (c *Calendar) MaxAdjournmentYear(ctx context.Context) (int, error) {
	cur, err := c.Current(ctx)
	if err != nil {
		return 0, err
	}
	return cur.Year + c.maxPostponeYears, nil
}

// MaxAdjournment returns the academic year of MaxAdjournmentYear. It must
// exist in the store.
func (c *Calendar) MaxAdjournment(ctx context.Context) (models.AcademicYear, error) {
	year, err := c.MaxAdjournmentYear(ctx)
	if err != nil {
		return models.AcademicYear{}, err
	}
	return c.years.GetByYear(ctx, year)
}

// IsEditionOpen reports whether the education group edition calendar is open.
func (c *Calendar) IsEditionOpen(ctx context.Context) (bool, error) {
	return c.calendars.IsOpen(ctx, models.CalendarEducationGroupEdition, c.now())
}
