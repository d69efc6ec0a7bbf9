// internal/app/store/learningunits/learningunitstore.go
package learningunitstore

import (
	"context"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads learning units and their yearly versions.
type Store struct {
	units *mongo.Collection
	years *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		units: db.Collection("learning_units"),
		years: db.Collection("learning_unit_years"),
	}
}

func (s *Store) CreateUnit(ctx context.Context, lu models.LearningUnit) (models.LearningUnit, error) {
	if lu.ID.IsZero() {
		lu.ID = primitive.NewObjectID()
	}
	if _, err := s.units.InsertOne(ctx, lu); err != nil {
		return models.LearningUnit{}, catalogerr.FromMongo(err)
	}
	return lu, nil
}

// CreateYear inserts a version. (learning unit, year) is unique.
func (s *Store) CreateYear(ctx context.Context, luy models.LearningUnitYear) (models.LearningUnitYear, error) {
	if luy.ID.IsZero() {
		luy.ID = primitive.NewObjectID()
	}
	if _, err := s.years.InsertOne(ctx, luy); err != nil {
		return models.LearningUnitYear{}, catalogerr.FromMongo(err)
	}
	return luy, nil
}

func (s *Store) GetYear(ctx context.Context, id primitive.ObjectID) (models.LearningUnitYear, error) {
	var luy models.LearningUnitYear
	if err := s.years.FindOne(ctx, bson.M{"_id": id}).Decode(&luy); err != nil {
		return models.LearningUnitYear{}, catalogerr.FromMongo(err)
	}
	return luy, nil
}

// GetYears returns the versions keyed by id. Unknown ids are absent.
func (s *Store) GetYears(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.LearningUnitYear, error) {
	out := make(map[primitive.ObjectID]models.LearningUnitYear, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := s.findYears(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, luy := range list {
		out[luy.ID] = luy
	}
	return out, nil
}

// NextYear returns the version of the same learning unit one year later.
func (s *Store) NextYear(ctx context.Context, luy models.LearningUnitYear) (models.LearningUnitYear, error) {
	var next models.LearningUnitYear
	err := s.years.FindOne(ctx, bson.M{
		"learning_unit_id": luy.LearningUnitID,
		"academic_year":    luy.AcademicYear + 1,
	}).Decode(&next)
	if err != nil {
		return models.LearningUnitYear{}, catalogerr.FromMongo(err)
	}
	return next, nil
}

// NextYears maps each given version to its successor. Versions without a
// successor are absent.
func (s *Store) NextYears(ctx context.Context, luys []models.LearningUnitYear) (map[primitive.ObjectID]models.LearningUnitYear, error) {
	out := make(map[primitive.ObjectID]models.LearningUnitYear, len(luys))
	if len(luys) == 0 {
		return out, nil
	}
	or := make(bson.A, 0, len(luys))
	for _, l := range luys {
		or = append(or, bson.M{"learning_unit_id": l.LearningUnitID, "academic_year": l.AcademicYear + 1})
	}
	list, err := s.findYears(ctx, bson.M{"$or": or})
	if err != nil {
		return nil, err
	}
	byUnit := make(map[primitive.ObjectID]models.LearningUnitYear, len(list))
	for _, n := range list {
		byUnit[n.LearningUnitID] = n
	}
	for _, l := range luys {
		if n, ok := byUnit[l.LearningUnitID]; ok && n.AcademicYear == l.AcademicYear+1 {
			out[l.ID] = n
		}
	}
	return out, nil
}

// FindYearsByAcronyms returns the versions of year whose acronym is listed.
func (s *Store) FindYearsByAcronyms(ctx context.Context, year int, acronyms []string) ([]models.LearningUnitYear, error) {
	if len(acronyms) == 0 {
		return nil, nil
	}
	return s.findYears(ctx, bson.M{"academic_year": year, "acronym": bson.M{"$in": acronyms}})
}

func (s *Store) findYears(ctx context.Context, filter bson.M) ([]models.LearningUnitYear, error) {
	cur, err := s.years.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "acronym", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.LearningUnitYear
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
