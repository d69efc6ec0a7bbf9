// internal/app/store/educationgroupyears/egystore.go
package egystore

import (
	"context"
	"regexp"
	"time"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("education_group_years")}
}

// Create validates egy and inserts it. The (group, year) pair is unique.
func (s *Store) Create(ctx context.Context, egy models.EducationGroupYear) (models.EducationGroupYear, error) {
	if err := egy.Validate(); err != nil {
		return models.EducationGroupYear{}, err
	}
	if egy.ID.IsZero() {
		egy.ID = primitive.NewObjectID()
	}
	egy.AcronymCI = text.Fold(egy.Acronym)
	egy.ChangedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, egy); err != nil {
		return models.EducationGroupYear{}, catalogerr.FromMongo(err)
	}
	return egy, nil
}

// Update validates egy and replaces the stored document.
func (s *Store) Update(ctx context.Context, egy models.EducationGroupYear) (models.EducationGroupYear, error) {
	if err := egy.Validate(); err != nil {
		return models.EducationGroupYear{}, err
	}
	egy.AcronymCI = text.Fold(egy.Acronym)
	egy.ChangedAt = time.Now().UTC()
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": egy.ID}, egy)
	if err != nil {
		return models.EducationGroupYear{}, catalogerr.FromMongo(err)
	}
	if res.MatchedCount == 0 {
		return models.EducationGroupYear{}, catalogerr.ErrNotFound
	}
	return egy, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.EducationGroupYear, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByIDs returns the year-versions keyed by id. Unknown ids are absent.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.EducationGroupYear, error) {
	out := make(map[primitive.ObjectID]models.EducationGroupYear, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, egy := range list {
		out[egy.ID] = egy
	}
	return out, nil
}

// Delete removes one year-version. Callers go through the shortening guard.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return catalogerr.ErrNotFound
	}
	return nil
}

// FindByGroupAndYear returns the version of group in year.
func (s *Store) FindByGroupAndYear(ctx context.Context, groupID primitive.ObjectID, year int) (models.EducationGroupYear, error) {
	return s.findOne(ctx, bson.M{"education_group_id": groupID, "academic_year": year})
}

// FindByAcronym returns the first version in year whose acronym or partial
// acronym equals acronym, ignoring case.
func (s *Store) FindByAcronym(ctx context.Context, year int, acronym string) (models.EducationGroupYear, error) {
	return s.findOne(ctx, bson.M{
		"academic_year": year,
		"$or": bson.A{
			bson.M{"acronym_ci": text.Fold(acronym)},
			bson.M{"partial_acronym": bson.M{"$regex": "^" + regexp.QuoteMeta(acronym) + "$", "$options": "i"}},
		},
	}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// NextYear returns the version of the same group in the following year.
func (s *Store) NextYear(ctx context.Context, egy models.EducationGroupYear) (models.EducationGroupYear, error) {
	return s.FindByGroupAndYear(ctx, egy.EducationGroupID, egy.AcademicYear+1)
}

// ListByGroup returns every version of group ordered by year.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.EducationGroupYear, error) {
	return s.find(ctx, bson.M{"education_group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "academic_year", Value: 1}}))
}

// ListByGroupAfter returns the versions of group strictly after year, oldest
// first.
func (s *Store) ListByGroupAfter(ctx context.Context, groupID primitive.ObjectID, year int) ([]models.EducationGroupYear, error) {
	return s.find(ctx, bson.M{"education_group_id": groupID, "academic_year": bson.M{"$gt": year}},
		options.Find().SetSort(bson.D{{Key: "academic_year", Value: 1}}))
}

// LatestForGroup returns the most recent version of group.
func (s *Store) LatestForGroup(ctx context.Context, groupID primitive.ObjectID) (models.EducationGroupYear, error) {
	return s.findOne(ctx, bson.M{"education_group_id": groupID},
		options.FindOne().SetSort(bson.D{{Key: "academic_year", Value: -1}}))
}

// CountByGroup returns how many versions group has.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"education_group_id": groupID})
}

// GroupsWithYear returns, among groupIDs, those having a version in year.
func (s *Store) GroupsWithYear(ctx context.Context, groupIDs []primitive.ObjectID, year int) (map[primitive.ObjectID]bool, error) {
	out := make(map[primitive.ObjectID]bool)
	if len(groupIDs) == 0 {
		return out, nil
	}
	ids, err := s.c.Distinct(ctx, "education_group_id", bson.M{
		"education_group_id": bson.M{"$in": groupIDs},
		"academic_year":      year,
	})
	if err != nil {
		return nil, err
	}
	for _, v := range ids {
		if id, ok := v.(primitive.ObjectID); ok {
			out[id] = true
		}
	}
	return out, nil
}

/* --------------------------------- search --------------------------------- */

// Filter narrows Search. Zero fields are ignored.
type Filter struct {
	AcademicYear      *int
	Acronym           string // case-insensitive contains
	PartialAcronym    string // case-insensitive contains
	Title             string // case-insensitive contains
	TypeIDs           []primitive.ObjectID
	Categories        []string
	ExcludeCategories []string
	IDs               []primitive.ObjectID
	Limit             int64
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if f.AcademicYear != nil {
		q["academic_year"] = *f.AcademicYear
	}
	if f.Acronym != "" {
		q["acronym_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(f.Acronym))}
	}
	if f.PartialAcronym != "" {
		q["partial_acronym"] = bson.M{"$regex": regexp.QuoteMeta(f.PartialAcronym), "$options": "i"}
	}
	if f.Title != "" {
		q["title"] = bson.M{"$regex": regexp.QuoteMeta(f.Title), "$options": "i"}
	}
	if len(f.TypeIDs) > 0 {
		q["education_group_type_id"] = bson.M{"$in": f.TypeIDs}
	}
	cat := bson.M{}
	if len(f.Categories) > 0 {
		cat["$in"] = f.Categories
	}
	if len(f.ExcludeCategories) > 0 {
		cat["$nin"] = f.ExcludeCategories
	}
	if len(cat) > 0 {
		q["category"] = cat
	}
	if len(f.IDs) > 0 {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	return q
}

// Search returns the year-versions matching f ordered by year then acronym.
func (s *Store) Search(ctx context.Context, f Filter) ([]models.EducationGroupYear, error) {
	opts := options.Find().SetSort(bson.D{{Key: "academic_year", Value: 1}, {Key: "acronym", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return s.find(ctx, f.query(), opts)
}

/* ------------------------------- aggregates ------------------------------- */

// WithEnrollments is a training with its enrollment counts for one learning
// unit year.
type WithEnrollments struct {
	models.EducationGroupYear    `bson:"egy"`
	CountFormationEnrollments    int `bson:"count_formation_enrollments"`
	CountLearningUnitEnrollments int `bson:"count_learning_unit_enrollments"`
}

// FindWithEnrollmentsCount returns the year-versions whose offer enrollments
// are enrolled in luyID, with the number of such learning unit enrollments
// and the total number of offer enrollments, ordered by acronym.
func (s *Store) FindWithEnrollmentsCount(ctx context.Context, luyID primitive.ObjectID) ([]WithEnrollments, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"learning_unit_year_id": luyID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "offer_enrollments",
			"localField":   "offer_enrollment_id",
			"foreignField": "_id",
			"as":           "oe",
		}}},
		{{Key: "$unwind", Value: "$oe"}},
		{{Key: "$group", Value: bson.M{
			"_id":                             "$oe.education_group_year_id",
			"count_learning_unit_enrollments": bson.M{"$sum": 1},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         s.c.Name(),
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "egy",
		}}},
		{{Key: "$unwind", Value: "$egy"}},
		{{Key: "$lookup", Value: bson.M{
			"from": "offer_enrollments",
			"let":  bson.M{"id": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$education_group_year_id", "$$id"}}}},
				bson.M{"$count": "n"},
			},
			"as": "formation",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"count_formation_enrollments": bson.M{"$ifNull": bson.A{bson.M{"$first": "$formation.n"}, 0}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "egy.acronym", Value: 1}}}},
	}

	cur, err := s.c.Database().Collection("learning_unit_enrollments").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []WithEnrollments
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParentByTraining returns the single parent of category TRAINING of egy, or
// nil when it has none.
func (s *Store) ParentByTraining(ctx context.Context, egy models.EducationGroupYear) (*models.EducationGroupYear, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"child_branch_id": egy.ID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         s.c.Name(),
			"localField":   "parent_id",
			"foreignField": "_id",
			"as":           "parent",
		}}},
		{{Key: "$unwind", Value: "$parent"}},
		{{Key: "$match", Value: bson.M{"parent.category": models.CategoryTraining}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$parent"}}},
	}
	cur, err := s.c.Database().Collection("group_element_years").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var parents []models.EducationGroupYear
	if err := cur.All(ctx, &parents); err != nil {
		return nil, err
	}
	switch len(parents) {
	case 0:
		return nil, nil
	case 1:
		return &parents[0], nil
	default:
		return nil, catalogerr.ErrMaximumOneParentAllowed
	}
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (models.EducationGroupYear, error) {
	var egy models.EducationGroupYear
	if err := s.c.FindOne(ctx, filter, opts...).Decode(&egy); err != nil {
		return models.EducationGroupYear{}, catalogerr.FromMongo(err)
	}
	return egy, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.EducationGroupYear, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.EducationGroupYear
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
