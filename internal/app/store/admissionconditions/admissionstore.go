// internal/app/store/admissionconditions/admissionstore.go
package admissionstore

import (
	"context"
	"errors"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists admission conditions and their section lines.
type Store struct {
	conds *mongo.Collection
	lines *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		conds: db.Collection("admission_conditions"),
		lines: db.Collection("admission_condition_lines"),
	}
}

func (s *Store) GetByEGY(ctx context.Context, egyID primitive.ObjectID) (models.AdmissionCondition, error) {
	var ac models.AdmissionCondition
	if err := s.conds.FindOne(ctx, bson.M{"education_group_year_id": egyID}).Decode(&ac); err != nil {
		return models.AdmissionCondition{}, catalogerr.FromMongo(err)
	}
	return ac, nil
}

// GetOrCreate returns the admission condition of egyID, creating an empty
// one when missing.
func (s *Store) GetOrCreate(ctx context.Context, egyID primitive.ObjectID) (models.AdmissionCondition, error) {
	var ac models.AdmissionCondition
	err := s.conds.FindOneAndUpdate(ctx,
		bson.M{"education_group_year_id": egyID},
		bson.M{"$setOnInsert": bson.M{"_id": primitive.NewObjectID()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&ac)
	if err != nil {
		return models.AdmissionCondition{}, catalogerr.FromMongo(err)
	}
	return ac, nil
}

// Save replaces the stored texts of ac. Keys outside the enumerated field
// list are rejected with a *catalogerr.ValidationError.
func (s *Store) Save(ctx context.Context, ac models.AdmissionCondition) error {
	if unknown := ac.UnknownTextKeys(); len(unknown) > 0 {
		ve := catalogerr.NewValidationError()
		for _, k := range unknown {
			ve.Add(k, "Unknown admission condition field.")
		}
		return ve
	}
	res, err := s.conds.ReplaceOne(ctx, bson.M{"_id": ac.ID}, ac)
	if err != nil {
		return catalogerr.FromMongo(err)
	}
	if res.MatchedCount == 0 {
		return catalogerr.ErrNotFound
	}
	return nil
}

// ListLines returns the lines of condID ordered by section then order.
func (s *Store) ListLines(ctx context.Context, condID primitive.ObjectID) ([]models.AdmissionConditionLine, error) {
	cur, err := s.lines.Find(ctx, bson.M{"admission_condition_id": condID},
		options.Find().SetSort(bson.D{{Key: "section", Value: 1}, {Key: "order", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AdmissionConditionLine
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertLineByExternalID finds the line (condID, section, externalID) and
// applies set to it, creating the line at the end of its section when
// missing.
func (s *Store) UpsertLineByExternalID(ctx context.Context, condID primitive.ObjectID, section, externalID string, set func(*models.AdmissionConditionLine)) (models.AdmissionConditionLine, error) {
	var line models.AdmissionConditionLine
	err := s.lines.FindOne(ctx, bson.M{
		"admission_condition_id": condID,
		"section":                section,
		"external_id":            externalID,
	}).Decode(&line)
	switch {
	case err == nil:
		set(&line)
		if _, err := s.lines.ReplaceOne(ctx, bson.M{"_id": line.ID}, line); err != nil {
			return models.AdmissionConditionLine{}, catalogerr.FromMongo(err)
		}
		return line, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return models.AdmissionConditionLine{}, err
	}

	order, err := s.nextLineOrder(ctx, condID, section)
	if err != nil {
		return models.AdmissionConditionLine{}, err
	}
	line = models.AdmissionConditionLine{
		ID:                   primitive.NewObjectID(),
		AdmissionConditionID: condID,
		Section:              section,
		ExternalID:           externalID,
		Order:                order,
	}
	set(&line)
	if _, err := s.lines.InsertOne(ctx, line); err != nil {
		return models.AdmissionConditionLine{}, catalogerr.FromMongo(err)
	}
	return line, nil
}

// PutLineAt stores l at (condID, l.Section, l.Order), overwriting any line
// already holding that slot.
func (s *Store) PutLineAt(ctx context.Context, condID primitive.ObjectID, l models.AdmissionConditionLine) error {
	filter := bson.M{"admission_condition_id": condID, "section": l.Section, "order": l.Order}
	set := bson.M{
		"external_id":   l.ExternalID,
		"diploma":       l.Diploma,
		"conditions":    l.Conditions,
		"access":        l.Access,
		"remarks":       l.Remarks,
		"diploma_en":    l.DiplomaEn,
		"conditions_en": l.ConditionsEn,
		"access_en":     l.AccessEn,
		"remarks_en":    l.RemarksEn,
	}
	_, err := s.lines.UpdateOne(ctx, filter,
		bson.M{"$set": set, "$setOnInsert": bson.M{"_id": primitive.NewObjectID()}},
		options.Update().SetUpsert(true))
	return catalogerr.FromMongo(err)
}

func (s *Store) nextLineOrder(ctx context.Context, condID primitive.ObjectID, section string) (int, error) {
	var last struct {
		Order int `bson:"order"`
	}
	err := s.lines.FindOne(ctx,
		bson.M{"admission_condition_id": condID, "section": section},
		options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}}),
	).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Order + 1, nil
}

// Duplicate copies the admission condition of srcEGY, texts and lines, onto
// dstEGY. The lines of dstEGY are replaced, not merged. A source without
// admission condition yields ErrNotFound.
func (s *Store) Duplicate(ctx context.Context, srcEGY, dstEGY primitive.ObjectID) error {
	src, err := s.GetByEGY(ctx, srcEGY)
	if err != nil {
		return err
	}
	dst, err := s.GetOrCreate(ctx, dstEGY)
	if err != nil {
		return err
	}
	models.DuplicateAdmissionCondition(src, &dst)
	if err := s.Save(ctx, dst); err != nil {
		return err
	}

	lines, err := s.ListLines(ctx, src.ID)
	if err != nil {
		return err
	}
	if _, err := s.lines.DeleteMany(ctx, bson.M{"admission_condition_id": dst.ID}); err != nil {
		return catalogerr.FromMongo(err)
	}
	for _, l := range lines {
		if err := s.PutLineAt(ctx, dst.ID, models.DuplicateLine(l, dst.ID)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByEGY removes the admission condition of egyID and its lines.
func (s *Store) DeleteByEGY(ctx context.Context, egyID primitive.ObjectID) error {
	ac, err := s.GetByEGY(ctx, egyID)
	if errors.Is(err, catalogerr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.lines.DeleteMany(ctx, bson.M{"admission_condition_id": ac.ID}); err != nil {
		return err
	}
	_, err = s.conds.DeleteOne(ctx, bson.M{"_id": ac.ID})
	return err
}
