// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the catalogue collections (if missing) and attaches the
// JSON-Schema validators that back the store invariants. Deployments that
// reject collMod log and skip.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("education_group_types", educationGroupTypesSchema())
	ensure("education_group_years", educationGroupYearsSchema())
	ensure("group_element_years", groupElementYearsSchema())
	ensure("prerequisites", prerequisitesSchema())
	ensure("admission_condition_lines", admissionConditionLinesSchema())

	// Written inside transactions; they must exist beforehand.
	for _, coll := range []string{
		"academic_years", "academic_calendars", "education_groups",
		"authorized_relationships", "unauthorized_relationships",
		"learning_units", "learning_unit_years", "admission_conditions",
		"mandates", "mandataries", "offer_enrollments", "learning_unit_enrollments",
		"validation_rules", "persons", "clipboards", "filter_caches", "audit_events",
	} {
		ensure(coll, nil)
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandMatches(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func educationGroupTypesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"category", "name"},
			"properties": bson.M{
				"category": bson.M{"enum": bson.A{"TRAINING", "MINI_TRAINING", "GROUP"}},
				"name":     bson.M{"bsonType": "string", "minLength": 1},
			},
		},
	}
}

func educationGroupYearsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"education_group_id", "academic_year_id", "academic_year", "acronym", "title", "education_group_type_id"},
			"properties": bson.M{
				"education_group_id":      bson.M{"bsonType": "objectId"},
				"academic_year_id":        bson.M{"bsonType": "objectId"},
				"academic_year":           bson.M{"bsonType": bson.A{"int", "long"}},
				"acronym":                 bson.M{"bsonType": "string", "pattern": "^(common-[a-z0-9]+|([A-Z]{2,4})([0-9]?)(.*))$"},
				"title":                   bson.M{"bsonType": "string", "minLength": 1},
				"education_group_type_id": bson.M{"bsonType": "objectId"},
				"constraint_type":         bson.M{"enum": bson.A{"CREDITS", "NUMBER"}},
				"duration_unit":           bson.M{"enum": bson.A{"QUADRIMESTER", "TRIMESTER", "MONTH", "WEEK", "DAY"}},
			},
		},
	}
}

// groupElementYearsSchema enforces that an edge has exactly one child.
func groupElementYearsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"parent_id", "order"},
			"properties": bson.M{
				"parent_id":       bson.M{"bsonType": "objectId"},
				"child_branch_id": bson.M{"bsonType": "objectId"},
				"child_leaf_id":   bson.M{"bsonType": "objectId"},
				"order":           bson.M{"bsonType": bson.A{"int", "long"}},
				"block":           bson.M{"bsonType": "string", "pattern": "^1?2?3?4?5?6?$"},
			},
			"oneOf": bson.A{
				bson.M{"required": bson.A{"child_branch_id"}, "not": bson.M{"required": bson.A{"child_leaf_id"}}},
				bson.M{"required": bson.A{"child_leaf_id"}, "not": bson.M{"required": bson.A{"child_branch_id"}}},
			},
		},
	}
}

func prerequisitesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"learning_unit_year_id", "education_group_year_id", "prerequisite"},
			"properties": bson.M{
				"learning_unit_year_id":   bson.M{"bsonType": "objectId"},
				"education_group_year_id": bson.M{"bsonType": "objectId"},
				"prerequisite":            bson.M{"bsonType": "string"},
			},
		},
	}
}

func admissionConditionLinesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"admission_condition_id", "section", "order"},
			"properties": bson.M{
				"admission_condition_id": bson.M{"bsonType": "objectId"},
				"section":                bson.M{"bsonType": "string", "minLength": 1},
				"order":                  bson.M{"bsonType": bson.A{"int", "long"}},
			},
		},
	}
}
