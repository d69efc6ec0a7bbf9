// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's set is reconciled
idempotently; problems are aggregated so startup can fail fast with the full
picture.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, set := range catalogIndexSets() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetName(name)}
}

// uniqWhenSet is a unique index restricted to documents carrying field.
func uniqWhenSet(name, field string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{
		Keys: keys,
		Options: options.Index().SetUnique(true).SetName(name).
			SetPartialFilterExpression(bson.M{field: bson.M{"$exists": true}}),
	}
}

func catalogIndexSets() []indexSet {
	return []indexSet{
		{"academic_years", []mongo.IndexModel{
			uniq("uniq_academic_years_year", bson.D{{Key: "year", Value: 1}}),
		}},
		{"academic_calendars", []mongo.IndexModel{
			uniq("uniq_academic_calendars_year_reference", bson.D{{Key: "academic_year_id", Value: 1}, {Key: "reference", Value: 1}}),
		}},
		{"education_group_types", []mongo.IndexModel{
			uniq("uniq_egt_category_name", bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}),
		}},
		{"authorized_relationships", []mongo.IndexModel{
			uniq("uniq_authrel_parent_child", bson.D{{Key: "parent_type_id", Value: 1}, {Key: "child_type_id", Value: 1}}),
		}},
		{"unauthorized_relationships", []mongo.IndexModel{
			uniq("uniq_unauthrel_parent_child", bson.D{{Key: "parent_type_id", Value: 1}, {Key: "child_type_id", Value: 1}}),
		}},
		{"education_group_years", []mongo.IndexModel{
			// One version per identity and year.
			uniq("uniq_egy_group_year", bson.D{{Key: "education_group_id", Value: 1}, {Key: "academic_year", Value: 1}}),
			// Postponement partition and search by year.
			idx("idx_egy_year_category", bson.D{{Key: "academic_year", Value: 1}, {Key: "category", Value: 1}}),
			idx("idx_egy_year_acronymci", bson.D{{Key: "academic_year", Value: 1}, {Key: "acronym_ci", Value: 1}}),
			idx("idx_egy_acronym", bson.D{{Key: "acronym", Value: 1}}),
			idx("idx_egy_partial_acronym", bson.D{{Key: "partial_acronym", Value: 1}}),
		}},
		{"group_element_years", []mongo.IndexModel{
			uniq("uniq_gey_parent_order", bson.D{{Key: "parent_id", Value: 1}, {Key: "order", Value: 1}}),
			uniqWhenSet("uniq_gey_parent_branch", "child_branch_id", bson.D{{Key: "parent_id", Value: 1}, {Key: "child_branch_id", Value: 1}}),
			uniqWhenSet("uniq_gey_parent_leaf", "child_leaf_id", bson.D{{Key: "parent_id", Value: 1}, {Key: "child_leaf_id", Value: 1}}),
			// Batched tree read.
			idx("idx_gey_year", bson.D{{Key: "academic_year", Value: 1}}),
			idx("idx_gey_child_branch", bson.D{{Key: "child_branch_id", Value: 1}}),
			idx("idx_gey_child_leaf", bson.D{{Key: "child_leaf_id", Value: 1}}),
		}},
		{"learning_unit_years", []mongo.IndexModel{
			uniq("uniq_luy_unit_year", bson.D{{Key: "learning_unit_id", Value: 1}, {Key: "academic_year", Value: 1}}),
			idx("idx_luy_year_acronym", bson.D{{Key: "academic_year", Value: 1}, {Key: "acronym", Value: 1}}),
		}},
		{"prerequisites", []mongo.IndexModel{
			uniq("uniq_prereq_luy_egy", bson.D{{Key: "learning_unit_year_id", Value: 1}, {Key: "education_group_year_id", Value: 1}}),
			idx("idx_prereq_egy", bson.D{{Key: "education_group_year_id", Value: 1}}),
		}},
		{"admission_conditions", []mongo.IndexModel{
			uniq("uniq_admission_egy", bson.D{{Key: "education_group_year_id", Value: 1}}),
		}},
		{"admission_condition_lines", []mongo.IndexModel{
			uniq("uniq_acl_condition_section_order", bson.D{{Key: "admission_condition_id", Value: 1}, {Key: "section", Value: 1}, {Key: "order", Value: 1}}),
			idx("idx_acl_condition_external", bson.D{{Key: "admission_condition_id", Value: 1}, {Key: "external_id", Value: 1}}),
		}},
		{"mandates", []mongo.IndexModel{
			idx("idx_mandates_group", bson.D{{Key: "education_group_id", Value: 1}}),
		}},
		{"mandataries", []mongo.IndexModel{
			idx("idx_mandataries_mandate", bson.D{{Key: "mandate_id", Value: 1}}),
		}},
		{"offer_enrollments", []mongo.IndexModel{
			idx("idx_offer_enrollments_egy", bson.D{{Key: "education_group_year_id", Value: 1}}),
		}},
		{"learning_unit_enrollments", []mongo.IndexModel{
			idx("idx_lue_luy", bson.D{{Key: "learning_unit_year_id", Value: 1}}),
			idx("idx_lue_offer", bson.D{{Key: "offer_enrollment_id", Value: 1}}),
		}},
		{"persons", []mongo.IndexModel{
			uniq("uniq_persons_user", bson.D{{Key: "user_id", Value: 1}}),
		}},
		{"filter_caches", []mongo.IndexModel{
			uniq("uniq_filter_caches_user_url", bson.D{{Key: "user_id", Value: 1}, {Key: "url", Value: 1}}),
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(p *bool) bool { return p != nil && *p }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listBySig(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var ix existingIndex
		if err := cur.Decode(&ix); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(ix.Key)] = ix
	}
	return existing
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listBySig(ctx, coll)

	for _, m := range models {
		name := *m.Options.Name
		unique := boolVal(m.Options.Unique)
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique))

		if ex, ok := existing[sig]; ok {
			if boolVal(ex.Unique) == unique && ex.Name == name {
				log.Debug("reusing existing index")
				continue
			}
			// Same keys under another name or with other options: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
			if isDuplicateKeyErr(err) && unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			continue
		}
		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
