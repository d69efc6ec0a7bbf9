// Package importer loads externally authored content into the catalogue:
// admission conditions exported as JSON, validation rules as CSV, and the
// year-to-year copy of admission conditions.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	academicyearstore "github.com/dalemusser/catalog/internal/app/store/academicyears"
	admissionstore "github.com/dalemusser/catalog/internal/app/store/admissionconditions"
	educationgroupstore "github.com/dalemusser/catalog/internal/app/store/educationgroups"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	grouptypestore "github.com/dalemusser/catalog/internal/app/store/grouptypes"
	"github.com/dalemusser/catalog/internal/app/system/htmlsanitize"
	"github.com/dalemusser/catalog/internal/app/system/txn"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrUnhandledKey is returned when the payload carries a text key or a line
// section the catalogue has no field for.
var ErrUnhandledKey = errors.New("this case is not handled")

// ErrUnsupportedLanguage is returned for a language other than fr-be or en.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// BachelorAcronym is the pseudo acronym under which the common bachelor
// conditions are exported.
const BachelorAcronym = "bacs"

// BachelorFields are the keys read from a bachelor item. Only those naming an
// admission condition field are stored; the ca_* labels have no field and
// are dropped.
var BachelorFields = []string{
	"alert_message",
	"ca_bacs_cond_generales",
	"ca_bacs_cond_particulieres",
	"ca_bacs_examen_langue",
	"ca_bacs_cond_speciales",
}

// CommonFields are the labels accepted by ImportCommon, besides
// "introduction" which is stored as "standard". As for BachelorFields, the
// ca_* labels are accepted and dropped.
var CommonFields = []string{
	"alert_message",
	"personalized_access",
	"admission_enrollment_procedures",
	"adults_taking_up_university_training",
	"ca_cond_generales",
	"ca_maitrise_fr",
	"ca_allegement",
	"ca_ouv_adultes",
}

// textKeys maps the "texts" keys of an item onto admission condition fields.
var textKeys = map[string]string{
	"introduction":                         "free",
	"personalized_access":                  "personalized_access",
	"admission_enrollment_procedures":      "admission_enrollment_procedures",
	"adults_taking_up_university_training": "adults_taking_up_university_training",
}

var textSections = map[string]bool{
	models.SectionNonUniversityBachelors:           true,
	models.SectionHoldersNonUniversitySecondDegree: true,
	models.SectionUniversityBachelors:              true,
	models.SectionHoldersSecondUniversityDegree:    true,
}

// Item is one education group in an admission export.
type Item struct {
	Year    int                        `json:"year"`
	Acronym string                     `json:"acronym"`
	Info    map[string]json.RawMessage `json:"info"`
}

// Line is an entry of an item's "diplomas" list. Type is "table" for an
// ordered condition line and "text" for a section text.
type Line struct {
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Section    string  `json:"section"`
	ExternalID string  `json:"external_id"`
	Diploma    string  `json:"diploma"`
	Conditions *string `json:"conditions"`
	Access     string  `json:"access"`
	Remarks    string  `json:"remarks"`
	Text       string  `json:"text"`
}

type textValue struct {
	Text       string `json:"text"`
	TextCommon string `json:"text-common"`
}

// Report summarises an import run.
type Report struct {
	Conditions      int
	Lines           int
	UnknownAcronyms []string
}

// Details renders the report for the audit trail.
func (r Report) Details() map[string]string {
	return map[string]string{
		"conditions":       fmt.Sprint(r.Conditions),
		"lines":            fmt.Sprint(r.Lines),
		"unknown_acronyms": strings.Join(r.UnknownAcronyms, ","),
	}
}

// Importer writes imported content through the catalogue stores.
type Importer struct {
	db         *mongo.Database
	log        *zap.Logger
	egys       *egystore.Store
	admissions *admissionstore.Store
	common     commonOffers
}

// New builds an Importer over db.
func New(db *mongo.Database, log *zap.Logger) *Importer {
	return &Importer{
		db:         db,
		log:        log,
		egys:       egystore.New(db),
		admissions: admissionstore.New(db),
		common: commonOffers{
			years:  academicyearstore.New(db),
			types:  grouptypestore.New(db),
			groups: educationgroupstore.New(db),
		},
	}
}

// setText stores value on ac when field is an admission condition field and
// reports whether it did.
func (im *Importer) setText(ac *models.AdmissionCondition, field, lang, value string) bool {
	if !models.IsAdmissionConditionField(field) {
		im.log.Debug("label without admission condition field dropped", zap.String("label", field))
		return false
	}
	ac.SetText(field, lang, htmlsanitize.ForStorage(value))
	return true
}

func checkLanguage(lang string) error {
	if lang != models.LangFR && lang != models.LangEN {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	return nil
}

// ImportAdmission loads an admission condition export written in lang. The
// "bacs" item fills the common bachelor year-version, created when missing;
// every other item is
// matched by acronym or partial acronym within its year. Items with an
// unknown acronym are reported and skipped. The whole load is one
// transaction: an unhandled key aborts it.
func (im *Importer) ImportAdmission(ctx context.Context, r io.Reader, lang string) (Report, error) {
	if err := checkLanguage(lang); err != nil {
		return Report{}, err
	}
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return Report{}, fmt.Errorf("decode admission export: %w", err)
	}

	var rep Report
	err := txn.Run(ctx, im.db, im.log, func(ctx context.Context) error {
		rep = Report{}
		for _, item := range items {
			var err error
			if item.Acronym == BachelorAcronym {
				err = im.importBachelor(ctx, item, lang)
			} else {
				err = im.importGeneric(ctx, item, lang, &rep)
			}
			if errors.Is(err, errSkipped) {
				continue
			}
			if err != nil {
				return fmt.Errorf("%s %d: %w", item.Acronym, item.Year, err)
			}
			rep.Conditions++
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return rep, nil
}

var errSkipped = errors.New("skipped")

func (im *Importer) importBachelor(ctx context.Context, item Item, lang string) error {
	egy, err := im.ensureCommonOffer(ctx, item.Year, BachelorAcronym)
	if err != nil {
		return fmt.Errorf("common bachelor: %w", err)
	}
	ac, err := im.admissions.GetOrCreate(ctx, egy.ID)
	if err != nil {
		return err
	}
	for _, field := range BachelorFields {
		raw, ok := item.Info[field]
		if !ok {
			continue
		}
		var v textValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode %s: %w", field, err)
		}
		im.setText(&ac, field, lang, v.TextCommon)
	}
	return im.admissions.Save(ctx, ac)
}

func (im *Importer) importGeneric(ctx context.Context, item Item, lang string, rep *Report) error {
	egy, err := im.egys.FindByAcronym(ctx, item.Year, item.Acronym)
	if errors.Is(err, catalogerr.ErrNotFound) {
		im.log.Warn("unknown acronym", zap.String("acronym", item.Acronym), zap.Int("year", item.Year))
		rep.UnknownAcronyms = append(rep.UnknownAcronyms, item.Acronym)
		return errSkipped
	}
	if err != nil {
		return err
	}
	ac, err := im.admissions.GetOrCreate(ctx, egy.ID)
	if err != nil {
		return err
	}

	var lines []Line
	if raw, ok := item.Info["diplomas"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &lines); err != nil {
			return fmt.Errorf("decode diplomas: %w", err)
		}
	}
	for _, l := range lines {
		switch l.Type {
		case "table":
			if err := im.saveLine(ctx, ac.ID, l, lang); err != nil {
				return err
			}
			rep.Lines++
		case "text":
			if !textSections[l.Section] {
				return fmt.Errorf("%w: %s", ErrUnhandledKey, l.Section)
			}
			im.setText(&ac, l.Section, lang, l.Text)
		}
	}

	var texts map[string]*textValue
	if raw, ok := item.Info["texts"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &texts); err != nil {
			return fmt.Errorf("decode texts: %w", err)
		}
	}
	for key, v := range texts {
		field, ok := textKeys[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnhandledKey, key)
		}
		if v == nil || v.Text == "" {
			continue
		}
		im.setText(&ac, field, lang, v.Text)
	}
	return im.admissions.Save(ctx, ac)
}

func (im *Importer) saveLine(ctx context.Context, condID primitive.ObjectID, l Line, lang string) error {
	rows := strings.Split(l.Diploma, "\n")
	for i := range rows {
		rows[i] = strings.TrimSpace(rows[i])
	}
	diploma := strings.Join(rows, "\n")
	conditions := ""
	if l.Conditions != nil {
		conditions = htmlsanitize.ForStorage(*l.Conditions)
	}
	remarks := htmlsanitize.ForStorage(l.Remarks)

	_, err := im.admissions.UpsertLineByExternalID(ctx, condID, l.Title, l.ExternalID, func(line *models.AdmissionConditionLine) {
		line.Access = l.Access
		if lang == models.LangEN {
			line.DiplomaEn, line.ConditionsEn, line.RemarksEn = diploma, conditions, remarks
			return
		}
		line.Diploma, line.Conditions, line.Remarks = diploma, conditions, remarks
	})
	return err
}

// ImportCommon loads the common texts of each offer type. The payload is a
// flat object holding "year" and keys "<offer type>.<label>"; offer type
// "9ce" is a certificate and lands on "common-ce".
func (im *Importer) ImportCommon(ctx context.Context, r io.Reader, lang string) (Report, error) {
	if err := checkLanguage(lang); err != nil {
		return Report{}, err
	}
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return Report{}, fmt.Errorf("decode common export: %w", err)
	}
	var year int
	if err := json.Unmarshal(payload["year"], &year); err != nil {
		return Report{}, fmt.Errorf("decode year: %w", err)
	}
	delete(payload, "year")

	var rep Report
	err := txn.Run(ctx, im.db, im.log, func(ctx context.Context) error {
		rep = Report{}
		touched := map[primitive.ObjectID]bool{}
		for key, raw := range payload {
			offerType, label, ok := strings.Cut(key, ".")
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnhandledKey, key)
			}
			if offerType == "9ce" {
				offerType = "ce"
			}
			field, err := commonField(label)
			if err != nil {
				return err
			}
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}

			egy, err := im.ensureCommonOffer(ctx, year, offerType)
			if err != nil {
				return err
			}
			ac, err := im.admissions.GetOrCreate(ctx, egy.ID)
			if err != nil {
				return err
			}
			if !im.setText(&ac, field, lang, value) {
				continue
			}
			if err := im.admissions.Save(ctx, ac); err != nil {
				return err
			}
			touched[egy.ID] = true
		}
		rep.Conditions = len(touched)
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return rep, nil
}

func commonField(label string) (string, error) {
	if label == "introduction" {
		return "standard", nil
	}
	for _, f := range CommonFields {
		if f == label {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnhandledKey, label)
}
