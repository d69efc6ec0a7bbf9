package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	academicyearstore "github.com/dalemusser/catalog/internal/app/store/academicyears"
	educationgroupstore "github.com/dalemusser/catalog/internal/app/store/educationgroups"
	grouptypestore "github.com/dalemusser/catalog/internal/app/store/grouptypes"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.uber.org/zap"
)

// commonOfferTypes maps an offer code onto the training type of its common
// year-version.
var commonOfferTypes = map[string]string{
	"2a":   models.TypeAgregation,
	"8fc":  models.TypeCertificateOfParticipation,
	"7fc":  models.TypeCertificateOfSuccess,
	"9fc":  models.TypeCertificateOfHoldingCredits,
	"1ba":  models.TypeBachelor,
	"bacs": models.TypeBachelor,
	"ce":   models.TypeCertificat,
	"2ce":  models.TypeCAPAES,
	"3ce":  models.TypeResearchCertificat,
	"1fc":  models.TypeUniversityFirstCycleCertificat,
	"2fc":  models.TypeUniversitySecondCycleCertif,
	"2m":   models.TypeProgramMaster120,
	"2m1":  models.TypeMasterM1,
	"2mc":  models.TypeMasterMC,
	"st":   models.TypeInternship,
}

// CommonAcronym returns the acronym of the common year-version of an offer
// type ("common-2m").
func CommonAcronym(offerType string) string {
	return "common-" + strings.ToLower(offerType)
}

type commonOffers struct {
	years  *academicyearstore.Store
	types  *grouptypestore.Store
	groups *educationgroupstore.Store
}

// ensureCommonOffer returns the common year-version of offerType in year,
// creating its education group and version when missing. The title is the
// acronym and the type is the training type of the offer. An existing
// version gets its title and type realigned. Offer codes outside
// commonOfferTypes are only looked up.
func (im *Importer) ensureCommonOffer(ctx context.Context, year int, offerType string) (models.EducationGroupYear, error) {
	acronym := CommonAcronym(offerType)
	typeName, known := commonOfferTypes[strings.ToLower(offerType)]

	egy, err := im.egys.FindByAcronym(ctx, year, acronym)
	if err != nil && !errors.Is(err, catalogerr.ErrNotFound) {
		return models.EducationGroupYear{}, err
	}
	if !known {
		if err != nil {
			return models.EducationGroupYear{}, fmt.Errorf("%s: %w", acronym, err)
		}
		return egy, nil
	}

	gt, err2 := im.common.types.GetByCategoryName(ctx, models.CategoryTraining, typeName)
	if errors.Is(err2, catalogerr.ErrNotFound) {
		gt, err2 = im.common.types.Create(ctx, models.EducationGroupType{Category: models.CategoryTraining, Name: typeName})
	}
	if err2 != nil {
		return models.EducationGroupYear{}, fmt.Errorf("type %s: %w", typeName, err2)
	}

	if err == nil {
		egy.Title, egy.TitleEnglish = acronym, acronym
		egy.EducationGroupTypeID, egy.Category, egy.TypeName = gt.ID, gt.Category, gt.Name
		return im.egys.Update(ctx, egy)
	}

	ay, err := im.common.years.GetByYear(ctx, year)
	if err != nil {
		return models.EducationGroupYear{}, fmt.Errorf("academic year %d: %w", year, err)
	}
	end := year
	g, err := im.common.groups.Create(ctx, models.EducationGroup{StartYear: year, EndYear: &end})
	if err != nil {
		return models.EducationGroupYear{}, err
	}
	egy, err = im.egys.Create(ctx, models.EducationGroupYear{
		EducationGroupID:     g.ID,
		AcademicYearID:       ay.ID,
		AcademicYear:         year,
		Acronym:              acronym,
		Title:                acronym,
		TitleEnglish:         acronym,
		EducationGroupTypeID: gt.ID,
		Category:             gt.Category,
		TypeName:             gt.Name,
	})
	if err != nil {
		return models.EducationGroupYear{}, err
	}
	im.log.Info("common offer created", zap.String("acronym", acronym), zap.Int("year", year))
	return egy, nil
}
