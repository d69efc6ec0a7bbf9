// internal/domain/models/educationgrouptype.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Education group categories.
const (
	CategoryTraining     = "TRAINING"
	CategoryMiniTraining = "MINI_TRAINING"
	CategoryGroup        = "GROUP"
)

// Categories lists the valid categories in display order.
var Categories = []string{CategoryTraining, CategoryMiniTraining, CategoryGroup}

// Training type names.
const (
	TypeAgregation                     = "Agregation"
	TypeCertificateOfParticipation     = "Certificate of participation"
	TypeCertificateOfSuccess           = "Certificate of success"
	TypeCertificateOfHoldingCredits    = "Certificate of holding credits"
	TypeBachelor                       = "Bachelor"
	TypeCertificat                     = "Certificat"
	TypeCAPAES                         = "CAPAES"
	TypeResearchCertificat             = "Research certificat"
	TypeUniversityFirstCycleCertificat = "University first cycle certificat"
	TypeUniversitySecondCycleCertif    = "University second cycle certificat"
	TypeAccessContest                  = "Access contest"
	TypeLanguageClasses                = "Language classes"
	TypeIsolatedClasses                = "Isoldated classes"
	TypePHD                            = "PHD"
	TypeFormationPHD                   = "Formation PHD"
	TypeJuniorYear                     = "Junior year"
	TypeProgramMaster120               = "Program master 120"
	TypeMasterMA120                    = "Master MA 120"
	TypeMasterMD120                    = "Master MD 120"
	TypeMasterMS120                    = "Master MS 120"
	TypeProgramMaster180240            = "Program master 180-240"
	TypeMasterMA180240                 = "Master MA 180-240"
	TypeMasterMD180240                 = "Master MD 180-240"
	TypeMasterMS180240                 = "Master MS 180-240"
	TypeMasterM1                       = "Master in 60 credits"
	TypeMasterMC                       = "Master of specialist"
	TypeInternship                     = "Internship"
)

// Mini-training type names.
const (
	TypeDeepening                   = "Deepening"
	TypeSocietyMinor                = "Sociaty minor"
	TypeAccessMinor                 = "Access minor"
	TypeOpenMinor                   = "Open minor"
	TypeDisciplinaryComplementMinor = "Disciplinary complement minor"
	TypeFSASpeciality               = "FSA speciality"
	TypeOption                      = "Option"
	TypeMobilityPartnership         = "Mobility partnership"
)

// Group type names.
const (
	TypeCommonCore                    = "Common core"
	TypeMinorListChoice               = "Minor list choice"
	TypeMajorListChoice               = "Major list choice"
	TypeOptionListChoice              = "Option list choice"
	TypeFinality120ListChoice         = "Finality 120 list choice"
	TypeFinality180ListChoice         = "Finality 180 list choice"
	TypeMobilityPartnershipListChoice = "Mobility partnership list choice"
	TypeComplementaryModule           = "Complementary module"
	TypeSubGroup                      = "Sub group"
)

// TypeNamesByCategory is the catalogue of known type names per category.
var TypeNamesByCategory = map[string][]string{
	CategoryTraining: {
		TypeAgregation, TypeCertificateOfParticipation, TypeCertificateOfSuccess,
		TypeCertificateOfHoldingCredits, TypeBachelor, TypeCertificat, TypeCAPAES,
		TypeResearchCertificat, TypeUniversityFirstCycleCertificat, TypeUniversitySecondCycleCertif,
		TypeAccessContest, TypeLanguageClasses, TypeIsolatedClasses, TypePHD, TypeFormationPHD,
		TypeJuniorYear, TypeProgramMaster120, TypeMasterMA120, TypeMasterMD120, TypeMasterMS120,
		TypeProgramMaster180240, TypeMasterMA180240, TypeMasterMD180240, TypeMasterMS180240,
		TypeMasterM1, TypeMasterMC, TypeInternship,
	},
	CategoryMiniTraining: {
		TypeDeepening, TypeSocietyMinor, TypeAccessMinor, TypeOpenMinor,
		TypeDisciplinaryComplementMinor, TypeFSASpeciality, TypeOption, TypeMobilityPartnership,
	},
	CategoryGroup: {
		TypeCommonCore, TypeMinorListChoice, TypeMajorListChoice, TypeOptionListChoice,
		TypeFinality120ListChoice, TypeFinality180ListChoice, TypeMobilityPartnershipListChoice,
		TypeComplementaryModule, TypeSubGroup,
	},
}

// EducationGroupType classifies a year-version. (Category, Name) is unique.
type EducationGroupType struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Category string             `bson:"category" json:"category" validate:"required,oneof=TRAINING MINI_TRAINING GROUP"`
	Name     string             `bson:"name" json:"name" validate:"required,max=255"`
}

// IsFormation reports whether nodes of this type are the roots a learning
// unit is reported under: trainings and every mini-training but options.
func IsFormation(category, name string) bool {
	switch category {
	case CategoryTraining:
		return true
	case CategoryMiniTraining:
		return name != TypeOption
	}
	return false
}

// AuthorizedRelationship allows ChildTypeID to be attached under ParentTypeID.
type AuthorizedRelationship struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	ParentTypeID primitive.ObjectID `bson:"parent_type_id" json:"parent_type_id"`
	ChildTypeID  primitive.ObjectID `bson:"child_type_id" json:"child_type_id"`
}

// UnauthorizedRelationship overrides an authorized pair for a specific
// parent/child type combination.
type UnauthorizedRelationship struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	ParentTypeID primitive.ObjectID `bson:"parent_type_id" json:"parent_type_id"`
	ChildTypeID  primitive.ObjectID `bson:"child_type_id" json:"child_type_id"`
}
