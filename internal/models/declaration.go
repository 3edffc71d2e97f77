package models

import (
	"time"

	"github.com/google/uuid"
)

type ValidationStatus string

const (
	StatusPending   ValidationStatus = "pending"
	StatusValidated ValidationStatus = "validated"
	StatusRejected  ValidationStatus = "rejected"
)

// Terminal reports whether s is a decision a municipality can record.
func (s ValidationStatus) Terminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// Normalize folds empty and unknown values into pending.
func (s ValidationStatus) Normalize() ValidationStatus {
	switch s {
	case StatusValidated, StatusRejected:
		return s
	}
	return StatusPending
}

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Parent is embedded in declarations and stored as a JSONB document.
type Parent struct {
	FamilyName       string `json:"familyName"`
	GivenName        string `json:"givenName"`
	PhoneNumber      string `json:"phoneNumber"`
	Email            string `json:"email,omitempty"`
	NationalIDNumber string `json:"nationalIdNumber"`
}

func (p *Parent) ContactEmail() string {
	if p == nil {
		return ""
	}
	return p.Email
}

// BirthDeclaration is a hospital's pre-declaration of a birth.
// HospitalName and HospitalEmail are copied from the submitting account when the
// record is created and are never rewritten, so later account renames leave
// historical declarations untouched.
type BirthDeclaration struct {
	ID                        uuid.UUID        `json:"id" db:"id"`
	ChildGivenName            string           `json:"childGivenName" db:"child_given_name"`
	ChildFamilyName           string           `json:"childFamilyName" db:"child_family_name"`
	Sex                       Sex              `json:"sex" db:"sex"`
	BirthDate                 time.Time        `json:"birthDate" db:"birth_date"`
	BirthPlace                string           `json:"birthPlace" db:"birth_place"`
	BirthTime                 string           `json:"birthTime" db:"birth_time"`
	Father                    Parent           `json:"father" db:"father"`
	Mother                    Parent           `json:"mother" db:"mother"`
	DestinationMunicipalityID uuid.UUID        `json:"destinationMunicipalityId" db:"destination_municipality_id"`
	SubmittingHospitalID      uuid.UUID        `json:"submittingHospitalId" db:"submitting_hospital_id"`
	HospitalName              string           `json:"hospitalName" db:"hospital_name"`
	HospitalEmail             string           `json:"hospitalEmail" db:"hospital_email"`
	ValidationStatus          ValidationStatus `json:"validationStatus" db:"validation_status"`
	ValidationComment         *string          `json:"validationComment,omitempty" db:"validation_comment"`
	ValidationDate            *time.Time       `json:"validationDate,omitempty" db:"validation_date"`
	CreatedAt                 time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt                 time.Time        `json:"updatedAt" db:"updated_at"`
}

// ParentEmail is the notification address for a declaration: father first, then mother.
func (b *BirthDeclaration) ParentEmail() string {
	if e := b.Father.ContactEmail(); e != "" {
		return e
	}
	return b.Mother.ContactEmail()
}

type DeathDeclaration struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Father               *Parent   `json:"father,omitempty" db:"father"`
	Mother               *Parent   `json:"mother,omitempty" db:"mother"`
	CauseOfDeath         string    `json:"causeOfDeath" db:"cause_of_death"`
	SubmittingHospitalID uuid.UUID `json:"submittingHospitalId" db:"submitting_hospital_id"`
	HospitalName         string    `json:"hospitalName" db:"hospital_name"`
	HospitalEmail        string    `json:"hospitalEmail" db:"hospital_email"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time `json:"updatedAt" db:"updated_at"`
}

func (d *DeathDeclaration) ParentEmail() string {
	if e := d.Father.ContactEmail(); e != "" {
		return e
	}
	return d.Mother.ContactEmail()
}

// BirthDeclarationView is a birth declaration with its account references resolved.
type BirthDeclarationView struct {
	*BirthDeclaration
	DestinationMunicipality *UserRef `json:"destinationMunicipality,omitempty"`
	SubmittingHospital      *UserRef `json:"submittingHospital,omitempty"`
}

type DeathDeclarationView struct {
	*DeathDeclaration
	SubmittingHospital *UserRef `json:"submittingHospital,omitempty"`
}

// DeclarationBundle groups both declaration kinds for combined listings.
type DeclarationBundle struct {
	Births []*BirthDeclarationView `json:"births"`
	Deaths []*DeathDeclarationView `json:"deaths"`
}
