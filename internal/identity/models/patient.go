package models

import (
	"strings"
	"time"

	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

// Patient is an identity a campaign is raised for. Patients carry no
// verification status of their own; they are trusted by association with
// the campaigns a verified hospital approves.
type Patient struct {
	ID        id.PatientID     `json:"id"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Email     string           `json:"email,omitempty"`
	Wallet    id.WalletAddress `json:"wallet_address,omitempty"`
	// HospitalID is the registering hospital, when the patient was enrolled
	// through one. Optional.
	HospitalID id.HospitalID `json:"hospital_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

func NewPatient(patientID id.PatientID, firstName, lastName, email string, wallet id.WalletAddress, hospitalID id.HospitalID, now time.Time) (*Patient, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.ToLower(strings.TrimSpace(email))
	if firstName == "" || lastName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient first and last name cannot be empty")
	}
	if email != "" && !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient email must be a valid address when present")
	}
	return &Patient{
		ID:         patientID,
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
		Wallet:     wallet,
		HospitalID: hospitalID,
		CreatedAt:  now,
	}, nil
}
