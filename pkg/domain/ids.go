package domain

import (
	"github.com/google/uuid"

	dErrors "medfund/pkg/domain-errors"
)

// Typed UUID wrappers for entity identifiers. The distinct types make it a
// compile error to pass a PatientID where a HospitalID is expected.
type (
	HospitalID uuid.UUID
	PatientID  uuid.UUID
	CampaignID uuid.UUID
	DonationID uuid.UUID
	DocumentID uuid.UUID
)

func (id HospitalID) String() string { return uuid.UUID(id).String() }
func (id PatientID) String() string  { return uuid.UUID(id).String() }
func (id CampaignID) String() string { return uuid.UUID(id).String() }
func (id DonationID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id HospitalID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id PatientID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CampaignID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func NewHospitalID() HospitalID { return HospitalID(uuid.New()) }
func NewPatientID() PatientID   { return PatientID(uuid.New()) }
func NewCampaignID() CampaignID { return CampaignID(uuid.New()) }
func NewDonationID() DonationID { return DonationID(uuid.New()) }
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
// Used at trust boundaries (HTTP params, stored strings).
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseHospitalID(raw string) (HospitalID, error) {
	parsed, err := parseUUID(raw, "hospital")
	return HospitalID(parsed), err
}

func ParsePatientID(raw string) (PatientID, error) {
	parsed, err := parseUUID(raw, "patient")
	return PatientID(parsed), err
}

func ParseCampaignID(raw string) (CampaignID, error) {
	parsed, err := parseUUID(raw, "campaign")
	return CampaignID(parsed), err
}

func ParseDonationID(raw string) (DonationID, error) {
	parsed, err := parseUUID(raw, "donation")
	return DonationID(parsed), err
}

func ParseDocumentID(raw string) (DocumentID, error) {
	parsed, err := parseUUID(raw, "document")
	return DocumentID(parsed), err
}
