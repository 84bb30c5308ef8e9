package models

import (
	"time"

	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

// DocumentType classifies a piece of evidence. Closed set; unknown values
// are rejected at every boundary.
type DocumentType string

const (
	TypeHospitalVerification DocumentType = "HOSPITAL_VERIFICATION"
	TypePatientID            DocumentType = "PATIENT_ID"
	TypeMedicalBill          DocumentType = "MEDICAL_BILL"
	TypeMedicalReport        DocumentType = "MEDICAL_REPORT"
	TypeCampaignProof        DocumentType = "CAMPAIGN_PROOF"
)

// ParseDocumentType validates a raw document type at trust boundaries.
func ParseDocumentType(raw string) (DocumentType, error) {
	switch DocumentType(raw) {
	case TypeHospitalVerification, TypePatientID, TypeMedicalBill, TypeMedicalReport, TypeCampaignProof:
		return DocumentType(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown document type %q", raw)
	}
}

// OwnerKind tags which entity a document belongs to.
type OwnerKind string

const (
	OwnerHospital OwnerKind = "hospital"
	OwnerPatient  OwnerKind = "patient"
	OwnerCampaign OwnerKind = "campaign"
)

// OwnerRef is a tagged owner reference: exactly one of the ID fields is set,
// selected by Kind. The constructors below are the only way invariant-holding
// values are produced, which removes the representable-but-invalid states of
// zero or multiple owners that nullable foreign keys would allow.
type OwnerRef struct {
	Kind       OwnerKind
	HospitalID id.HospitalID
	PatientID  id.PatientID
	CampaignID id.CampaignID
}

func HospitalOwner(hospitalID id.HospitalID) OwnerRef {
	return OwnerRef{Kind: OwnerHospital, HospitalID: hospitalID}
}

func PatientOwner(patientID id.PatientID) OwnerRef {
	return OwnerRef{Kind: OwnerPatient, PatientID: patientID}
}

func CampaignOwner(campaignID id.CampaignID) OwnerRef {
	return OwnerRef{Kind: OwnerCampaign, CampaignID: campaignID}
}

// Validate checks the exactly-one-owner invariant, for values that crossed a
// trust boundary instead of coming from a constructor.
func (o OwnerRef) Validate() error {
	switch o.Kind {
	case OwnerHospital:
		if o.HospitalID.IsZero() || !o.PatientID.IsZero() || !o.CampaignID.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "hospital owner ref must carry exactly a hospital id")
		}
	case OwnerPatient:
		if o.PatientID.IsZero() || !o.HospitalID.IsZero() || !o.CampaignID.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "patient owner ref must carry exactly a patient id")
		}
	case OwnerCampaign:
		if o.CampaignID.IsZero() || !o.HospitalID.IsZero() || !o.PatientID.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "campaign owner ref must carry exactly a campaign id")
		}
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown owner kind %q", o.Kind)
	}
	return nil
}

// Key is a stable map/index key for the owner.
func (o OwnerRef) Key() string {
	switch o.Kind {
	case OwnerHospital:
		return string(o.Kind) + ":" + o.HospitalID.String()
	case OwnerPatient:
		return string(o.Kind) + ":" + o.PatientID.String()
	case OwnerCampaign:
		return string(o.Kind) + ":" + o.CampaignID.String()
	default:
		return string(o.Kind) + ":invalid"
	}
}

// allowedTypes is the closed owner-kind/document-type compatibility table.
var allowedTypes = map[OwnerKind]map[DocumentType]bool{
	OwnerHospital: {
		TypeHospitalVerification: true,
	},
	OwnerPatient: {
		TypePatientID:     true,
		TypeMedicalBill:   true,
		TypeMedicalReport: true,
	},
	OwnerCampaign: {
		TypeCampaignProof: true,
		TypeMedicalReport: true,
		TypeMedicalBill:   true,
	},
}

// TypeAllowedFor reports whether a document type may be attached to the
// given owner kind.
func TypeAllowedFor(kind OwnerKind, docType DocumentType) bool {
	return allowedTypes[kind][docType]
}

// Document is an append-only evidence record: an opaque pointer to
// externally stored bytes, classified by purpose and bound to exactly one
// owner. Documents are never mutated or deleted, so a verification decision
// can always be traced to the exact evidence reviewed.
type Document struct {
	ID         id.DocumentID `json:"id"`
	Owner      OwnerRef      `json:"owner"`
	Type       DocumentType  `json:"type"`
	StorageRef string        `json:"storage_ref"`
	AttachedAt time.Time     `json:"attached_at"`
}
