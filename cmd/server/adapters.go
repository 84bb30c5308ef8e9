package main

import (
	"context"

	campaignservice "medfund/internal/campaign/service"
	evidencemodels "medfund/internal/evidence/models"
	evidenceservice "medfund/internal/evidence/service"
	identityservice "medfund/internal/identity/service"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

// The adapters below bridge the consumer-side ports each service declares
// to the concrete services main constructs, keeping the feature packages
// free of each other's imports.

type identityDirectory struct {
	identity *identityservice.Service
}

func (d *identityDirectory) IsHospitalVerified(ctx context.Context, hospitalID id.HospitalID) (bool, error) {
	hospital, err := d.identity.GetHospital(ctx, hospitalID)
	if err != nil {
		return false, err
	}
	return hospital.IsVerified(), nil
}

func (d *identityDirectory) PatientExists(ctx context.Context, patientID id.PatientID) (bool, error) {
	if _, err := d.identity.GetPatient(ctx, patientID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type ownerRegistry struct {
	identity  *identityservice.Service
	campaigns *campaignservice.Service
}

func (r *ownerRegistry) HospitalExists(ctx context.Context, hospitalID id.HospitalID) (bool, error) {
	if _, err := r.identity.GetHospital(ctx, hospitalID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *ownerRegistry) PatientExists(ctx context.Context, patientID id.PatientID) (bool, error) {
	if _, err := r.identity.GetPatient(ctx, patientID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *ownerRegistry) CampaignExists(ctx context.Context, campaignID id.CampaignID) (bool, error) {
	return r.campaigns.CampaignExists(ctx, campaignID)
}

// hospitalEvidenceGate is bound to the evidence service after construction,
// since the evidence service itself consults the registry through its own
// port.
type hospitalEvidenceGate struct {
	evidence *evidenceservice.Service
}

func (g *hospitalEvidenceGate) HasHospitalVerification(ctx context.Context, hospitalID id.HospitalID) (bool, error) {
	if g.evidence == nil {
		return false, dErrors.New(dErrors.CodeUnavailable, "evidence service is not wired")
	}
	return g.evidence.HasHospitalVerification(ctx, hospitalID)
}

type campaignEvidenceGate struct {
	evidence *evidenceservice.Service
}

func (g *campaignEvidenceGate) HasCampaignEvidence(ctx context.Context, campaignID id.CampaignID) (bool, error) {
	if g.evidence == nil {
		return false, dErrors.New(dErrors.CodeUnavailable, "evidence service is not wired")
	}
	owner := evidencemodels.CampaignOwner(campaignID)
	for _, docType := range []evidencemodels.DocumentType{
		evidencemodels.TypeCampaignProof,
		evidencemodels.TypeMedicalReport,
	} {
		ok, err := g.evidence.HasEvidence(ctx, owner, docType)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type campaignCompleter struct {
	campaigns *campaignservice.Service
}

func (c *campaignCompleter) Complete(ctx context.Context, campaignID id.CampaignID) error {
	_, err := c.campaigns.Complete(ctx, campaignID)
	return err
}
