package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

type HospitalModelSuite struct {
	suite.Suite
	now time.Time
}

func TestHospitalModelSuite(t *testing.T) {
	suite.Run(t, new(HospitalModelSuite))
}

func (s *HospitalModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *HospitalModelSuite) newHospital() *Hospital {
	h, err := NewHospital(id.NewHospitalID(), "St. Jude", "admin@stjude.example", "LIC-1001",
		id.WalletAddress("0x1a2b3c4d5e6f70818293a4b5c6d7e8f901234567"), s.now)
	s.Require().NoError(err)
	return h
}

func (s *HospitalModelSuite) TestNewHospital() {
	s.Run("starts pending with normalized fields", func() {
		h, err := NewHospital(id.NewHospitalID(), "  St. Jude  ", "Admin@StJude.Example ", " LIC-1001 ", "", s.now)
		s.Require().NoError(err)
		s.Equal(HospitalStatusPending, h.Status)
		s.Equal("St. Jude", h.Name)
		s.Equal("admin@stjude.example", h.Email)
		s.Equal("LIC-1001", h.LicenseNumber)
		s.Nil(h.DecidedAt)
	})

	s.Run("rejects empty name", func() {
		_, err := NewHospital(id.NewHospitalID(), "  ", "a@b.example", "LIC-1", "", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects malformed email", func() {
		_, err := NewHospital(id.NewHospitalID(), "St. Jude", "not-an-email", "LIC-1", "", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects empty license number", func() {
		_, err := NewHospital(id.NewHospitalID(), "St. Jude", "a@b.example", "", "", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *HospitalModelSuite) TestStatusGraph() {
	s.Run("pending can reach both terminals", func() {
		s.True(HospitalStatusPending.CanTransitionTo(HospitalStatusVerified))
		s.True(HospitalStatusPending.CanTransitionTo(HospitalStatusRejected))
	})

	s.Run("terminal statuses never move", func() {
		for _, from := range []HospitalStatus{HospitalStatusVerified, HospitalStatusRejected} {
			for _, to := range []HospitalStatus{HospitalStatusPending, HospitalStatusVerified, HospitalStatusRejected} {
				s.False(from.CanTransitionTo(to), "%s -> %s", from, to)
			}
		}
	})

	s.Run("terminality", func() {
		s.False(HospitalStatusPending.IsTerminal())
		s.True(HospitalStatusVerified.IsTerminal())
		s.True(HospitalStatusRejected.IsTerminal())
	})
}

func (s *HospitalModelSuite) TestCanDecide() {
	s.Run("pending accepts either decision", func() {
		h := s.newHospital()
		s.NoError(h.CanDecide(DecisionVerify))
		s.NoError(h.CanDecide(DecisionReject))
	})

	s.Run("repeat of the applied decision is allowed", func() {
		h := s.newHospital()
		h.ApplyDecision(DecisionVerify, s.now)
		s.NoError(h.CanDecide(DecisionVerify))
	})

	s.Run("conflicting decision is invalid state", func() {
		h := s.newHospital()
		h.ApplyDecision(DecisionReject, s.now)
		err := h.CanDecide(DecisionVerify)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *HospitalModelSuite) TestApplyDecision() {
	s.Run("verify records status and decision time", func() {
		h := s.newHospital()
		decidedAt := s.now.Add(time.Hour)
		h.ApplyDecision(DecisionVerify, decidedAt)
		s.Equal(HospitalStatusVerified, h.Status)
		s.True(h.IsVerified())
		s.Require().NotNil(h.DecidedAt)
		s.Equal(decidedAt, *h.DecidedAt)
		s.Equal(decidedAt, h.UpdatedAt)
	})

	s.Run("reject is not verified", func() {
		h := s.newHospital()
		h.ApplyDecision(DecisionReject, s.now)
		s.Equal(HospitalStatusRejected, h.Status)
		s.False(h.IsVerified())
	})
}

func (s *HospitalModelSuite) TestParsers() {
	s.Run("parse known statuses", func() {
		for _, raw := range []string{"PENDING", "VERIFIED", "REJECTED"} {
			status, err := ParseHospitalStatus(raw)
			s.Require().NoError(err)
			s.Equal(HospitalStatus(raw), status)
		}
	})

	s.Run("reject unknown status", func() {
		_, err := ParseHospitalStatus("verified")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("parse decisions and their targets", func() {
		verify, err := ParseDecision("VERIFY")
		s.Require().NoError(err)
		s.Equal(HospitalStatusVerified, verify.TargetStatus())

		reject, err := ParseDecision("REJECT")
		s.Require().NoError(err)
		s.Equal(HospitalStatusRejected, reject.TargetStatus())

		_, err = ParseDecision("approve")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
