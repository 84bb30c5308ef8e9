package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

type DonationModelSuite struct {
	suite.Suite
	now time.Time
}

func TestDonationModelSuite(t *testing.T) {
	suite.Run(t, new(DonationModelSuite))
}

func (s *DonationModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *DonationModelSuite) TestNewDonation() {
	campaignID := id.NewCampaignID()
	donor := id.WalletAddress("0x1a2b3c4d5e6f70818293a4b5c6d7e8f901234567")

	s.Run("valid donation trims the tx hash", func() {
		d, err := NewDonation(id.NewDonationID(), campaignID, donor, 2_500, "  0xabc123  ", s.now)
		s.Require().NoError(err)
		s.Equal("0xabc123", d.TxHash)
		s.Equal(int64(2_500), d.Amount)
		s.Equal(s.now, d.RecordedAt)
	})

	s.Run("rejects zero campaign", func() {
		_, err := NewDonation(id.NewDonationID(), id.CampaignID{}, donor, 100, "0xabc", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects missing donor", func() {
		_, err := NewDonation(id.NewDonationID(), campaignID, "", 100, "0xabc", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects non-positive amounts", func() {
		for _, amount := range []int64{0, -50} {
			_, err := NewDonation(id.NewDonationID(), campaignID, donor, amount, "0xabc", s.now)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "amount %d", amount)
		}
	})

	s.Run("rejects blank tx hash", func() {
		_, err := NewDonation(id.NewDonationID(), campaignID, donor, 100, "   ", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
