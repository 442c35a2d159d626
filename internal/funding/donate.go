package funding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"server/internal/adapter/cache"
	"server/internal/domain"
)

// DonateResult reports the state after a successful donation.
type DonateResult struct {
	Donation       *domain.Donation
	NewBalance     decimal.Decimal
	CampaignRaised decimal.Decimal
	CampaignStatus domain.CampaignStatus
}

// Donate executes the donation unit of work: increment the campaign's raised
// amount in place, recompute its status, debit the donor, and record the
// donation. All writes share one transaction; any failure rolls the whole
// unit back, so no partial state is ever persisted.
//
// The donor's balance is pre-checked for an early error, then checked again
// by the conditional debit inside the transaction. The second check is what
// guarantees correctness when two donations race on the same donor.
func (s *Service) Donate(ctx context.Context, donorID, campaignID string, amount decimal.Decimal) (*DonateResult, error) {
	if amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	donor, err := s.users.GetByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if donor.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientFunds
	}
	if _, err := s.campaigns.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}

	var result DonateResult
	var ownerID string
	err = s.store.WithinTx(ctx, func(tx domain.FundingTx) error {
		campaign, err := tx.IncrementRaised(ctx, campaignID, amount)
		if err != nil {
			return err
		}
		ownerID = campaign.OwnerID

		if next := campaign.NextStatus(s.now()); next != campaign.Status {
			if err := tx.SetStatus(ctx, campaignID, next); err != nil {
				return fmt.Errorf("set status: %w", err)
			}
			campaign.Status = next
		}

		balance, err := tx.DebitBalance(ctx, donorID, amount)
		if err != nil {
			return err
		}

		donation := &domain.Donation{
			ID:         uuid.NewString(),
			DonorID:    donorID,
			CampaignID: campaignID,
			Amount:     amount,
			CreatedAt:  s.now(),
		}
		if err := tx.InsertDonation(ctx, donation); err != nil {
			return fmt.Errorf("insert donation: %w", err)
		}

		result = DonateResult{
			Donation:       donation,
			NewBalance:     balance,
			CampaignRaised: campaign.RaisedAmount,
			CampaignStatus: campaign.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// the owner's views show the raised amount, so they go stale too
	s.invalidate(ctx,
		cache.KeyCampaignList(donorID),
		cache.KeyDonationList(donorID),
		cache.KeyCampaignList(ownerID),
		cache.KeyMyCampaigns(ownerID),
	)
	s.logger.Info().
		Str("donation_id", result.Donation.ID).
		Str("campaign_id", campaignID).
		Str("donor_id", donorID).
		Str("amount", amount.StringFixed(2)).
		Msg("donation completed")
	return &result, nil
}
