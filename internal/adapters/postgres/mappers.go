package postgres

import (
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

func toDomainAccount(m accountModel) domain.Account {
	return domain.Account{
		AccountID:      m.AccountID,
		Email:          m.Email,
		ReferralCode:   m.ReferralCode,
		ReferredBy:     m.ReferredBy,
		ReferralSource: m.ReferralSource,
		ReferredAt:     m.ReferredAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toDomainAttempt(m referralAttemptModel) domain.ReferralAttempt {
	out := domain.ReferralAttempt{
		AttemptID:         m.AttemptID,
		ReferrerID:        m.ReferrerID,
		ReferralCode:      m.ReferralCode,
		ReferredAccountID: m.ReferredAccountID,
		State:             m.State,
		Channel:           m.Channel,
		UserAgent:         m.UserAgent,
		CreatedAt:         m.CreatedAt,
		AttributedAt:      m.AttributedAt,
		ConvertedAt:       m.ConvertedAt,
	}
	if m.IPAddress != nil {
		out.IPAddress = *m.IPAddress
	}
	return out
}

func toAttemptModel(a domain.ReferralAttempt) referralAttemptModel {
	m := referralAttemptModel{
		AttemptID:         a.AttemptID,
		ReferrerID:        a.ReferrerID,
		ReferralCode:      a.ReferralCode,
		ReferredAccountID: a.ReferredAccountID,
		State:             a.State,
		Channel:           a.Channel,
		UserAgent:         a.UserAgent,
		CreatedAt:         a.CreatedAt,
		AttributedAt:      a.AttributedAt,
		ConvertedAt:       a.ConvertedAt,
	}
	if a.IPAddress != "" {
		ip := a.IPAddress
		m.IPAddress = &ip
	}
	return m
}

func toDomainTier(m tierConfigModel) domain.TierConfig {
	return domain.TierConfig{
		Tier:        m.Tier,
		Rate:        m.Rate,
		Active:      m.Active,
		Approval:    m.Approval,
		ActivatedBy: m.ActivatedBy,
		ActivatedAt: m.ActivatedAt,
		Notes:       m.Notes,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDomainTxn(m commissionTransactionModel) domain.CommissionTransaction {
	return domain.CommissionTransaction{
		TransactionID: m.TransactionID,
		BeneficiaryID: m.BeneficiaryID,
		BookingID:     m.BookingID,
		Tier:          m.Tier,
		Rate:          m.Rate,
		Amount:        m.Amount,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		AvailableAt:   m.AvailableAt,
		PaidOutAt:     m.PaidOutAt,
		BatchID:       m.BatchID,
		FailureReason: m.FailureReason,
	}
}

func toTxnModel(t domain.CommissionTransaction) commissionTransactionModel {
	return commissionTransactionModel{
		TransactionID: t.TransactionID,
		BeneficiaryID: t.BeneficiaryID,
		BookingID:     t.BookingID,
		Tier:          t.Tier,
		Rate:          t.Rate,
		Amount:        t.Amount,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
		AvailableAt:   t.AvailableAt,
		PaidOutAt:     t.PaidOutAt,
		BatchID:       t.BatchID,
		FailureReason: t.FailureReason,
	}
}

func toDomainBatch(m payoutBatchModel) domain.PayoutBatch {
	out := domain.PayoutBatch{
		BatchID:       m.BatchID,
		RunID:         m.RunID,
		BeneficiaryID: m.BeneficiaryID,
		Amount:        m.Amount,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		SettledAt:     m.SettledAt,
	}
	if m.ProviderRef != nil {
		out.ProviderRef = *m.ProviderRef
	}
	if m.FailureReason != nil {
		out.FailureReason = *m.FailureReason
	}
	return out
}

func toDomainPreference(m payoutPreferenceModel) domain.PayoutPreference {
	return domain.PayoutPreference{
		AccountID: m.AccountID,
		MinAmount: m.MinAmount,
		Cadence:   m.Cadence,
		OptedOut:  m.OptedOut,
		PayoutRef: m.PayoutRef,
		UpdatedAt: m.UpdatedAt,
	}
}

func toOutboxRecord(m referralOutboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       m.OutboxID,
		EventType:      m.EventType,
		PartitionKey:   m.PartitionKey,
		Payload:        []byte(m.Payload),
		RetryCount:     m.RetryCount,
		LastError:      m.LastError,
		CreatedAt:      m.CreatedAt,
		PublishedAt:    m.PublishedAt,
		LastErrorAt:    m.LastErrorAt,
		FirstSeenAt:    m.FirstSeenAt,
		ClaimToken:     m.ClaimToken,
		ClaimUntil:     m.ClaimUntil,
		DeadLetteredAt: m.DeadLetteredAt,
	}
}
