package contracts

// IssueLinkRequest asks for a signed attribution token.
type IssueLinkRequest struct {
	ReferrerID  string `json:"referrer_id,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// RecordClickRequest registers one referral link click.
type RecordClickRequest struct {
	ReferralCode string `json:"referral_code"`
	Channel      string `json:"channel,omitempty"`
}

// RegisterAccountRequest carries the account draft plus up to three
// attribution signals.
type RegisterAccountRequest struct {
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code,omitempty"`
	Token        string `json:"token,omitempty"`
	ManualCode   string `json:"manual_code,omitempty"`
}

// PaymentCompletedRequest is the payment service's completion notification.
type PaymentCompletedRequest struct {
	BookingID   string  `json:"booking_id"`
	PayeeID     string  `json:"payee_id"`
	BasePayable float64 `json:"base_payable"`
	ListingID   string  `json:"listing_id,omitempty"`
	OccurredAt  string  `json:"occurred_at,omitempty"`
}

// TierChangeRequest activates or deactivates one commission tier.
type TierChangeRequest struct {
	Notes string `json:"notes,omitempty"`
}

// SettlementRunRequest starts one batch settlement run.
type SettlementRunRequest struct {
	RunID string `json:"run_id"`
}

// PayoutPreferenceRequest updates a beneficiary's settlement gates.
type PayoutPreferenceRequest struct {
	MinAmount float64 `json:"min_amount"`
	Cadence   string  `json:"cadence,omitempty"`
	OptedOut  bool    `json:"opted_out"`
	PayoutRef string  `json:"payout_ref,omitempty"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
