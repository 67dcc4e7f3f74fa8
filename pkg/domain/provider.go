package domain

import "time"

// VerificationStatus tracks a provider's onboarding review.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "UNVERIFIED"
	VerificationPending    VerificationStatus = "PENDING"
	VerificationVerified   VerificationStatus = "VERIFIED"
	VerificationRejected   VerificationStatus = "REJECTED"
)

// ProviderProfile is the provider-side profile created during verification.
type ProviderProfile struct {
	ID                 string             `json:"id,omitempty"`
	UserID             string             `json:"userId,omitempty"`
	Bio                string             `json:"bio,omitempty"`
	Areas              []string           `json:"areas,omitempty"`
	Services           []string           `json:"services,omitempty"`
	NationalID         string             `json:"nationalId,omitempty"`
	DocumentURL        string             `json:"documentUrl,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	ReviewNote         string             `json:"reviewNote,omitempty"`
	UpdatedAt          time.Time          `json:"updatedAt,omitzero"`
}

// EmptyProviderProfile is the default shown before a provider has onboarded.
func EmptyProviderProfile() *ProviderProfile {
	return &ProviderProfile{VerificationStatus: VerificationUnverified}
}

// CanSubmitVerification reports whether a new verification request may be filed.
func (p *ProviderProfile) CanSubmitVerification() bool {
	if p == nil {
		return true
	}
	return p.VerificationStatus == VerificationUnverified || p.VerificationStatus == VerificationRejected
}
