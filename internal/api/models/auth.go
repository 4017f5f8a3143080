package models

// TokenRequest exchanges a provisioning secret for a staff access token.
// Staff identity is managed in the agency's HR system; this endpoint only
// mints API tokens for already-known staff ids.
type TokenRequest struct {
	StaffID string `json:"staffId"`
	Role    string `json:"role"`
	Secret  string `json:"secret"`
}

// TokenResponse carries a freshly minted access token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   Timestamp `json:"expiresAt"`
}
