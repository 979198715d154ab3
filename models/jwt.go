package models

// APIClaims are the claims carried by bearer tokens accepted in serve mode.
type APIClaims struct {
	Issuer    string `json:"iss"` // optional
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`

	// ReadOnly tokens may list files and watch progress but not mutate state.
	ReadOnly bool `json:"ro,omitempty"`
}
