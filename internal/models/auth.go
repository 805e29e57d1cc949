package models

// OriginChange is the non-blocking advisory attached to a successful login
// when the request origin differs from the last successful one.
type OriginChange struct {
	PreviousIP        string `json:"previous_ip"`
	PreviousUserAgent string `json:"previous_user_agent"`
}

// SessionGrant is the successful login result. Token minting itself is
// delegated to the token issuer; the grant carries the minted pair plus the
// account's stable identity fields.
type SessionGrant struct {
	AccessToken  string
	RefreshToken string
	AccountID    string
	Email        string
	Username     string

	// OriginAdvisory is set when the login came from a new IP or user agent.
	// Its absence is never a correctness failure: the origin check is
	// best-effort and runs under a short budget.
	OriginAdvisory *OriginChange
}
