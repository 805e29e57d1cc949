package models

import "time"

// OTPRecord is a single-use numeric recovery code bound to an address. At most
// one record per address is active; generating a new code overwrites any prior
// unconsumed one.
type OTPRecord struct {
	Address   string    `json:"address"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the code can no longer be consumed.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
