package domain

import "time"

// OTPRecord is the single live passcode for a subject. Only the bcrypt hash
// of the code is kept.
type OTPRecord struct {
	Subject   string
	CodeHash  []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type OTPStats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Expired int `json:"expired"`
}
