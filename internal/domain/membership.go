package domain

// Membership is the paywall entitlement, fetched and cached independently of
// the session token because it changes on a different cadence (payment events)
// and must not force a token rotation.
type Membership struct {
	IsActive      bool    `json:"isActive"`
	StartDate     *string `json:"startDate"`
	ExpiryDate    *string `json:"expiryDate"`
	DaysRemaining *int    `json:"daysRemaining"`
	Plan          *string `json:"plan"`
}

// InactiveMembership is the conservative default cached after a failed
// entitlement fetch: err toward showing paywalls rather than granting access.
func InactiveMembership() Membership {
	return Membership{IsActive: false}
}
