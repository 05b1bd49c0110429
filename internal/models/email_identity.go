package models

import "time"

type EmailIdentity struct {
	ID              string
	UserID          string
	Email           string
	Name            *string
	PhoneNumber     *string
	IsVerified      bool
	Is2FAEnabled    bool
	RecoveryEmailID *string
	CreatedAt       time.Time
}

// EmailIdentityView adds the recovery address and linked account count.
type EmailIdentityView struct {
	EmailIdentity
	RecoveryEmail *string
	AccountCount  int
}
