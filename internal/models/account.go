package models

import "time"

// Account is one saved credential. Secret fields hold ciphertext only.
type Account struct {
	ID                  string
	UserID              string
	PlatformName        string
	Username            string
	EncryptedPassword   *string
	EncryptedTOTPSecret *string
	Categories          []string
	EmailID             *string
	GroupID             *string
	Website             *string
	Description         *string
	Icon                *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasPassword reports whether a password is recorded.
func (a *Account) HasPassword() bool {
	return a.EncryptedPassword != nil
}

// HasTOTP reports whether a TOTP seed is recorded.
func (a *Account) HasTOTP() bool {
	return a.EncryptedTOTPSecret != nil
}

// AccountView is an account with its email and group references resolved
// into summaries.
type AccountView struct {
	Account
	EmailAddress *string
	GroupName    *string
}

// NewAccount is the input for creating an account.
type NewAccount struct {
	PlatformName string
	Username     string
	Password     string
	NoPassword   bool
	TOTPSecret   string
	Categories   []string
	EmailID      string
	NoEmail      bool
	GroupID      string
	Website      string
	Description  string
	Icon         string
}

// AccountUpdate is a partial update. Nil fields are left unchanged.
type AccountUpdate struct {
	PlatformName *string
	Username     *string
	Password     *string
	NoPassword   bool
	TOTPSecret   *string
	RemoveTOTP   bool
	Categories   []string
	EmailID      *string
	NoEmail      bool
	Website      *string
	Description  *string
	Icon         *string
	RemoveIcon   bool
}

// ImportRecord is one prepared import row. The password is already encrypted.
type ImportRecord struct {
	PlatformName      string
	Username          string
	EncryptedPassword *string
	Categories        []string
	EmailAddress      string
	GroupName         string
	GroupID           string
	Website           *string
	Description       *string
}
