package models

// DisclosureRequest asks the backend to decrypt one item password after
// re-authenticating with the account password. Build a fresh value per
// attempt and wipe AccountPassword afterwards.
type DisclosureRequest struct {
	ItemID          int64
	AccountEmail    string
	AccountPassword []byte
}

// Registration is the sign-up payload.
type Registration struct {
	Email       string
	Username    string
	PhoneNumber string
	Password    []byte
}

// PasswordReset completes the forgot-password flow with the token and user
// id taken from the emailed link.
type PasswordReset struct {
	Token       string
	UserID      string
	NewPassword []byte
}
