package domain

import "time"

type Account struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	Credential  string // argon2id PHC string, never the password itself
	Roles       RoleSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Registration carries the fields a caller supplies to create an account.
// Password is plaintext and only lives as long as the request.
type Registration struct {
	Username    string
	DisplayName string
	Email       string
	Password    string
}
