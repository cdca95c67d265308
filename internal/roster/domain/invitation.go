package domain

import "time"

// Invitation is a single-use code that pre-authorizes a set of roles for the
// next account created from it. Used only ever moves from false to true.
type Invitation struct {
	Code      string
	Roles     RoleSet
	Used      bool
	CreatedBy string // username of the issuing admin, empty for system codes
	UsedBy    string // username created from the code, empty while unused
	CreatedAt time.Time
	UsedAt    *time.Time
}
