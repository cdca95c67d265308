package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownRole is returned when a role name is not one of the fixed roles.
var ErrUnknownRole = errors.New("unknown role")

// Role is one of the fixed set of roles an account can hold.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStudent    Role = "student"
	RoleReviewer   Role = "reviewer"
	RoleInstructor Role = "instructor"
	RoleStaff      Role = "staff"
)

// AllRoles lists every role in canonical order.
var AllRoles = []Role{RoleAdmin, RoleStudent, RoleReviewer, RoleInstructor, RoleStaff}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of AllRoles.
func (r Role) Valid() bool { return slices.Contains(AllRoles, r) }

func (r Role) rank() int { return slices.Index(AllRoles, r) }

// ParseRole trims and lower-cases s and checks it names a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// RoleSet is a de-duplicated set of roles kept in canonical order so two sets
// with the same members always serialize the same way.
type RoleSet []Role

// NewRoleSet builds a set from roles, dropping duplicates. Unknown roles are
// kept so Validate can report them.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, 0, len(roles))
	for _, r := range roles {
		if !slices.Contains(set, r) {
			set = append(set, r)
		}
	}
	slices.SortStableFunc(set, func(a, b Role) int { return a.rank() - b.rank() })
	return set
}

// ParseRoleSet splits the stored comma-joined form. Order and duplicates in the
// input do not matter; blank entries are ignored.
func ParseRoleSet(s string) (RoleSet, error) {
	var roles []Role
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := ParseRole(part)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return NewRoleSet(roles...), nil
}

// ParseRoleList parses role names supplied individually (e.g. from flags).
func ParseRoleList(names []string) (RoleSet, error) {
	return ParseRoleSet(strings.Join(names, ","))
}

// Validate checks every member is a known role.
func (s RoleSet) Validate() error {
	for _, r := range s {
		if !r.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
		}
	}
	return nil
}

func (s RoleSet) Has(r Role) bool { return slices.Contains(s, r) }

func (s RoleSet) Empty() bool { return len(s) == 0 }

// With returns a copy of s that also contains r.
func (s RoleSet) With(r Role) RoleSet {
	return NewRoleSet(append(slices.Clone(s), r)...)
}

// Without returns a copy of s with r removed.
func (s RoleSet) Without(r Role) RoleSet {
	out := make(RoleSet, 0, len(s))
	for _, have := range s {
		if have != r {
			out = append(out, have)
		}
	}
	return out
}

// Equal reports whether both sets hold the same roles.
func (s RoleSet) Equal(other RoleSet) bool {
	return slices.Equal(NewRoleSet(s...), NewRoleSet(other...))
}

// String returns the comma-joined storage form, e.g. "admin,instructor".
func (s RoleSet) String() string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}
