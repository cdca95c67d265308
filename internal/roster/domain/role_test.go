package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoleSet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want RoleSet
	}{
		{"single", "admin", RoleSet{RoleAdmin}},
		{"order does not matter", "staff,admin,student", RoleSet{RoleAdmin, RoleStudent, RoleStaff}},
		{"duplicates collapse", "reviewer,reviewer", RoleSet{RoleReviewer}},
		{"blank entries ignored", ",instructor,,", RoleSet{RoleInstructor}},
		{"whitespace and case", " Admin , STAFF", RoleSet{RoleAdmin, RoleStaff}},
		{"empty", "", RoleSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoleSet(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoleSet_Unknown(t *testing.T) {
	_, err := ParseRoleSet("admin,janitor")
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoleSet_StringRoundTrip(t *testing.T) {
	set := NewRoleSet(RoleInstructor, RoleAdmin, RoleReviewer)
	require.Equal(t, "admin,reviewer,instructor", set.String())

	parsed, err := ParseRoleSet(set.String())
	require.NoError(t, err)
	require.True(t, parsed.Equal(set))
}

func TestRoleSet_WithWithout(t *testing.T) {
	set := NewRoleSet(RoleStudent)

	added := set.With(RoleAdmin)
	require.Equal(t, RoleSet{RoleAdmin, RoleStudent}, added)
	require.Equal(t, RoleSet{RoleStudent}, set, "With must not mutate the receiver")

	require.Equal(t, added, added.With(RoleAdmin), "adding a held role is a no-op")

	removed := added.Without(RoleStudent)
	require.Equal(t, RoleSet{RoleAdmin}, removed)
	require.True(t, removed.Without(RoleAdmin).Empty())
	require.Equal(t, removed, removed.Without(RoleStaff))
}

func TestRoleSet_Validate(t *testing.T) {
	require.NoError(t, NewRoleSet(AllRoles...).Validate())
	require.ErrorIs(t, RoleSet{"root"}.Validate(), ErrUnknownRole)
}
