package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanActOn(t *testing.T) {
	admin := User{ID: 1, Role: RoleAdmin}
	assert.True(t, admin.CanActOn("RES"))
	assert.True(t, admin.CanActOn("COR1"))

	staff := User{ID: 2, Role: RoleStaff, BranchCode: "RES"}
	assert.True(t, staff.CanActOn("RES"))
	assert.False(t, staff.CanActOn("COR1"))

	anonymous := User{}
	assert.False(t, anonymous.CanActOn("RES"))
}

func TestFromHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set(HeaderActorID, "7")
	headers.Set(HeaderActorRole, "staff")
	headers.Set(HeaderActorBranch, "COR1")

	user, ok := FromHeaders(headers)
	require.True(t, ok)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, RoleStaff, user.Role)
	assert.Equal(t, "COR1", user.BranchCode)
}

func TestFromHeadersMissingOrInvalid(t *testing.T) {
	_, ok := FromHeaders(http.Header{})
	assert.False(t, ok)

	headers := http.Header{}
	headers.Set(HeaderActorID, "not-a-number")
	headers.Set(HeaderActorRole, "staff")
	_, ok = FromHeaders(headers)
	assert.False(t, ok)

	headers = http.Header{}
	headers.Set(HeaderActorID, "7")
	headers.Set(HeaderActorRole, "owner")
	_, ok = FromHeaders(headers)
	assert.False(t, ok)
}
