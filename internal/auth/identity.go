// Package auth models the already-authenticated identity supplied by the
// upstream auth collaborator. The order core trusts this input; token
// verification happens before requests reach it.
package auth

import (
	"net/http"
	"strconv"
	"strings"
)

// Role enumerates back-office roles recognised by the order core.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// User is an acting back-office identity.
type User struct {
	ID         int64
	Role       Role
	BranchCode string
}

// CanActOn reports whether the user may operate on orders of the branch.
// Admins act anywhere; staff only on their assigned branch.
func (u User) CanActOn(branchCode string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleStaff:
		return u.BranchCode == branchCode
	default:
		return false
	}
}

// Header names populated by the authenticating gateway.
const (
	HeaderActorID     = "X-Actor-Id"
	HeaderActorRole   = "X-Actor-Role"
	HeaderActorBranch = "X-Actor-Branch"
)

// FromHeaders extracts the acting user from gateway-populated headers.
// Returns false when no identity is present.
func FromHeaders(h http.Header) (User, bool) {
	rawID := strings.TrimSpace(h.Get(HeaderActorID))
	role := Role(strings.TrimSpace(h.Get(HeaderActorRole)))
	if rawID == "" || (role != RoleAdmin && role != RoleStaff) {
		return User{}, false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return User{}, false
	}
	return User{
		ID:         id,
		Role:       role,
		BranchCode: strings.TrimSpace(h.Get(HeaderActorBranch)),
	}, true
}
