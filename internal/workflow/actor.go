package workflow

// Role names that confer approval authority.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
)

// Actor is the identity performing a workflow operation, as surfaced by the
// authentication layer. The engine trusts it as-is.
type Actor struct {
	Username string
	Roles    []string
}

// HasApprovalAuthority reports whether the actor may commit changes directly,
// without a second approver. The rule is defined once here; callers and the
// engine both key off it.
func (a Actor) HasApprovalAuthority() bool {
	for _, role := range a.Roles {
		if role == RoleSuperAdmin || role == RoleAdmin {
			return true
		}
	}
	return false
}
