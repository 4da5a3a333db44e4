package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator" // may trigger dial sessions
	RoleViewer   = "viewer"   // read-only access to call records
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// Valid reports whether role is one this service issues.
func Valid(role string) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}
