package auth

// Policy is a named, reusable allowed-role set. A single role and a list of
// roles are semantically identical; both normalize to a set here.
type Policy struct {
	name  string
	roles map[Role]bool
	order []Role
}

// NewPolicy creates a policy from one or more allowed roles.
func NewPolicy(name string, roles ...Role) Policy {
	p := Policy{
		name:  name,
		roles: make(map[Role]bool, len(roles)),
	}
	for _, r := range roles {
		if p.roles[r] {
			continue
		}
		p.roles[r] = true
		p.order = append(p.order, r)
	}
	return p
}

// Name returns the policy name.
func (p Policy) Name() string {
	return p.name
}

// Allows reports whether the raw role value is in the allowed set.
func (p Policy) Allows(role string) bool {
	return p.roles[Role(role)]
}

// RoleNames returns the allowed role names in definition order.
func (p Policy) RoleNames() []string {
	names := make([]string, len(p.order))
	for i, r := range p.order {
		names[i] = string(r)
	}
	return names
}

// Composable guard policies. All are plain allowed-role-set configurations
// over Authorize, not independent logic.
var (
	AdminOnly       = NewPolicy("admin_only", RoleAdmin)
	DoctorOnly      = NewPolicy("doctor_only", RoleDoctor)
	PatientOnly     = NewPolicy("patient_only", RolePatient)
	DoctorOrAdmin   = NewPolicy("doctor_or_admin", RoleDoctor, RoleAdmin)
	PatientOrDoctor = NewPolicy("patient_or_doctor", RolePatient, RoleDoctor)
)
