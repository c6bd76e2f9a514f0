package model

// Role is an administrative role. Roles are fixed; there is no role
// management surface.
type Role string

const (
	// RoleEntry registers new students but cannot touch existing drafts.
	RoleEntry Role = "entry"
	// RoleEditor amends draft details but cannot create or finalize.
	RoleEditor Role = "editor"
	// RoleChief holds every permission, including finalization and full view.
	RoleChief Role = "chief"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEntry, RoleEditor, RoleChief:
		return true
	}
	return false
}

// Capability is the static permission set of a role, checked once at the
// lifecycle engine boundary.
type Capability struct {
	CreateDraft bool
	EditDraft   bool
	Finalize    bool
	ViewFull    bool

	// Field-level grants. Fields outside the grant are ignored on writes,
	// not rejected, so a permitted edit never fails on extra fields.
	SetBirthAndCGPAOnCreate bool
	EditName                bool
}

// capabilities maps each role to its permission set.
var capabilities = map[Role]Capability{
	RoleEntry: {
		CreateDraft: true,
	},
	RoleEditor: {
		EditDraft: true,
	},
	RoleChief: {
		CreateDraft:             true,
		EditDraft:               true,
		Finalize:                true,
		ViewFull:                true,
		SetBirthAndCGPAOnCreate: true,
		EditName:                true,
	},
}

// Can returns the capability set for the role. Unknown roles get the zero
// capability, which permits nothing.
func (r Role) Can() Capability {
	return capabilities[r]
}
