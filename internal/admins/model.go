package admins

import (
	"time"

	"github.com/jakaria-jihad/certchain/internal/registrar/model"
)

// Admin is an administrative account stored in the admins collection.
// Accounts are provisioned with the seed-admin command; there is no
// self-service signup.
type Admin struct {
	AdminID      string     `json:"admin_id"`
	Name         string     `json:"name,omitempty"`
	Role         model.Role `json:"role"`
	PasswordHash string     `json:"password_hash"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Public returns the account without its credential material, for API
// responses.
func (a *Admin) Public() map[string]any {
	return map[string]any{
		"admin_id": a.AdminID,
		"name":     a.Name,
		"role":     a.Role,
	}
}
