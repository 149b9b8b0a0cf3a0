package workflow

import (
	"fmt"

	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
)

type Role string

const (
	RoleAdmin             Role = "admin"
	RoleManager           Role = "manager"
	RoleDigitalMarketer   Role = "digital_marketer"
	RoleDesigner          Role = "designer"
	RoleFrontendDeveloper Role = "frontend_developer"
	RolePythonDeveloper   Role = "python_developer"
	RoleClient            Role = "client"
)

var Roles = []Role{
	RoleAdmin,
	RoleManager,
	RoleDigitalMarketer,
	RoleDesigner,
	RoleFrontendDeveloper,
	RolePythonDeveloper,
	RoleClient,
}

func ParseRole(raw string) (Role, error) {
	for _, r := range Roles {
		if string(r) == raw {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, raw)
}

// Elevated roles may act on any task regardless of assignment.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanCreateProject reports whether r may open a new project.
func (r Role) CanCreateProject() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleDigitalMarketer
}

// CanViewAnalytics reports whether r may read the analytics dashboards.
func (r Role) CanViewAnalytics() bool {
	return r == RoleAdmin || r == RoleManager || r == RolePythonDeveloper
}
