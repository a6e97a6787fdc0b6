package auth

import (
	"strings"

	"github.com/de-tools/defender-bridge/pkg/models/domain"
)

type Operation int

const (
	OperationRead Operation = iota
	OperationExempt
	OperationAssign
)

func (o Operation) String() string {
	switch o {
	case OperationExempt:
		return "exempt"
	case OperationAssign:
		return "assign"
	default:
		return "read"
	}
}

const (
	RoleSecurityReader        = "Security Reader"
	RoleSecurityAdministrator = "Security Administrator"
	RoleOwner                 = "Owner"
	RoleContributor           = "Contributor"
)

// Fixed policy table keyed by operation kind. Deny is the default: a role
// outside the table grants nothing.
var sufficientRoles = map[Operation][]string{
	OperationRead:   {RoleSecurityReader, RoleSecurityAdministrator, RoleOwner, RoleContributor},
	OperationExempt: {RoleSecurityAdministrator, RoleOwner, RoleContributor},
	OperationAssign: {RoleSecurityAdministrator, RoleOwner, RoleContributor},
}

// SufficientRoles lists the roles that permit op.
func SufficientRoles(op Operation) []string {
	return append([]string(nil), sufficientRoles[op]...)
}

// CheckPermission allows the call when the caller holds at least one
// sufficient role. The denial carries the full sufficient-role list so the
// caller can self-correct without further queries.
func CheckPermission(roles []string, op Operation) error {
	required := sufficientRoles[op]
	for _, have := range roles {
		for _, want := range required {
			if have == want {
				return nil
			}
		}
	}
	return domain.NewError(domain.CodePermissionDenied,
		"operation %q requires one of: %s", op, strings.Join(required, ", ")).
		WithDetail("operation", op.String()).
		WithDetail("required_roles", SufficientRoles(op))
}
