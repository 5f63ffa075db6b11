package rbac

const (
	RoleInstructor = "instructor"
	RoleLearner    = "learner"
	RoleAdmin      = "admin"
)

const (
	PermCourseCreate      = "course:create"
	PermCourseView        = "course:view"
	PermHierarchyView     = "hierarchy:view"
	PermModuleWrite       = "module:write"
	PermContentWrite      = "content:write"
	PermEvaluationView    = "evaluation:view"
	PermEvaluationViewKey = "evaluation:view-key"
	PermEvaluationSubmit  = "evaluation:submit"
	PermPositionRead      = "position:read"
	PermPositionWrite     = "position:write"
)

// Default policy.
var RolePermissions = map[string][]string{
	RoleLearner: {
		PermCourseView,
		PermEvaluationView,
		PermEvaluationSubmit,
		"position:*",
	},
	RoleInstructor: {
		PermCourseCreate,
		PermCourseView,
		PermHierarchyView,
		PermModuleWrite,
		PermContentWrite,
		"evaluation:view*",
	},
	RoleAdmin: {
		"*", // everything
	},
}

// ValidRole reports whether role has a policy entry.
func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
