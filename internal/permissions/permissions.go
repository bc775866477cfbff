package permissions

// Role is a platform-wide role. It is distinct from the per-channel
// membership role carried on ChannelMember rows.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleCashier    Role = "cashier"
	RoleUser       Role = "user"
)

// roleLevels defines the strict total order over platform roles.
var roleLevels = map[Role]int{
	RoleSuperAdmin: 5,
	RoleAdmin:      4,
	RoleManager:    3,
	RoleCashier:    2,
	RoleUser:       1,
}

// defaultTable is the static permission table, loaded once at startup.
// Entries are "resource:action", "resource:action:own", "resource:*" or
// the full wildcard "*".
var defaultTable = map[Role][]string{
	RoleSuperAdmin: {
		"*",
	},
	RoleAdmin: {
		"users:read",
		"users:create",
		"users:update",
		"channels:*",
		"messages:*",
		"notifications:*",
	},
	RoleManager: {
		"users:read",
		"channels:create",
		"channels:read",
		"channels:update:own",
		"channels:delete:own",
		"messages:create",
		"messages:read",
		"messages:update:own",
		"messages:delete:own",
		"notifications:read",
	},
	RoleCashier: {
		"channels:read",
		"messages:create",
		"messages:read",
		"messages:update:own",
		"messages:delete:own",
		"notifications:read",
	},
	RoleUser: {
		"channels:read",
		"messages:create",
		"messages:read",
		"messages:update:own",
		"messages:delete:own",
		"notifications:read",
	},
}

// OwnershipContext carries the identities needed to evaluate an
// ownership-scoped ("resource:action:own") permission.
type OwnershipContext struct {
	UserID  uint64
	OwnerID uint64
}

// Engine evaluates role permissions against an immutable table. Build
// one with NewEngine or DefaultEngine and inject it by reference; the
// table is never mutated after construction.
type Engine struct {
	grants map[Role]map[string]struct{}
}

// NewEngine compiles a permission table into an Engine.
func NewEngine(table map[Role][]string) *Engine {
	grants := make(map[Role]map[string]struct{}, len(table))
	for role, perms := range table {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	return &Engine{grants: grants}
}

// DefaultEngine returns an Engine over the built-in role table.
func DefaultEngine() *Engine {
	return NewEngine(defaultTable)
}

// HasPermission reports whether a role may perform the given
// "resource:action" permission. Matching order: full wildcard, exact
// match, resource wildcard, then the "own" scope which only applies
// when ctx identifies the caller as the resource owner.
func (e *Engine) HasPermission(role Role, permission string, ctx *OwnershipContext) bool {
	set, ok := e.grants[role]
	if !ok {
		return false
	}

	if _, ok := set["*"]; ok {
		return true
	}
	if _, ok := set[permission]; ok {
		return true
	}
	if resource, found := splitResource(permission); found {
		if _, ok := set[resource+":*"]; ok {
			return true
		}
	}
	if ctx != nil && ctx.UserID != 0 && ctx.UserID == ctx.OwnerID {
		if _, ok := set[permission+":own"]; ok {
			return true
		}
	}
	return false
}

// CanManageUser reports whether the actor's role strictly outranks the
// target's. All administrative actions on another user are gated on
// this check.
func (e *Engine) CanManageUser(actor, target Role) bool {
	return roleLevels[actor] > roleLevels[target]
}

// CanAssignRole reports whether the actor may set a user's role to
// newRole. An actor may never elevate anyone to a role at or above its
// own; the top role bypasses the check.
func (e *Engine) CanAssignRole(actor, newRole Role) bool {
	if actor == RoleSuperAdmin {
		return true
	}
	return roleLevels[newRole] < roleLevels[actor]
}

// IsPrivileged reports whether the role has platform-wide channel
// administration rights.
func IsPrivileged(role Role) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// CanCreateOrganizationChannel reports whether the role may create
// public or private channels bound to an organization.
func CanCreateOrganizationChannel(role Role) bool {
	return role == RoleManager || role == RoleAdmin || role == RoleSuperAdmin
}

// Valid reports whether the role is a known platform role.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the hierarchy level of the role, higher outranks lower.
func (r Role) Level() int {
	return roleLevels[r]
}

func splitResource(permission string) (string, bool) {
	for i := 0; i < len(permission); i++ {
		if permission[i] == ':' {
			return permission[:i], true
		}
	}
	return "", false
}
