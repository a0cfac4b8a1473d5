package authorization

// ClaimTypeAdmin is the user claim type carrying console permissions.
const ClaimTypeAdmin = "admin"

const (
	ClaimUsers        = "admin:users"
	ClaimUserClaims   = "admin:user_claims"
	ClaimUserRoles    = "admin:user_roles"
	ClaimUserGrants   = "admin:user_grants"
	ClaimUserSessions = "admin:user_sessions"
)

// AdminClaimValues lists every admin claim value, in display order.
var AdminClaimValues = []string{
	ClaimUsers,
	ClaimUserClaims,
	ClaimUserRoles,
	ClaimUserGrants,
	ClaimUserSessions,
}

const (
	ObjectUsers        = "users"
	ObjectUserClaims   = "user_claims"
	ObjectUserRoles    = "user_roles"
	ObjectUserGrants   = "user_grants"
	ObjectUserSessions = "user_sessions"
	ObjectConsole      = "console"

	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionAccess = "access"
)

// RoleAdmin gates the admin index, accounts, clients and roles pages.
const RoleAdmin = "ADMIN"

type Policy string

const (
	UsersRead          Policy = "UsersRead"
	UsersWrite         Policy = "UsersWrite"
	UsersDelete        Policy = "UsersDelete"
	UserClaimsRead     Policy = "UserClaimsRead"
	UserClaimsWrite    Policy = "UserClaimsWrite"
	UserClaimsDelete   Policy = "UserClaimsDelete"
	UserRolesRead      Policy = "UserRolesRead"
	UserRolesWrite     Policy = "UserRolesWrite"
	UserRolesDelete    Policy = "UserRolesDelete"
	UserGrantsRead     Policy = "UserGrantsRead"
	UserGrantsDelete   Policy = "UserGrantsDelete"
	UserSessionsRead   Policy = "UserSessionsRead"
	UserSessionsDelete Policy = "UserSessionsDelete"
)

// Requirement is what a policy demands of the principal: an admin claim
// whose value is granted Action on Object.
type Requirement struct {
	Object     string
	Action     string
	ClaimValue string
}

var requirements = map[Policy]Requirement{
	UsersRead:          {ObjectUsers, ActionRead, ClaimUsers},
	UsersWrite:         {ObjectUsers, ActionWrite, ClaimUsers},
	UsersDelete:        {ObjectUsers, ActionDelete, ClaimUsers},
	UserClaimsRead:     {ObjectUserClaims, ActionRead, ClaimUserClaims},
	UserClaimsWrite:    {ObjectUserClaims, ActionWrite, ClaimUserClaims},
	UserClaimsDelete:   {ObjectUserClaims, ActionDelete, ClaimUserClaims},
	UserRolesRead:      {ObjectUserRoles, ActionRead, ClaimUserRoles},
	UserRolesWrite:     {ObjectUserRoles, ActionWrite, ClaimUserRoles},
	UserRolesDelete:    {ObjectUserRoles, ActionDelete, ClaimUserRoles},
	UserGrantsRead:     {ObjectUserGrants, ActionRead, ClaimUserGrants},
	UserGrantsDelete:   {ObjectUserGrants, ActionDelete, ClaimUserGrants},
	UserSessionsRead:   {ObjectUserSessions, ActionRead, ClaimUserSessions},
	UserSessionsDelete: {ObjectUserSessions, ActionDelete, ClaimUserSessions},
}

// RequirementFor returns the requirement bound to p.
func RequirementFor(p Policy) (Requirement, bool) {
	req, ok := requirements[p]
	return req, ok
}

// Policies returns every known policy.
func Policies() []Policy {
	out := make([]Policy, 0, len(requirements))
	for p := range requirements {
		out = append(out, p)
	}
	return out
}

func roleSubject(role string) string {
	return "role:" + role
}

func seedRules() [][]string {
	rules := make([][]string, 0, len(requirements)+1)
	for _, req := range requirements {
		rules = append(rules, []string{req.ClaimValue, req.Object, req.Action})
	}
	rules = append(rules, []string{roleSubject(RoleAdmin), ObjectConsole, ActionAccess})
	return rules
}
