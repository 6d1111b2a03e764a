package auth

import "strings"

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "GERANT"
	RoleClient  Role = "CLIENT"
)

// Roles lists every role in role-id order.
var Roles = []Role{RoleAdmin, RoleClient, RoleManager}

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleManager, "MANAGER":
		return RoleManager, true
	case RoleClient:
		return RoleClient, true
	}
	return "", false
}

// RoleID is the primary key of the role in the roles table.
func (r Role) RoleID() int64 {
	for i, role := range Roles {
		if role == r {
			return int64(i + 1)
		}
	}
	return 0
}

func RoleByID(id int64) (Role, bool) {
	if id < 1 || id > int64(len(Roles)) {
		return "", false
	}
	return Roles[id-1], true
}

func (r Role) Valid() bool {
	return r.RoleID() != 0
}

type Capability string

const (
	CapRequestsCreate    Capability = "requests.create"
	CapRequestsReadOwn   Capability = "requests.read_own"
	CapRequestsReadAll   Capability = "requests.read_all"
	CapRequestsProcess   Capability = "requests.process"
	CapRequestsDeleteAny Capability = "requests.delete_any"
	CapCompaniesRead     Capability = "companies.read"
	CapCompaniesWrite    Capability = "companies.write"
	CapUsersManage       Capability = "users.manage"
	CapAuditRead         Capability = "audit.read"
	CapSystemJobs        Capability = "system.jobs"
)

var AllCapabilities = []Capability{
	CapRequestsCreate,
	CapRequestsReadOwn,
	CapRequestsReadAll,
	CapRequestsProcess,
	CapRequestsDeleteAny,
	CapCompaniesRead,
	CapCompaniesWrite,
	CapUsersManage,
	CapAuditRead,
	CapSystemJobs,
}

var RoleCapabilities = map[Role][]Capability{
	RoleClient: {
		CapRequestsCreate,
		CapRequestsReadOwn,
		CapCompaniesRead,
	},
	RoleManager: {
		CapRequestsReadOwn,
		CapRequestsReadAll,
		CapRequestsProcess,
		CapCompaniesRead,
	},
	RoleAdmin: {
		CapRequestsCreate,
		CapRequestsReadOwn,
		CapRequestsReadAll,
		CapRequestsProcess,
		CapRequestsDeleteAny,
		CapCompaniesRead,
		CapCompaniesWrite,
		CapUsersManage,
		CapAuditRead,
		CapSystemJobs,
	},
}

// Can is the single capability check used by the server middleware, the
// domain services and the client session.
func Can(role Role, capability Capability) bool {
	for _, c := range RoleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}
